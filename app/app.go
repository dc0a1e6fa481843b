package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	intake "bounty-uploader/ddd/adapter/http"
	submission "bounty-uploader/ddd/application/app"
	"bounty-uploader/ddd/application/cqe"
	"bounty-uploader/ddd/domain/entity"
	"bounty-uploader/ddd/domain/port"
	"bounty-uploader/ddd/infrastructure/backend"
	"bounty-uploader/ddd/infrastructure/engine"
	"bounty-uploader/pkg/config"
	"bounty-uploader/pkg/logger"
	"bounty-uploader/pkg/manager"
	"bounty-uploader/pkg/observability"
	"bounty-uploader/pkg/task"

	// 导入资源包以触发init函数
	_ "bounty-uploader/internal/resource"
)

const serviceName = "bounty-uploader"

// Run executes the CLI and exits non-zero on error.
func Run() {
	defer observability.StopProfiling()
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree. Config and logger are initialized before any subcommand.
func NewRootCommand() *cobra.Command {
	var configPath string
	var logService *logger.Logger

	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Compress and upload bounty submission videos",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("CONFIG_PATH")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			// 设置全局配置（必须在资源管理器初始化之前）
			config.SetGlobalConfig(cfg)
			logService = logger.NewLogger(cfg)
			logger.SetGlobalLogger(logService)
			logger.Debug("Logger initialized", map[string]interface{}{
				"level":  cfg.Log.Level,
				"format": cfg.Log.Format,
				"output": cfg.Log.Output,
			})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logService != nil {
				logService.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (yaml); defaults to $CONFIG_PATH")

	root.AddCommand(newSubmitCommand(), newEstimateCommand(), newHealthCommand(), newServeCommand())
	return root
}

func newSubmitCommand() *cobra.Command {
	var name, email, payout string
	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Compress (when large) and upload a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := readBlob(args[0])
			if err != nil {
				return err
			}

			manager.MustInitResources()
			defer manager.CloseResources()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := submission.DefaultSubmissionApp().Submit(ctx, &cqe.SubmitVideoCqe{
				Video:        blob,
				Name:         name,
				Email:        email,
				PayoutHandle: payout,
			}, progressPrinter(cmd.ErrOrStderr()))
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "submitter name")
	cmd.Flags().StringVar(&email, "email", "", "submitter email")
	cmd.Flags().StringVar(&payout, "payout", "", "payout handle (leading @ is stripped)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("payout")
	return cmd
}

func newEstimateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate <file>",
		Short: "Show whether a video would be compressed and its estimated size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := readBlob(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), submission.DefaultSubmissionApp().Estimate(blob))
		},
	}
}

func newHealthCommand() *cobra.Command {
	var checkEngine bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the backend health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetGlobalConfig()
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout)
			defer cancel()
			out, err := backend.NewHTTPBackend(cfg.API).Health(ctx)
			if err != nil {
				return fmt.Errorf("backend %s unhealthy: %w", cfg.API.BaseURL, err)
			}
			if checkEngine {
				info, err := engineHealth(cmd.Context(), engine.DefaultLoader())
				if err != nil {
					return err
				}
				out["engine"] = info
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&checkEngine, "engine", false, "also load the transcoding engine and report its binary")
	return cmd
}

// engineHealth 加载引擎并报告实际使用的 ffmpeg 路径
func engineHealth(ctx context.Context, loader *engine.Loader) (map[string]interface{}, error) {
	e, err := loader.GetEngine(ctx)
	if err != nil {
		return nil, fmt.Errorf("transcoding engine unavailable: %w", err)
	}
	info := map[string]interface{}{"state": loader.State().String()}
	if fe, ok := e.(*engine.FFmpegEngine); ok {
		info["binary"] = fe.Binary()
	}
	return info, nil
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local intake HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(config.GetGlobalConfig())
		},
	}
}

func serve(cfg *config.Config) error {
	observability.StartProfilingAt(serviceName, cfg.Profiling.ServerAddress)
	logger.Infof("Bounty uploader intake starting addr=%s", cfg.Intake.Addr())

	// 资源管理器初始化
	logger.Infof("Initializing resource manager...")
	manager.MustInitResources()
	defer manager.CloseResources()

	router := intake.NewEngine(cfg.Intake.Mode)
	logger.Infof("Registering routes...")
	manager.RegisterAllRoutes(router)

	if err := task.StartAll(context.Background()); err != nil {
		return err
	}
	defer task.StopAll()

	server := &http.Server{
		Addr:              cfg.Intake.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("HTTP server started addr=%s health_url=http://%s/health api_url=http://%s/api/v1",
		cfg.Intake.Addr(), cfg.Intake.Addr(), cfg.Intake.Addr())

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Infof("Received shutdown signal, shutting down server...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("intake server: %w", err)
		}
	}

	// 设置5秒超时
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to close: %w", err)
	}
	logger.Infof("Server exited safely")
	return nil
}

func readBlob(path string) (*entity.MediaBlob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return entity.DetectMediaBlob(filepath.Base(path), data, ""), nil
}

// progressPrinter 在同一行刷新进度
func progressPrinter(w io.Writer) port.ProgressListener {
	return func(stage port.Stage, progress int) {
		fmt.Fprintf(w, "\r%-12s %3d%%", stage, progress)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
