package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/afero"

	"bounty-uploader/ddd/domain/port"
	"bounty-uploader/ddd/domain/vo"
	"bounty-uploader/pkg/config"
	"bounty-uploader/pkg/logger"
)

// ErrBinaryNotFound is returned when no ffmpeg binary is configured, on PATH, or downloadable.
var ErrBinaryNotFound = errors.New("ffmpeg binary not found")

// FFmpegInitializer resolves, verifies and stages a local ffmpeg.
//
// Resolution order: engine.binary_path, then "ffmpeg" on PATH, then engine.download_url
// fetched into engine.cache_dir.
type FFmpegInitializer struct {
	cfg      config.EngineConfig
	osFs     afero.Fs
	client   *http.Client
	lookPath func(string) (string, error)
}

// NewFFmpegInitializer 创建 ffmpeg 引擎初始化器
func NewFFmpegInitializer(cfg config.EngineConfig) *FFmpegInitializer {
	return &FFmpegInitializer{
		cfg:      cfg,
		osFs:     afero.NewOsFs(),
		client:   http.DefaultClient,
		lookPath: exec.LookPath,
	}
}

// Initialize implements Initializer.
func (i *FFmpegInitializer) Initialize(ctx context.Context, hooks Hooks) (port.Engine, error) {
	binary, err := i.resolveBinary(ctx)
	if err != nil {
		return nil, err
	}

	version, err := runProbe(ctx, binary, "-hide_banner", "-version")
	if err != nil {
		return nil, fmt.Errorf("verify ffmpeg %s: %w", binary, err)
	}
	logger.Infof("ffmpeg resolved binary=%s version=%s", binary, firstLine(version))

	if encoders, err := runProbe(ctx, binary, "-hide_banner", "-encoders"); err != nil {
		logger.Warnf("ffmpeg encoder listing failed binary=%s error=%v", binary, err)
	} else if !strings.Contains(encoders, vo.OutputVideoCodec) {
		logger.Warnf("ffmpeg build lacks %s encoder, compression will fail binary=%s", vo.OutputVideoCodec, binary)
	}

	dir := i.cfg.StagingDir
	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	if err := i.osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir %s: %w", dir, err)
	}
	staging := afero.NewBasePathFs(i.osFs, dir)
	return NewFFmpegEngine(binary, dir, staging, i.cfg.ExecTimeout, hooks), nil
}

func (i *FFmpegInitializer) resolveBinary(ctx context.Context) (string, error) {
	if p := strings.TrimSpace(i.cfg.BinaryPath); p != "" {
		resolved, err := i.lookPath(p)
		if err != nil {
			return "", fmt.Errorf("configured ffmpeg %s: %w", p, err)
		}
		return resolved, nil
	}
	if resolved, err := i.lookPath("ffmpeg"); err == nil {
		return resolved, nil
	}
	if strings.TrimSpace(i.cfg.DownloadURL) == "" {
		return "", ErrBinaryNotFound
	}
	return fetchBinary(ctx, i.client, i.osFs, i.cfg.DownloadURL, i.cfg.CacheDir)
}

func runProbe(ctx context.Context, binary string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, firstLine(msg))
		}
		return "", err
	}
	return stdout.String(), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
