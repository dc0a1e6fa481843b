package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"

	"bounty-uploader/ddd/domain/port"
	"bounty-uploader/pkg/logger"
)

// DefaultExecTimeout bounds a single transcode independently of the caller's context.
const DefaultExecTimeout = time.Hour

// FFmpegEngine implements port.Engine on a local ffmpeg binary. Staged files live in
// fs, which must be rooted at dir so that names in Exec args resolve against cmd.Dir.
type FFmpegEngine struct {
	binary  string
	dir     string
	fs      afero.Fs
	timeout time.Duration
	hooks   Hooks
}

// NewFFmpegEngine 创建基于本地 ffmpeg 的引擎
func NewFFmpegEngine(binary, dir string, fs afero.Fs, timeout time.Duration, hooks Hooks) *FFmpegEngine {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), dir)
	}
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	return &FFmpegEngine{
		binary:  binary,
		dir:     dir,
		fs:      fs,
		timeout: timeout,
		hooks:   hooks,
	}
}

var _ port.Engine = (*FFmpegEngine)(nil)

// Binary returns the resolved ffmpeg path.
func (e *FFmpegEngine) Binary() string {
	return e.binary
}

func (e *FFmpegEngine) WriteFile(_ context.Context, name string, data []byte) error {
	p, err := stagedPath(name)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(e.fs, p, data, 0o644); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	return nil
}

func (e *FFmpegEngine) ReadFile(_ context.Context, name string) ([]byte, error) {
	p, err := stagedPath(name)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(e.fs, p)
	if err != nil {
		return nil, fmt.Errorf("read staged %s: %w", name, err)
	}
	return data, nil
}

// DeleteFile is idempotent: a missing file is not an error.
func (e *FFmpegEngine) DeleteFile(_ context.Context, name string) error {
	p, err := stagedPath(name)
	if err != nil {
		return err
	}
	if err := e.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove staged %s: %w", name, err)
	}
	return nil
}

// Exec runs ffmpeg with args inside the staging directory and blocks until it exits.
func (e *FFmpegEngine) Exec(ctx context.Context, args []string, onProgress port.EngineProgressFunc) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	full := append([]string{"-hide_banner", "-nostats", "-progress", "pipe:2"}, args...)
	cmd := exec.CommandContext(ctx, e.binary, full...)
	cmd.Dir = e.dir

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("创建FFmpeg stderr管道失败: %w", err)
	}
	logger.Debugf("ffmpeg command=%s %s", e.binary, strings.Join(full, " "))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("启动FFmpeg命令失败: %w", err)
	}

	// Wait closes the pipe, so stderr must be drained first.
	parser := &progressParser{}
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		ratio, ok, isLog := parser.parseLine(line)
		if isLog && e.hooks.OnLog != nil {
			e.hooks.OnLog(line)
		}
		if !ok {
			continue
		}
		if e.hooks.OnProgress != nil {
			e.hooks.OnProgress(ratio)
		}
		if onProgress != nil {
			onProgress(ratio)
		}
	}
	if err := scanner.Err(); err != nil {
		// 超长行会中断扫描，继续丢弃剩余输出，否则 ffmpeg 写满管道后阻塞
		logger.Warnf("ffmpeg stderr scan stopped error=%v", err)
		_, _ = io.Copy(io.Discard, stderr)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg timed out after %s: %w", e.timeout, ctx.Err())
		}
		tail := parser.Tail()
		logger.Errorf("ffmpeg failed tail_stderr=%s", tail)
		if tail == "" {
			return fmt.Errorf("ffmpeg failed: %w", err)
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(tail))
	}
	return nil
}

// stagedPath keeps every name flat inside the staging namespace.
func stagedPath(name string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	if name == "" || strings.ContainsAny(name, `/\`) || clean == "/" || clean == "/.." {
		return "", fmt.Errorf("invalid staged file name %q", name)
	}
	return clean, nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
