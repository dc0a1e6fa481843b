package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"bounty-uploader/pkg/logger"
)

// fetchBinary downloads the engine binary into cacheDir once and reuses it afterwards.
func fetchBinary(ctx context.Context, client *http.Client, fs afero.Fs, rawURL, cacheDir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse engine download url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "ffmpeg"
	}
	target := filepath.Join(cacheDir, name)

	if info, err := fs.Stat(target); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
		logger.Debugf("using cached ffmpeg binary=%s", target)
		return target, nil
	}

	if err := fs.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create engine cache dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build engine download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download engine: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download engine: unexpected status %d", resp.StatusCode)
	}

	tmp, err := afero.TempFile(fs, cacheDir, name+".partial-*")
	if err != nil {
		return "", fmt.Errorf("create engine temp file: %w", err)
	}
	n, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = fs.Remove(tmp.Name())
		if copyErr != nil {
			return "", fmt.Errorf("write engine binary: %w", copyErr)
		}
		return "", fmt.Errorf("write engine binary: %w", closeErr)
	}
	if err := fs.Chmod(tmp.Name(), 0o755); err != nil {
		_ = fs.Remove(tmp.Name())
		return "", fmt.Errorf("chmod engine binary: %w", err)
	}
	if err := fs.Rename(tmp.Name(), target); err != nil {
		_ = fs.Remove(tmp.Name())
		return "", fmt.Errorf("install engine binary: %w", err)
	}

	logger.Infof("ffmpeg downloaded url=%s path=%s size=%s", rawURL, target, humanize.IBytes(uint64(n)))
	return target, nil
}
