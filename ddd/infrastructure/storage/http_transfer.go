package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"bounty-uploader/ddd/domain/gateway"
	"bounty-uploader/pkg/logger"
)

// HTTPTransfer PUTs bytes to a pre-signed storage URL.
type HTTPTransfer struct {
	client *http.Client
}

// NewHTTPTransfer 创建直传客户端；timeout 为 0 时不设整体超时，仅由 ctx 控制
func NewHTTPTransfer(timeout time.Duration) *HTTPTransfer {
	return &HTTPTransfer{client: &http.Client{Timeout: timeout}}
}

// NewHTTPTransferWithClient is used by tests and callers that share a transport.
func NewHTTPTransferWithClient(client *http.Client) *HTTPTransfer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransfer{client: client}
}

var _ gateway.StorageTransfer = (*HTTPTransfer)(nil)

// Transfer implements gateway.StorageTransfer.
func (t *HTTPTransfer) Transfer(ctx context.Context, req gateway.TransferRequest) (int, error) {
	if req.Body == nil {
		return 0, fmt.Errorf("nil transfer body")
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = getContentTypeFromExtension(req.URL)
	}

	body := &countingReader{r: req.Body, total: req.Size, onProgress: req.OnProgress}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, req.URL, body)
	if err != nil {
		return 0, fmt.Errorf("build transfer request: %w", err)
	}
	httpReq.ContentLength = req.Size
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	logger.Debug("Storage transfer finished", map[string]interface{}{
		"status": resp.StatusCode,
		"bytes":  body.loaded.Load(),
	})
	return resp.StatusCode, nil
}

// countingReader reports cumulative bytes as the transport consumes the body.
type countingReader struct {
	r          io.Reader
	total      int64
	loaded     atomic.Int64
	onProgress func(loaded, total int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		loaded := c.loaded.Add(int64(n))
		if c.onProgress != nil {
			c.onProgress(loaded, c.total)
		}
	}
	return n, err
}

// getContentTypeFromExtension 根据文件扩展名获取内容类型
func getContentTypeFromExtension(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	ext := strings.ToLower(filepath.Ext(rawURL))
	switch ext {
	case ".mp4":
		return "video/mp4"
	case ".avi":
		return "video/x-msvideo"
	case ".mov":
		return "video/quicktime"
	case ".wmv":
		return "video/x-ms-wmv"
	case ".flv":
		return "video/x-flv"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}
