package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"bounty-uploader/ddd/domain/gateway"
	"bounty-uploader/ddd/domain/vo"
	"bounty-uploader/pkg/config"
	"bounty-uploader/pkg/logger"
)

const (
	generateUploadURLPath = "generate-upload-url"
	confirmUploadPath     = "confirm-upload"
	healthPath            = "health"

	maxResponseBody = 1 << 20
)

// HTTPBackend 应用后端客户端：申请直传凭证、确认上传
type HTTPBackend struct {
	api    config.APIConfig
	client *http.Client
}

// NewHTTPBackend creates a backend client for cfg.BaseURL.
func NewHTTPBackend(cfg config.APIConfig) *HTTPBackend {
	return NewHTTPBackendWithClient(cfg, &http.Client{Timeout: cfg.Timeout})
}

func NewHTTPBackendWithClient(cfg config.APIConfig, client *http.Client) *HTTPBackend {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPBackend{api: cfg, client: client}
}

var _ gateway.UploadBackend = (*HTTPBackend)(nil)

// RequestCredential POSTs the submitter and file metadata as multipart form fields.
func (b *HTTPBackend) RequestCredential(ctx context.Context, req gateway.CredentialRequest) (*vo.UploadCredential, error) {
	var cred vo.UploadCredential
	err := b.postForm(ctx, generateUploadURLPath, []formField{
		{"name", req.Submitter.Name},
		{"email", req.Submitter.Email},
		{"venmo_id", req.Submitter.PayoutHandle},
		{"filename", req.Filename},
		{"content_type", req.ContentType},
	}, &cred)
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// Confirm tells the backend the object for fileID is in storage.
func (b *HTTPBackend) Confirm(ctx context.Context, fileID string) (*vo.Confirmation, error) {
	var out vo.Confirmation
	if err := b.postForm(ctx, confirmUploadPath, []formField{{"file_id", fileID}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health GETs {base}/health and returns the decoded body.
func (b *HTTPBackend) Health(ctx context.Context) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.api.Endpoint(healthPath), nil)
	if err != nil {
		return nil, fmt.Errorf("build health request: %w", err)
	}
	out := map[string]interface{}{}
	if err := b.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type formField struct {
	name  string
	value string
}

func (b *HTTPBackend) postForm(ctx context.Context, path string, fields []formField, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("encode form field %s: %w", f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encode form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.api.Endpoint(path), &buf)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return b.do(req, out)
}

func (b *HTTPBackend) do(req *http.Request, out interface{}) error {
	started := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read %s response: %w", req.URL.Path, err)
	}
	logger.Debug("Backend call finished", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": time.Since(started).String(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &gateway.BackendResponseError{Status: resp.StatusCode, Body: string(body)}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
