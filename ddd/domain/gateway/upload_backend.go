package gateway

import (
	"context"

	"bounty-uploader/ddd/domain/vo"
)

// CredentialRequest 申请上传凭证的参数
type CredentialRequest struct {
	Submitter   vo.Submitter
	Filename    string
	ContentType string
}

// BackendResponseError carries a non-success response from the application backend.
type BackendResponseError struct {
	Status int
	Body   string
}

func (e *BackendResponseError) Error() string {
	return e.Body
}

// UploadBackend 后端直传接口
type UploadBackend interface {
	// RequestCredential 申请一次性直传凭证
	RequestCredential(ctx context.Context, req CredentialRequest) (*vo.UploadCredential, error)
	// Confirm 确认上传完成
	Confirm(ctx context.Context, fileID string) (*vo.Confirmation, error)
}
