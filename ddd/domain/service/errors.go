package service

import (
	"errors"
	"fmt"

	"bounty-uploader/ddd/domain/vo"
)

// EngineLoadError 转码引擎加载失败；进程状态已回到 unloaded，可重试。
type EngineLoadError struct {
	Err error
}

func (e *EngineLoadError) Error() string {
	return fmt.Sprintf("failed to load video compression library: %v", e.Err)
}

func (e *EngineLoadError) Unwrap() error { return e.Err }

// CompressionStage names the executor step that failed.
type CompressionStage string

const (
	CompressionStageValidate  CompressionStage = "validate"
	CompressionStageLoad      CompressionStage = "load"
	CompressionStageStage     CompressionStage = "stage"
	CompressionStageTranscode CompressionStage = "transcode"
	CompressionStageRead      CompressionStage = "read"
)

// CompressionError wraps any failure of the compression executor.
type CompressionError struct {
	Stage CompressionStage
	Err   error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("failed to compress video (%s): %v", e.Stage, e.Err)
}

func (e *CompressionError) Unwrap() error { return e.Err }

// PhaseError is implemented by every direct-upload failure.
type PhaseError interface {
	error
	Step() vo.UploadStep
}

// CredentialRequestError 申请直传凭证失败。Status 为 0 表示未收到响应或参数/响应无效。
type CredentialRequestError struct {
	Status int
	Body   string
	Err    error
}

func (e *CredentialRequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("Failed to generate upload URL: %d %s", e.Status, e.Body)
	}
	return fmt.Sprintf("Failed to generate upload URL: %v", e.Err)
}

func (e *CredentialRequestError) Unwrap() error       { return e.Err }
func (e *CredentialRequestError) Step() vo.UploadStep { return vo.UploadStepCredential }

// TransferError 字节直传到存储失败，只携带状态码。
type TransferError struct {
	Status int
	Err    error
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("S3 upload failed: %v", e.Err)
	}
	return fmt.Sprintf("S3 upload failed with status %d", e.Status)
}

func (e *TransferError) Unwrap() error       { return e.Err }
func (e *TransferError) Step() vo.UploadStep { return vo.UploadStepTransfer }

// ConfirmationError 确认失败。此时存储中已存在未确认的对象。
type ConfirmationError struct {
	Status int
	Body   string
	FileID string
	Err    error
}

func (e *ConfirmationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("Failed to confirm upload: %d %s", e.Status, e.Body)
	}
	return fmt.Sprintf("Failed to confirm upload: %v", e.Err)
}

func (e *ConfirmationError) Unwrap() error       { return e.Err }
func (e *ConfirmationError) Step() vo.UploadStep { return vo.UploadStepConfirm }

// FailedStep reports which upload step produced err.
func FailedStep(err error) (vo.UploadStep, bool) {
	var pe PhaseError
	if errors.As(err, &pe) {
		return pe.Step(), true
	}
	return "", false
}
