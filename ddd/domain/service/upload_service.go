package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7/pkg/s3utils"

	"bounty-uploader/ddd/domain/entity"
	"bounty-uploader/ddd/domain/gateway"
	"bounty-uploader/ddd/domain/vo"
	"bounty-uploader/pkg/logger"
	"bounty-uploader/pkg/metrics"
)

// UploadService 三阶段直传：申请凭证 → 直传字节 → 确认。任何阶段都不自动重试。
type UploadService struct {
	backend gateway.UploadBackend
	storage gateway.StorageTransfer
	scheme  string
}

// NewUploadService 创建直传服务，scheme 用于拼接 storage URL（默认 s3）。
func NewUploadService(backend gateway.UploadBackend, storage gateway.StorageTransfer, scheme string) *UploadService {
	if strings.TrimSpace(scheme) == "" {
		scheme = "s3"
	}
	return &UploadService{
		backend: backend,
		storage: storage,
		scheme:  scheme,
	}
}

// Upload runs the full protocol for blob. The blob is final: nothing mutates it afterwards.
func (s *UploadService) Upload(ctx context.Context, blob *entity.MediaBlob, name, email, payoutHandle string, onProgress vo.ProgressFunc) (*vo.UploadResult, error) {
	submitter, err := vo.NewSubmitter(name, email, payoutHandle)
	if err != nil {
		return nil, &CredentialRequestError{Err: err}
	}
	return s.Run(ctx, entity.NewUploadSession(blob, submitter), onProgress)
}

// Run drives session from Idle to Confirmed or Failed.
func (s *UploadService) Run(ctx context.Context, session *entity.UploadSession, onProgress vo.ProgressFunc) (*vo.UploadResult, error) {
	blob := session.Blob()
	if blob == nil {
		err := &CredentialRequestError{Err: errors.New("nil blob")}
		session.MarkFailed(vo.UploadStepCredential, err)
		return nil, err
	}

	cred, err := s.requestCredential(ctx, session)
	if err != nil {
		session.MarkFailed(vo.UploadStepCredential, err)
		return nil, err
	}

	if err := session.MarkTransferring(cred); err != nil {
		return nil, err
	}
	if err := s.transfer(ctx, blob, cred, onProgress); err != nil {
		session.MarkFailed(vo.UploadStepTransfer, err)
		return nil, err
	}

	confirmation, err := s.confirm(ctx, cred)
	if err != nil {
		session.MarkFailed(vo.UploadStepConfirm, err)
		return nil, err
	}

	result := &vo.UploadResult{
		Message:      vo.UploadSuccessMessage,
		FileID:       cred.FileID,
		StorageURL:   fmt.Sprintf("%s://%s", s.scheme, cred.StorageKey),
		ReviewStatus: confirmation.Status,
	}
	if err := session.MarkConfirmed(result); err != nil {
		return nil, err
	}
	logger.Info("Video uploaded successfully", map[string]interface{}{
		"file_id":     result.FileID,
		"storage_url": result.StorageURL,
		"status":      result.ReviewStatus,
	})
	return result, nil
}

func (s *UploadService) requestCredential(ctx context.Context, session *entity.UploadSession) (*vo.UploadCredential, error) {
	if err := session.MarkCredentialRequested(); err != nil {
		return nil, &CredentialRequestError{Err: err}
	}
	blob := session.Blob()
	started := time.Now()

	cred, err := s.backend.RequestCredential(ctx, gateway.CredentialRequest{
		Submitter:   session.Submitter(),
		Filename:    blob.Name(),
		ContentType: blob.MimeType(),
	})
	if err != nil {
		observeStep(vo.UploadStepCredential, started, err)
		var respErr *gateway.BackendResponseError
		if errors.As(err, &respErr) {
			return nil, &CredentialRequestError{Status: respErr.Status, Body: respErr.Body, Err: err}
		}
		return nil, &CredentialRequestError{Err: err}
	}
	if err := validateCredential(cred); err != nil {
		observeStep(vo.UploadStepCredential, started, err)
		return nil, &CredentialRequestError{Err: err}
	}
	observeStep(vo.UploadStepCredential, started, nil)

	logger.Debug("Upload credential issued", map[string]interface{}{
		"file_id":     cred.FileID,
		"storage_key": cred.StorageKey,
	})
	return cred, nil
}

func validateCredential(cred *vo.UploadCredential) error {
	if cred == nil {
		return errors.New("empty credential response")
	}
	if strings.TrimSpace(cred.UploadURL) == "" {
		return errors.New("credential response missing upload_url")
	}
	if strings.TrimSpace(cred.FileID) == "" {
		return errors.New("credential response missing file_id")
	}
	if err := s3utils.CheckValidObjectName(cred.StorageKey); err != nil {
		return fmt.Errorf("credential response has invalid s3_filename %q: %w", cred.StorageKey, err)
	}
	return nil
}

func (s *UploadService) transfer(ctx context.Context, blob *entity.MediaBlob, cred *vo.UploadCredential, onProgress vo.ProgressFunc) error {
	started := time.Now()
	status, err := s.storage.Transfer(ctx, gateway.TransferRequest{
		URL:         cred.UploadURL,
		ContentType: blob.MimeType(),
		Body:        blob.Reader(),
		Size:        int64(blob.SizeBytes()),
		OnProgress: func(loaded, total int64) {
			if onProgress == nil || total <= 0 {
				return
			}
			onProgress(int(math.Round(float64(loaded) / float64(total) * 100)))
		},
	})
	if err != nil {
		observeStep(vo.UploadStepTransfer, started, err)
		return &TransferError{Status: status, Err: err}
	}
	if status != http.StatusOK {
		terr := &TransferError{Status: status}
		observeStep(vo.UploadStepTransfer, started, terr)
		return terr
	}
	observeStep(vo.UploadStepTransfer, started, nil)
	metrics.UploadBytesTotal.Add(float64(blob.SizeBytes()))
	return nil
}

func (s *UploadService) confirm(ctx context.Context, cred *vo.UploadCredential) (*vo.Confirmation, error) {
	started := time.Now()
	confirmation, err := s.backend.Confirm(ctx, cred.FileID)
	observeStep(vo.UploadStepConfirm, started, err)
	if err != nil {
		logger.Warnf("upload confirmation failed, storage object left unconfirmed file_id=%s storage_key=%s error=%s",
			cred.FileID, cred.StorageKey, err.Error())
		var respErr *gateway.BackendResponseError
		if errors.As(err, &respErr) {
			return nil, &ConfirmationError{Status: respErr.Status, Body: respErr.Body, FileID: cred.FileID, Err: err}
		}
		return nil, &ConfirmationError{FileID: cred.FileID, Err: err}
	}
	if confirmation == nil {
		confirmation = &vo.Confirmation{FileID: cred.FileID}
	}
	return confirmation, nil
}

func observeStep(step vo.UploadStep, started time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusFailure
	}
	metrics.UploadStepsTotal.WithLabelValues(string(step), status).Inc()
	metrics.UploadStepDuration.WithLabelValues(string(step)).Observe(time.Since(started).Seconds())
}
