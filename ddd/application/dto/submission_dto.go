package dto

import (
	"time"

	"bounty-uploader/ddd/domain/entity"
	"bounty-uploader/ddd/domain/service"
	"bounty-uploader/ddd/domain/vo"
)

// SubmissionResultDTO 一次提交的最终结果
type SubmissionResultDTO struct {
	Message          string     `json:"message"`
	FileID           string     `json:"file_id"`
	StorageURL       string     `json:"storage_url"`
	ReviewStatus     string     `json:"review_status,omitempty"`
	Filename         string     `json:"filename"`
	OriginalSize     uint64     `json:"original_size"`
	UploadedSize     uint64     `json:"uploaded_size"`
	Compressed       bool       `json:"compressed"`
	CompressionError string     `json:"compression_error,omitempty"`
	Phase            string     `json:"phase"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// NewSubmissionResultDTO builds the result from a confirmed session.
func NewSubmissionResultDTO(original *entity.MediaBlob, session *entity.UploadSession, compressed bool, compressionErr error) *SubmissionResultDTO {
	uploaded := session.Blob()
	result := session.Result()
	if result == nil {
		result = &vo.UploadResult{}
	}
	d := &SubmissionResultDTO{
		Message:      result.Message,
		FileID:       result.FileID,
		StorageURL:   result.StorageURL,
		ReviewStatus: result.ReviewStatus,
		Filename:     uploaded.Name(),
		OriginalSize: original.SizeBytes(),
		UploadedSize: uploaded.SizeBytes(),
		Compressed:   compressed,
		Phase:        session.Phase().String(),
		CompletedAt:  session.CompletedAt(),
	}
	if compressionErr != nil {
		d.CompressionError = compressionErr.Error()
	}
	return d
}

// EstimateDTO 压缩预估，仅用于展示
type EstimateDTO struct {
	Filename          string `json:"filename"`
	OriginalSize      uint64 `json:"original_size"`
	OriginalSizeText  string `json:"original_size_text"`
	ShouldCompress    bool   `json:"should_compress"`
	EstimatedSize     uint64 `json:"estimated_size"`
	EstimatedSizeText string `json:"estimated_size_text"`
}

func NewEstimateDTO(blob *entity.MediaBlob, policy service.CompressionPolicy) *EstimateDTO {
	estimated := policy.EstimateCompressedSize(blob)
	return &EstimateDTO{
		Filename:          blob.Name(),
		OriginalSize:      blob.SizeBytes(),
		OriginalSizeText:  service.FormatFileSize(blob.SizeBytes()),
		ShouldCompress:    policy.ShouldCompress(blob),
		EstimatedSize:     estimated,
		EstimatedSizeText: service.FormatFileSize(estimated),
	}
}

// Submission stages reported by the intake server.
const (
	SubmissionStageQueued      = "queued"
	SubmissionStageCompressing = "compressing"
	SubmissionStageUploading   = "uploading"
	SubmissionStageCompleted   = "completed"
	SubmissionStageFailed      = "failed"
)

// SubmissionStatusDTO 后台提交的当前状态
type SubmissionStatusDTO struct {
	SubmissionID        string               `json:"submission_id"`
	Filename            string               `json:"filename"`
	Stage               string               `json:"stage"`
	CompressionProgress int                  `json:"compression_progress"`
	UploadProgress      int                  `json:"upload_progress"`
	Result              *SubmissionResultDTO `json:"result,omitempty"`
	Error               string               `json:"error,omitempty"`
	ErrorCode           int                  `json:"error_code,omitempty"`
	FailedStep          string               `json:"failed_step,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	FinishedAt          *time.Time           `json:"finished_at,omitempty"`
}
