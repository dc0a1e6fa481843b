package gateway

import (
	"context"
	"time"
)

// UploadEvent is the terminal outcome of one submission.
type UploadEvent struct {
	Event      string    `json:"event"`
	FileID     string    `json:"file_id,omitempty"`
	StorageURL string    `json:"storage_url,omitempty"`
	Filename   string    `json:"filename"`
	SizeBytes  uint64    `json:"size_bytes"`
	Compressed bool      `json:"compressed"`
	Phase      string    `json:"phase,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

const (
	EventUploadConfirmed = "upload.confirmed"
	EventUploadFailed    = "upload.failed"
)

// UploadResultReporter notifies downstream consumers about submission outcomes.
type UploadResultReporter interface {
	Report(ctx context.Context, event UploadEvent) error
}
