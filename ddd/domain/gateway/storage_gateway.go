package gateway

import (
	"context"
	"io"
)

// TransferRequest describes one direct write to storage.
type TransferRequest struct {
	URL         string
	ContentType string
	Body        io.Reader
	Size        int64
	// OnProgress receives the cumulative bytes handed to the transport and the total.
	OnProgress func(loaded, total int64)
}

// StorageTransfer 存储直传网关
type StorageTransfer interface {
	// Transfer writes the body to the pre-signed URL and returns the HTTP status observed.
	// A non-nil error means the transport failed before a response was received.
	Transfer(ctx context.Context, req TransferRequest) (status int, err error)
}
