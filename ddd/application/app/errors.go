package app

import (
	"errors"

	"bounty-uploader/ddd/domain/service"
	"bounty-uploader/pkg/errno"
)

// ErrnoOf maps a submission failure onto the business error code shown to callers.
func ErrnoOf(err error) *errno.Errno {
	if err == nil {
		return nil
	}
	var (
		e           *errno.Errno
		loadErr     *service.EngineLoadError
		compressErr *service.CompressionError
		credErr     *service.CredentialRequestError
		transferErr *service.TransferError
		confirmErr  *service.ConfirmationError
	)
	switch {
	case errors.As(err, &e):
		return e
	case errors.As(err, &credErr):
		return errno.ErrCredentialRequest
	case errors.As(err, &transferErr):
		return errno.ErrTransfer
	case errors.As(err, &confirmErr):
		return errno.ErrConfirmation
	case errors.As(err, &loadErr):
		return errno.ErrEngineLoad
	case errors.As(err, &compressErr):
		return errno.ErrCompression
	default:
		return errno.ErrUnknown
	}
}
