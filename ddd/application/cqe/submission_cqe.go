package cqe

import (
	"strings"

	"bounty-uploader/ddd/domain/entity"
	"bounty-uploader/pkg/errno"
)

// SubmitVideoCqe 提交视频命令
type SubmitVideoCqe struct {
	Video        *entity.MediaBlob `form:"-"`
	Name         string            `form:"name" binding:"required"`
	Email        string            `form:"email" binding:"required"`
	PayoutHandle string            `form:"venmo_id" binding:"required"`
}

func (c *SubmitVideoCqe) Validate() error {
	if c.Video == nil || c.Video.SizeBytes() == 0 {
		return errno.ErrFileSizeIllegal
	}
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" ||
		strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(c.PayoutHandle), "@")) == "" {
		return errno.ErrMissingParam
	}
	return nil
}
