package vo

import (
	"errors"
	"strings"
)

// Submitter 提交者信息
type Submitter struct {
	Name         string
	Email        string
	PayoutHandle string
}

// NewSubmitter 规范化提交者信息：去除首尾空白、去掉支付账号前导 @，三个字段都必填。
func NewSubmitter(name, email, payoutHandle string) (Submitter, error) {
	s := Submitter{
		Name:         strings.TrimSpace(name),
		Email:        strings.TrimSpace(email),
		PayoutHandle: strings.TrimPrefix(strings.TrimSpace(payoutHandle), "@"),
	}
	if s.Name == "" || s.Email == "" || s.PayoutHandle == "" {
		return Submitter{}, errors.New("name, email and payout handle are required")
	}
	return s, nil
}

// UploadCredential 一次性、限时的直传凭证
type UploadCredential struct {
	UploadURL  string `json:"upload_url"`
	FileID     string `json:"file_id"`
	StorageKey string `json:"s3_filename"`
}

// Confirmation 后端确认响应
type Confirmation struct {
	Message string `json:"message"`
	FileID  string `json:"file_id"`
	Status  string `json:"status"`
}

// UploadResult 直传成功结果
type UploadResult struct {
	Message      string `json:"message"`
	FileID       string `json:"file_id"`
	StorageURL   string `json:"storage_url,omitempty"`
	ReviewStatus string `json:"review_status,omitempty"`
}

// UploadSuccessMessage is the fixed message returned on a confirmed upload.
const UploadSuccessMessage = "Video uploaded successfully"
