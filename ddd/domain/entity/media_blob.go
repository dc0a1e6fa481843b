package entity

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MediaBlob 不可变的媒体字节缓冲及其元数据
type MediaBlob struct {
	name     string // 文件名
	mimeType string // MIME 类型
	data     []byte // 内容
}

// NewMediaBlob 创建媒体对象，data 的所有权转移给 MediaBlob，调用方之后不得修改。
func NewMediaBlob(name, mimeType string, data []byte) *MediaBlob {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &MediaBlob{
		name:     name,
		mimeType: mimeType,
		data:     data,
	}
}

// DetectMediaBlob 按内容嗅探 MIME 类型；无法识别时使用声明的类型。
func DetectMediaBlob(name string, data []byte, declared string) *MediaBlob {
	mt := mimetype.Detect(data)
	if mt.Is("application/octet-stream") && declared != "" {
		return NewMediaBlob(name, declared, data)
	}
	mime := mt.String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return NewMediaBlob(name, mime, data)
}

// Getters
func (b *MediaBlob) Name() string      { return b.name }
func (b *MediaBlob) MimeType() string  { return b.mimeType }
func (b *MediaBlob) SizeBytes() uint64 { return uint64(len(b.data)) }

// Bytes returns the underlying buffer. Callers must treat it as read-only.
func (b *MediaBlob) Bytes() []byte { return b.data }

// Reader returns a fresh reader over the content.
func (b *MediaBlob) Reader() io.Reader { return bytes.NewReader(b.data) }

// Extension returns the name's extension including the dot, or "" when absent.
func (b *MediaBlob) Extension() string {
	return filepath.Ext(b.name)
}

// WithExtension 返回替换扩展名后的文件名；原名没有扩展名时直接追加。
func (b *MediaBlob) WithExtension(ext string) string {
	return strings.TrimSuffix(b.name, b.Extension()) + ext
}
