package service

import (
	"fmt"
	"math"

	"bounty-uploader/ddd/domain/entity"
	"bounty-uploader/pkg/config"
)

// Policy defaults, also used for zero or out-of-range fields.
const (
	DefaultThresholdBytes uint64 = 15 * 1024 * 1024
	DefaultFactor                = 0.6
)

// CompressionPolicy decides whether a blob is worth transcoding before upload.
//
// The zero value is the default policy: enabled, 15 MiB threshold, factor 0.6. A zero
// ThresholdBytes or a Factor outside (0, 1] falls back to the default.
type CompressionPolicy struct {
	Disabled       bool
	ThresholdBytes uint64
	Factor         float64
}

// NewCompressionPolicy builds the policy from configuration.
func NewCompressionPolicy(cfg config.CompressionConfig) CompressionPolicy {
	p := CompressionPolicy{
		Disabled:       !cfg.Enabled,
		ThresholdBytes: cfg.ThresholdBytes,
		Factor:         cfg.Factor,
	}
	p.ThresholdBytes = p.threshold()
	p.Factor = p.factor()
	return p
}

func (p CompressionPolicy) threshold() uint64 {
	if p.ThresholdBytes == 0 {
		return DefaultThresholdBytes
	}
	return p.ThresholdBytes
}

func (p CompressionPolicy) factor() float64 {
	if p.Factor <= 0 || p.Factor > 1 {
		return DefaultFactor
	}
	return p.Factor
}

// ShouldCompress 严格大于阈值时才压缩
func (p CompressionPolicy) ShouldCompress(blob *entity.MediaBlob) bool {
	if p.Disabled || blob == nil {
		return false
	}
	return blob.SizeBytes() > p.threshold()
}

// EstimateCompressedSize 仅用于展示的粗略估计：低于阈值原样返回，否则乘以压缩系数。
func (p CompressionPolicy) EstimateCompressedSize(blob *entity.MediaBlob) uint64 {
	if blob == nil {
		return 0
	}
	size := blob.SizeBytes()
	if p.Disabled || size < p.threshold() {
		return size
	}
	return uint64(math.Round(float64(size) * p.factor()))
}

// FormatFileSize renders a byte count the way the submission form displays it.
func FormatFileSize(bytes uint64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(bytes)/1024/1024)
	}
}
