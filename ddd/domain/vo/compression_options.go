package vo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// 输出容器固定为 mp4/H.264
const (
	OutputVideoCodec = "libx264"
	OutputExtension  = ".mp4"
	OutputMimeType   = "video/mp4"
)

// ProgressFunc receives an integer percentage in 0..100.
type ProgressFunc func(progress int)

// CompressionOptions 压缩参数值对象，每次调用构造，只读
type CompressionOptions struct {
	MaxWidth      int
	MaxHeight     int
	VideoBitrate  string
	QualityFactor int
	Preset        string
	OnProgress    ProgressFunc
}

// DefaultCompressionOptions 默认压缩参数：480x480、250k、crf 38、ultrafast
func DefaultCompressionOptions() CompressionOptions {
	return CompressionOptions{
		MaxWidth:      480,
		MaxHeight:     480,
		VideoBitrate:  "250k",
		QualityFactor: 38,
		Preset:        "ultrafast",
	}
}

var validPresets = []string{
	"ultrafast", "superfast", "veryfast", "faster", "fast",
	"medium", "slow", "slower", "veryslow",
}

// Validate 校验压缩参数
func (o CompressionOptions) Validate() error {
	if o.MaxWidth <= 0 || o.MaxHeight <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", o.MaxWidth, o.MaxHeight)
	}
	if o.QualityFactor < 0 || o.QualityFactor > 51 {
		return fmt.Errorf("invalid quality factor: %d, supported: 0-51", o.QualityFactor)
	}
	if err := validateBitrate(o.VideoBitrate); err != nil {
		return err
	}
	return validatePreset(o.Preset)
}

func validatePreset(preset string) error {
	for _, valid := range validPresets {
		if preset == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid preset: %s, supported: %v", preset, validPresets)
}

// validateBitrate 验证码率格式
func validateBitrate(bitrate string) error {
	if bitrate == "" {
		return errors.New("bitrate cannot be empty")
	}
	// 支持格式: 250k, 1M, 1.5M, 500000
	numStr := bitrate
	switch {
	case strings.HasSuffix(bitrate, "k"), strings.HasSuffix(bitrate, "K"),
		strings.HasSuffix(bitrate, "m"), strings.HasSuffix(bitrate, "M"):
		numStr = bitrate[:len(bitrate)-1]
	}
	n, err := strconv.ParseFloat(numStr, 64)
	if err != nil || !(n > 0) || math.IsInf(n, 0) {
		return fmt.Errorf("invalid bitrate format: %s", bitrate)
	}
	return nil
}

// TranscodeArgs 构造固定的转码命令参数：等比缩放后居中填充到目标尺寸，去除音轨，moov 前置。
func (o CompressionOptions) TranscodeArgs(input, output string) []string {
	w, h := o.MaxWidth, o.MaxHeight
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		w, h, w, h,
	)
	return []string{
		"-i", input,
		"-vf", filter,
		"-c:v", OutputVideoCodec,
		"-crf", strconv.Itoa(o.QualityFactor),
		"-preset", o.Preset,
		"-b:v", o.VideoBitrate,
		"-an",
		"-movflags", "+faststart",
		"-y",
		output,
	}
}
