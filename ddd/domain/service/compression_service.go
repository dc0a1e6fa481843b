package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"bounty-uploader/ddd/domain/entity"
	"bounty-uploader/ddd/domain/port"
	"bounty-uploader/ddd/domain/vo"
	"bounty-uploader/pkg/logger"
	"bounty-uploader/pkg/metrics"
)

// Fixed progress checkpoints reported by Compress.
const (
	progressStart       = 0
	progressEngineReady = 10
	progressStaged      = 20
	progressTranscoded  = 90
	progressRead        = 95
	progressDone        = 100
)

// CompressionService 压缩执行器：加载引擎、暂存输入、转码、读取输出、清理暂存文件。
type CompressionService struct {
	engines port.EngineProvider
	newID   func() string
}

// NewCompressionService 创建压缩执行器
func NewCompressionService(engines port.EngineProvider) *CompressionService {
	return &CompressionService{
		engines: engines,
		newID:   uuid.NewString,
	}
}

// Compress transcodes input into a bounded mp4. It never substitutes the input for the
// output: any failure is returned as *CompressionError and the caller decides what to do.
//
// ctx bounds the wait for the engine. Once the engine is acquired the transcode runs to
// completion or failure regardless of ctx.
func (s *CompressionService) Compress(ctx context.Context, input *entity.MediaBlob, opts vo.CompressionOptions) (*entity.MediaBlob, error) {
	if input == nil {
		return nil, &CompressionError{Stage: CompressionStageValidate, Err: errors.New("nil input")}
	}
	if err := opts.Validate(); err != nil {
		return nil, &CompressionError{Stage: CompressionStageValidate, Err: err}
	}

	started := time.Now()
	progress := newProgressGuard(opts.OnProgress)
	fail := func(stage CompressionStage, err error) (*entity.MediaBlob, error) {
		progress.close()
		metrics.CompressionsTotal.WithLabelValues(metrics.StatusFailure).Inc()
		logger.Error("Video compression failed", map[string]interface{}{
			"file":  input.Name(),
			"stage": string(stage),
			"error": err.Error(),
		})
		return nil, &CompressionError{Stage: stage, Err: err}
	}

	logger.Infof("start compression file=%s size=%s target=%dx%d bitrate=%s crf=%d preset=%s",
		input.Name(), humanize.IBytes(input.SizeBytes()), opts.MaxWidth, opts.MaxHeight,
		opts.VideoBitrate, opts.QualityFactor, opts.Preset)

	progress.emit(progressStart)
	engine, err := s.engines.GetEngine(ctx)
	if err != nil {
		return fail(CompressionStageLoad, err)
	}
	progress.emit(progressEngineReady)

	// 引擎就绪后不再响应调用方取消
	runCtx := context.WithoutCancel(ctx)

	id := s.newID()
	inputName := "input-" + id + input.Extension()
	outputName := "output-" + id + vo.OutputExtension

	if err := engine.WriteFile(runCtx, inputName, input.Bytes()); err != nil {
		s.cleanup(runCtx, engine, inputName)
		return fail(CompressionStageStage, err)
	}
	progress.emit(progressStaged)

	args := opts.TranscodeArgs(inputName, outputName)
	logger.Debug("Running transcode", map[string]interface{}{"args": args})
	err = engine.Exec(runCtx, args, func(ratio float64) {
		progress.emit(RescaleProgress(ratio, progressStaged, progressTranscoded))
	})
	if err != nil {
		s.cleanup(runCtx, engine, inputName, outputName)
		return fail(CompressionStageTranscode, err)
	}
	progress.emit(progressTranscoded)

	data, err := engine.ReadFile(runCtx, outputName)
	if err != nil {
		s.cleanup(runCtx, engine, inputName, outputName)
		return fail(CompressionStageRead, err)
	}
	output := entity.NewMediaBlob(input.WithExtension(vo.OutputExtension), vo.OutputMimeType, data)
	progress.emit(progressRead)

	s.cleanup(runCtx, engine, inputName, outputName)
	progress.emit(progressDone)

	metrics.CompressionsTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	metrics.CompressionDuration.Observe(time.Since(started).Seconds())
	if output.SizeBytes() < input.SizeBytes() {
		metrics.CompressionSavedBytes.Add(float64(input.SizeBytes() - output.SizeBytes()))
	}
	logger.Info("Video compression complete", map[string]interface{}{
		"input":    input.Name(),
		"output":   output.Name(),
		"original": humanize.IBytes(input.SizeBytes()),
		"result":   humanize.IBytes(output.SizeBytes()),
		"duration": time.Since(started).String(),
	})
	return output, nil
}

// cleanup removes staged files; failures are logged only.
func (s *CompressionService) cleanup(ctx context.Context, engine port.Engine, names ...string) {
	for _, name := range names {
		if err := engine.DeleteFile(ctx, name); err != nil {
			logger.Warnf("failed to remove staged file name=%s error=%s", name, err.Error())
		}
	}
}

// RescaleProgress maps an engine ratio in [0,1] onto the integer range [lo,hi].
func RescaleProgress(ratio float64, lo, hi int) int {
	if math.IsNaN(ratio) || ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return lo + int(math.Round(ratio*float64(hi-lo)))
}

// progressGuard forwards strictly increasing values in 0..100 and goes silent once closed.
type progressGuard struct {
	mu     sync.Mutex
	cb     vo.ProgressFunc
	last   int
	closed bool
}

func newProgressGuard(cb vo.ProgressFunc) *progressGuard {
	return &progressGuard{cb: cb, last: -1}
}

func (g *progressGuard) emit(p int) {
	if g.cb == nil {
		return
	}
	if p > 100 {
		p = 100
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || p <= g.last {
		return
	}
	g.last = p
	g.cb(p)
}

func (g *progressGuard) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}
