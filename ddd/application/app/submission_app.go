package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"bounty-uploader/ddd/application/cqe"
	"bounty-uploader/ddd/application/dto"
	"bounty-uploader/ddd/domain/entity"
	"bounty-uploader/ddd/domain/gateway"
	"bounty-uploader/ddd/domain/port"
	"bounty-uploader/ddd/domain/service"
	"bounty-uploader/ddd/domain/vo"
	"bounty-uploader/ddd/infrastructure/backend"
	"bounty-uploader/ddd/infrastructure/engine"
	"bounty-uploader/ddd/infrastructure/reporter"
	"bounty-uploader/ddd/infrastructure/storage"
	"bounty-uploader/pkg/config"
	"bounty-uploader/pkg/errno"
	"bounty-uploader/pkg/logger"
	"bounty-uploader/pkg/metrics"
)

var (
	singleSubmissionApp SubmissionApp
	onceSubmissionApp   sync.Once
)

type SubmissionApp interface {
	// Submit 按策略压缩（失败则回退原文件）后直传并确认
	Submit(ctx context.Context, cmd *cqe.SubmitVideoCqe, listener port.ProgressListener) (*dto.SubmissionResultDTO, error)
	// Estimate 展示用的压缩预估
	Estimate(blob *entity.MediaBlob) *dto.EstimateDTO
}

type compressor interface {
	Compress(ctx context.Context, input *entity.MediaBlob, opts vo.CompressionOptions) (*entity.MediaBlob, error)
}

type uploader interface {
	Run(ctx context.Context, session *entity.UploadSession, onProgress vo.ProgressFunc) (*vo.UploadResult, error)
}

type submissionAppImpl struct {
	policy     service.CompressionPolicy
	options    vo.CompressionOptions
	compressor compressor
	uploader   uploader
	reporter   gateway.UploadResultReporter
}

// DefaultSubmissionApp wires the process-wide engine loader and HTTP clients from the global config.
func DefaultSubmissionApp() SubmissionApp {
	onceSubmissionApp.Do(func() {
		cfg := config.GetGlobalConfig()
		if cfg == nil {
			cfg = config.Default()
		}
		singleSubmissionApp = NewSubmissionAppWith(
			service.NewCompressionPolicy(cfg.Compression),
			CompressionOptionsFromConfig(cfg.Compression),
			service.NewCompressionService(engine.DefaultLoader()),
			service.NewUploadService(
				backend.NewHTTPBackend(cfg.API),
				storage.NewHTTPTransfer(cfg.Upload.TransferTimeout),
				cfg.Upload.StorageScheme,
			),
			reporter.DefaultReporter(cfg),
		)
	})
	return singleSubmissionApp
}

func NewSubmissionAppWith(policy service.CompressionPolicy, options vo.CompressionOptions, c compressor, u uploader, r gateway.UploadResultReporter) SubmissionApp {
	if r == nil {
		r = reporter.NopReporter{}
	}
	return &submissionAppImpl{
		policy:     policy,
		options:    options,
		compressor: c,
		uploader:   u,
		reporter:   r,
	}
}

// CompressionOptionsFromConfig 由配置生成压缩参数
func CompressionOptionsFromConfig(cfg config.CompressionConfig) vo.CompressionOptions {
	opts := vo.DefaultCompressionOptions()
	if cfg.MaxWidth > 0 {
		opts.MaxWidth = cfg.MaxWidth
	}
	if cfg.MaxHeight > 0 {
		opts.MaxHeight = cfg.MaxHeight
	}
	if cfg.VideoBitrate != "" {
		opts.VideoBitrate = cfg.VideoBitrate
	}
	if cfg.Quality > 0 {
		opts.QualityFactor = cfg.Quality
	}
	if cfg.Preset != "" {
		opts.Preset = cfg.Preset
	}
	return opts
}

func (a *submissionAppImpl) Estimate(blob *entity.MediaBlob) *dto.EstimateDTO {
	return dto.NewEstimateDTO(blob, a.policy)
}

func (a *submissionAppImpl) Submit(ctx context.Context, cmd *cqe.SubmitVideoCqe, listener port.ProgressListener) (*dto.SubmissionResultDTO, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	submitter, err := vo.NewSubmitter(cmd.Name, cmd.Email, cmd.PayoutHandle)
	if err != nil {
		return nil, errno.ErrMissingParam
	}
	original := cmd.Video
	notify := func(stage port.Stage) vo.ProgressFunc {
		return func(p int) {
			if listener != nil {
				listener(stage, p)
			}
		}
	}

	toUpload := original
	compressed := false
	var compressionErr error
	if a.policy.ShouldCompress(original) {
		opts := a.options
		opts.OnProgress = notify(port.StageCompressing)
		out, err := a.compressor.Compress(ctx, original, opts)
		if err != nil {
			// 压缩失败不阻塞提交，回退上传原文件
			compressionErr = err
			metrics.CompressionFallbacksTotal.Inc()
			logger.Warnf("compression failed, uploading original file=%s error=%v", original.Name(), err)
		} else {
			toUpload = out
			compressed = true
		}
	}

	session := entity.NewUploadSession(toUpload, submitter)
	result, err := a.uploader.Run(ctx, session, notify(port.StageUploading))
	if err != nil {
		a.report(ctx, failedEvent(session, compressed, err))
		return nil, err
	}

	a.report(ctx, gateway.UploadEvent{
		Event:      gateway.EventUploadConfirmed,
		FileID:     result.FileID,
		StorageURL: result.StorageURL,
		Filename:   toUpload.Name(),
		SizeBytes:  toUpload.SizeBytes(),
		Compressed: compressed,
		At:         time.Now().UTC(),
	})
	return dto.NewSubmissionResultDTO(original, session, compressed, compressionErr), nil
}

// failedEvent 失败步骤与 file_id 取自会话；凭证申请前失败时没有 file_id
func failedEvent(session *entity.UploadSession, compressed bool, err error) gateway.UploadEvent {
	blob := session.Blob()
	ev := gateway.UploadEvent{
		Event:      gateway.EventUploadFailed,
		Filename:   blob.Name(),
		SizeBytes:  blob.SizeBytes(),
		Compressed: compressed,
		Error:      err.Error(),
		At:         time.Now().UTC(),
	}
	if step := session.FailedStep(); step != "" {
		ev.Phase = string(step)
	} else if step, ok := service.FailedStep(err); ok {
		ev.Phase = string(step)
	}
	if cred := session.Credential(); cred != nil {
		ev.FileID = cred.FileID
	}
	var confirmErr *service.ConfirmationError
	if ev.FileID == "" && errors.As(err, &confirmErr) {
		ev.FileID = confirmErr.FileID
	}
	return ev
}

// report 上报失败只记录日志，不影响提交结果
func (a *submissionAppImpl) report(ctx context.Context, ev gateway.UploadEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.reporter.Report(ctx, ev); err != nil {
		logger.Warnf("upload result report failed event=%s error=%v", ev.Event, err)
	}
}
