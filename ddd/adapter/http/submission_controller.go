package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"bounty-uploader/ddd/application/app"
	"bounty-uploader/ddd/application/cqe"
	"bounty-uploader/ddd/domain/entity"
	"bounty-uploader/ddd/infrastructure/queue"
	"bounty-uploader/ddd/infrastructure/worker"
	"bounty-uploader/pkg/config"
	"bounty-uploader/pkg/errno"
	"bounty-uploader/pkg/logger"
	"bounty-uploader/pkg/manager"
	"bounty-uploader/pkg/metrics"
	"bounty-uploader/pkg/middleware"
	"bounty-uploader/pkg/restapi"
	"bounty-uploader/pkg/task"
)

const (
	multipartMemory = 32 << 20
	maxBytesMessage = "http: request body too large"
)

var (
	submissionControllerOnce      sync.Once
	singletonSubmissionController *SubmissionController
)

// SubmissionControllerPlugin registers the default controller with the manager.
type SubmissionControllerPlugin struct{}

func (p *SubmissionControllerPlugin) Name() string {
	return "submissionControllerPlugin"
}

func (p *SubmissionControllerPlugin) MustCreateController() manager.Controller {
	submissionControllerOnce.Do(func() {
		cfg := config.GetGlobalConfig()
		if cfg == nil {
			cfg = config.Default()
		}
		tracker := NewSubmissionTracker(cfg.Intake.Retention)
		jobs := queue.NewMemoryJobQueue(cfg.Intake.QueueCapacity)
		task.Register(worker.NewSubmissionWorker("submission-worker", jobs, cfg.Intake.Workers))
		task.Register(NewSweepTask(tracker, cfg.Intake.Retention/4))
		singletonSubmissionController = NewSubmissionController(context.Background(), app.DefaultSubmissionApp(), tracker, jobs, cfg.Intake.MaxBodyBytes)
	})
	return singletonSubmissionController
}

func init() {
	manager.RegisterControllerPlugin(&SubmissionControllerPlugin{})
}

// SubmissionController 接收视频提交并在后台处理
type SubmissionController struct {
	baseCtx      context.Context
	app          app.SubmissionApp
	tracker      *SubmissionTracker
	jobs         queue.JobQueue
	maxBodyBytes int64
}

// NewSubmissionController binds background submissions to baseCtx rather than the request.
func NewSubmissionController(baseCtx context.Context, a app.SubmissionApp, tracker *SubmissionTracker, jobs queue.JobQueue, maxBodyBytes int64) *SubmissionController {
	return &SubmissionController{
		baseCtx:      baseCtx,
		app:          a,
		tracker:      tracker,
		jobs:         jobs,
		maxBodyBytes: maxBodyBytes,
	}
}

func (c *SubmissionController) RegisterRoutes(group *gin.RouterGroup) {
	submissions := group.Group("/submissions")
	{
		submissions.POST("", c.CreateSubmission)            // 提交视频
		submissions.GET("/:submission_id", c.GetSubmission) // 查询进度
	}
}

// CreateSubmission 读取 multipart 表单，校验后异步提交，返回 202
func (c *SubmissionController) CreateSubmission(ctx *gin.Context) {
	if c.maxBodyBytes > 0 {
		if ctx.Request.ContentLength > c.maxBodyBytes {
			restapi.Failed(ctx, errno.ErrFileSizeIllegal)
			return
		}
		ctx.Request.Body = stdhttp.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxBodyBytes)
	}

	// 先自行解析表单，超限错误在 multipart 内部会丢失类型
	if err := ctx.Request.ParseMultipartForm(multipartMemory); err != nil {
		if bodyTooLarge(err) {
			restapi.Failed(ctx, errno.ErrFileSizeIllegal)
			return
		}
		restapi.Failed(ctx, errno.ErrMissingParam)
		return
	}

	var cmd cqe.SubmitVideoCqe
	if err := ctx.ShouldBind(&cmd); err != nil {
		restapi.Failed(ctx, errno.ErrMissingParam)
		return
	}

	blob, err := readVideo(ctx)
	if err != nil {
		if bodyTooLarge(err) {
			restapi.Failed(ctx, errno.ErrFileSizeIllegal)
			return
		}
		logger.Warnf("submission rejected request_id=%s error=%v", ctx.GetString(middleware.RequestIDKey), err)
		restapi.Failed(ctx, errno.ErrInvalidParam)
		return
	}
	cmd.Video = blob
	if err := cmd.Validate(); err != nil {
		restapi.Failed(ctx, err)
		return
	}

	id := c.tracker.Create(blob.Name())
	err = c.jobs.Enqueue(queue.Job{ID: id, Run: func() {
		metrics.SubmissionsInFlight.Inc()
		defer metrics.SubmissionsInFlight.Dec()
		result, err := c.app.Submit(c.baseCtx, &cmd, c.tracker.Listener(id))
		c.tracker.Complete(id, result, err)
		if err != nil {
			logger.Errorf("submission failed submission_id=%s error=%v", id, err)
		}
	}})
	if err != nil {
		c.tracker.Remove(id)
		logger.Warnf("submission rejected submission_id=%s error=%v", id, err)
		restapi.Failed(ctx, errno.ErrServerBusy)
		return
	}

	restapi.Accepted(ctx, gin.H{"submission_id": id})
}

// GetSubmission 查询提交进度
func (c *SubmissionController) GetSubmission(ctx *gin.Context) {
	status, ok := c.tracker.Get(ctx.Param("submission_id"))
	if !ok {
		restapi.Failed(ctx, errno.ErrSubmissionNotFound)
		return
	}
	restapi.Success(ctx, status)
}

// bodyTooLarge matches MaxBytesReader failures, typed or flattened into a message.
func bodyTooLarge(err error) bool {
	var tooLarge *stdhttp.MaxBytesError
	if errors.As(err, &tooLarge) {
		return true
	}
	return strings.Contains(err.Error(), maxBytesMessage)
}

func readVideo(ctx *gin.Context) (*entity.MediaBlob, error) {
	fh, err := ctx.FormFile("video")
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return entity.DetectMediaBlob(fh.Filename, data, fh.Header.Get("Content-Type")), nil
}
