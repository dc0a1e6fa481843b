package http

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"bounty-uploader/ddd/application/app"
	"bounty-uploader/ddd/application/dto"
	"bounty-uploader/ddd/domain/port"
	"bounty-uploader/ddd/domain/service"
	"bounty-uploader/pkg/logger"
)

// SubmissionTracker 记录后台提交的进度；结束超过 retention 的记录由 Sweep 清理
type SubmissionTracker struct {
	mu        sync.RWMutex
	items     map[string]*dto.SubmissionStatusDTO
	retention time.Duration
	now       func() time.Time
}

func NewSubmissionTracker(retention time.Duration) *SubmissionTracker {
	return &SubmissionTracker{
		items:     make(map[string]*dto.SubmissionStatusDTO),
		retention: retention,
		now:       time.Now,
	}
}

// Create registers a queued submission and returns its id.
func (t *SubmissionTracker) Create(filename string) string {
	id := uuid.NewString()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[id] = &dto.SubmissionStatusDTO{
		SubmissionID: id,
		Filename:     filename,
		Stage:        dto.SubmissionStageQueued,
		CreatedAt:    t.now().UTC(),
	}
	return id
}

// Listener returns a progress listener bound to id.
func (t *SubmissionTracker) Listener(id string) port.ProgressListener {
	return func(stage port.Stage, progress int) {
		t.update(id, func(s *dto.SubmissionStatusDTO) {
			switch stage {
			case port.StageCompressing:
				s.Stage = dto.SubmissionStageCompressing
				s.CompressionProgress = progress
			case port.StageUploading:
				s.Stage = dto.SubmissionStageUploading
				s.UploadProgress = progress
			}
		})
	}
}

// Complete records the final result or error.
func (t *SubmissionTracker) Complete(id string, result *dto.SubmissionResultDTO, err error) {
	t.update(id, func(s *dto.SubmissionStatusDTO) {
		finished := t.now().UTC()
		s.FinishedAt = &finished
		if err != nil {
			s.Stage = dto.SubmissionStageFailed
			s.Error = err.Error()
			s.ErrorCode = app.ErrnoOf(err).Code
			if step, ok := service.FailedStep(err); ok {
				s.FailedStep = string(step)
			}
			return
		}
		s.Stage = dto.SubmissionStageCompleted
		s.Result = result
	})
}

// Get returns a snapshot of the submission.
func (t *SubmissionTracker) Get(id string) (dto.SubmissionStatusDTO, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.items[id]
	if !ok {
		return dto.SubmissionStatusDTO{}, false
	}
	return *s, true
}

// Remove forgets a submission that never started.
func (t *SubmissionTracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.items, id)
}

// Sweep drops finished submissions older than retention and returns how many were dropped.
func (t *SubmissionTracker) Sweep() int {
	cutoff := t.now().Add(-t.retention)
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id, s := range t.items {
		if s.FinishedAt != nil && s.FinishedAt.Before(cutoff) {
			delete(t.items, id)
			n++
		}
	}
	return n
}

func (t *SubmissionTracker) update(id string, fn func(s *dto.SubmissionStatusDTO)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.items[id]; ok {
		fn(s)
	}
}

// SweepTask runs Sweep periodically as a background task.
type SweepTask struct {
	tracker  *SubmissionTracker
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSweepTask(tracker *SubmissionTracker, interval time.Duration) *SweepTask {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweepTask{tracker: tracker, interval: interval}
}

func (s *SweepTask) Name() string { return "submission-sweeper" }

func (s *SweepTask) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.tracker.Sweep(); n > 0 {
					logger.Debugf("swept finished submissions count=%d", n)
				}
			}
		}
	}()
	return nil
}

func (s *SweepTask) Stop() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
	}
	return nil
}
