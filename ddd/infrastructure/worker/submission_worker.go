package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bounty-uploader/ddd/infrastructure/queue"
	"bounty-uploader/pkg/logger"
)

// WorkerStats 工作器统计信息
type WorkerStats struct {
	ProcessedJobs    uint64
	CurrentlyRunning int
	StartTime        time.Time
	LastJobTime      time.Time
}

// SubmissionWorker 固定数量的协程消费提交队列，限制同时进行的压缩数
type SubmissionWorker struct {
	id          string
	jobs        queue.JobQueue
	workerCount int
	running     bool
	cancel      context.CancelFunc
	stats       WorkerStats
	mu          sync.RWMutex
	wg          sync.WaitGroup
}

// NewSubmissionWorker 创建提交工作器
func NewSubmissionWorker(id string, jobs queue.JobQueue, workerCount int) *SubmissionWorker {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &SubmissionWorker{
		id:          id,
		jobs:        jobs,
		workerCount: workerCount,
	}
}

func (w *SubmissionWorker) Name() string { return w.id }

// Start 启动工作器
func (w *SubmissionWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker %s is already running", w.id)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.stats.StartTime = time.Now()

	logger.Infof("Starting submission worker id=%s goroutines=%d", w.id, w.workerCount)
	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go w.workerLoop(workerCtx, i)
	}
	return nil
}

// Stop waits for in-flight jobs; queued jobs that were not started are dropped.
func (w *SubmissionWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.cancel()
	w.mu.Unlock()

	w.wg.Wait()

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	logger.Infof("Submission worker stopped id=%s", w.id)
	return nil
}

// GetStats 获取工作器统计信息
func (w *SubmissionWorker) GetStats() WorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *SubmissionWorker) workerLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()
	logger.Debugf("worker started id=%s-%d", w.id, workerID)
	defer logger.Debugf("worker stopped id=%s-%d", w.id, workerID)

	for {
		job, err := w.jobs.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, queue.ErrQueueClosed) {
				return
			}
			logger.Warnf("worker %s-%d failed to dequeue job: %v", w.id, workerID, err)
			continue
		}
		w.process(job, workerID)
	}
}

func (w *SubmissionWorker) process(job queue.Job, workerID int) {
	w.updateStats(func(s *WorkerStats) { s.CurrentlyRunning++ })
	defer w.updateStats(func(s *WorkerStats) {
		s.CurrentlyRunning--
		s.ProcessedJobs++
		s.LastJobTime = time.Now()
	})
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("submission job panicked id=%s worker=%s-%d panic=%v", job.ID, w.id, workerID, r)
		}
	}()

	logger.Debugf("worker %s-%d processing job=%s", w.id, workerID, job.ID)
	job.Run()
}

func (w *SubmissionWorker) updateStats(fn func(*WorkerStats)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.stats)
}
