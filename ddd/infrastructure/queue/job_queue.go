package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Job 一次后台提交；Run 自带生命周期，不依赖 worker 的 ctx
type Job struct {
	ID  string
	Run func()
}

// JobQueue 任务队列接口
type JobQueue interface {
	// Enqueue 非阻塞入队，队列满时返回 ErrQueueFull
	Enqueue(job Job) error
	// Dequeue 出队任务（阻塞）
	Dequeue(ctx context.Context) (Job, error)
	Size() int
	Close() error
}

// MemoryJobQueue 基于内存的任务队列实现
type MemoryJobQueue struct {
	queue    chan Job
	closed   bool
	mu       sync.RWMutex
	enqueued atomic.Uint64
	dequeued atomic.Uint64
}

// NewMemoryJobQueue 创建内存任务队列
func NewMemoryJobQueue(capacity int) *MemoryJobQueue {
	if capacity <= 0 {
		capacity = 16
	}
	return &MemoryJobQueue{queue: make(chan Job, capacity)}
}

func (q *MemoryJobQueue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	if job.Run == nil {
		return errors.New("job cannot be nil")
	}
	select {
	case q.queue <- job:
		q.enqueued.Add(1)
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryJobQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case <-ctx.Done():
		return Job{}, ctx.Err()
	case job, ok := <-q.queue:
		if !ok {
			return Job{}, ErrQueueClosed
		}
		q.dequeued.Add(1)
		return job, nil
	}
}

func (q *MemoryJobQueue) Size() int {
	return len(q.queue)
}

// Close stops accepting jobs; queued jobs can still be dequeued.
func (q *MemoryJobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.queue)
	return nil
}
