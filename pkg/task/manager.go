package task

import (
	"context"
	"fmt"
	"sync"

	"bounty-uploader/pkg/logger"
)

// BackgroundTask represents a long-running background process (sweeper, reporter flush).
type BackgroundTask interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
}

type manager struct {
	tasks   []BackgroundTask
	started []BackgroundTask
	mu      sync.Mutex
	cancel  context.CancelFunc
}

var (
	defaultManager = &manager{}
)

// Register adds a background task; should be called during assembly before StartAll.
func Register(task BackgroundTask) {
	if task == nil {
		return
	}
	defaultManager.mu.Lock()
	defer defaultManager.mu.Unlock()
	defaultManager.tasks = append(defaultManager.tasks, task)
}

// StartAll starts all registered tasks once. If one fails, those already started are stopped.
func StartAll(ctx context.Context) error {
	m := defaultManager
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return nil
	}
	var taskCtx context.Context
	taskCtx, m.cancel = context.WithCancel(ctx)
	for _, t := range m.tasks {
		if err := t.Start(taskCtx); err != nil {
			m.stopLocked()
			return fmt.Errorf("start background task %s: %w", t.Name(), err)
		}
		m.started = append(m.started, t)
		logger.Debugf("background task started name=%s", t.Name())
	}
	return nil
}

// StopAll stops running tasks in reverse start order.
func StopAll() {
	defaultManager.mu.Lock()
	defer defaultManager.mu.Unlock()
	defaultManager.stopLocked()
}

func (m *manager) stopLocked() {
	if m.cancel != nil {
		m.cancel()
	}
	for i := len(m.started) - 1; i >= 0; i-- {
		if err := m.started[i].Stop(); err != nil {
			logger.Warnf("background task stop failed name=%s error=%v", m.started[i].Name(), err)
		}
	}
	m.started = nil
	m.cancel = nil
}
