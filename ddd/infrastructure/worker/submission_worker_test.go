package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bounty-uploader/ddd/infrastructure/queue"
)

func TestSubmissionWorkerRunsJobs(t *testing.T) {
	jobs := queue.NewMemoryJobQueue(8)
	w := NewSubmissionWorker("test-worker", jobs, 2)
	assert.Equal(t, "test-worker", w.Name())
	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))

	var done atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, jobs.Enqueue(queue.Job{ID: "j", Run: func() { done.Add(1) }}))
	}
	require.Eventually(t, func() bool { return done.Load() == 5 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return w.GetStats().ProcessedJobs == 5 }, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	stats := w.GetStats()
	assert.Equal(t, 0, stats.CurrentlyRunning)
	assert.False(t, stats.StartTime.IsZero())
	assert.False(t, stats.LastJobTime.IsZero())
}

func TestSubmissionWorkerLimitsConcurrency(t *testing.T) {
	jobs := queue.NewMemoryJobQueue(8)
	w := NewSubmissionWorker("limited", jobs, 1)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	var running, peak atomic.Int32
	var done atomic.Int32
	for i := 0; i < 3; i++ {
		require.NoError(t, jobs.Enqueue(queue.Job{ID: "j", Run: func() {
			n := running.Add(1)
			if n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			done.Add(1)
		}}))
	}
	require.Eventually(t, func() bool { return done.Load() == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), peak.Load())
}

func TestSubmissionWorkerSurvivesPanic(t *testing.T) {
	jobs := queue.NewMemoryJobQueue(4)
	w := NewSubmissionWorker("panicky", jobs, 1)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	var after atomic.Bool
	require.NoError(t, jobs.Enqueue(queue.Job{ID: "boom", Run: func() { panic("boom") }}))
	require.NoError(t, jobs.Enqueue(queue.Job{ID: "ok", Run: func() { after.Store(true) }}))
	require.Eventually(t, after.Load, 2*time.Second, 5*time.Millisecond)
}

func TestSubmissionWorkerExitsWhenQueueCloses(t *testing.T) {
	jobs := queue.NewMemoryJobQueue(1)
	w := NewSubmissionWorker("closing", jobs, 2)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, jobs.Close())

	stopped := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not exit after queue close")
	}
	require.NoError(t, w.Stop())
}
