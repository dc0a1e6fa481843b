package engine

import (
	"context"
	"sync"
	"time"

	"bounty-uploader/ddd/domain/port"
	"bounty-uploader/ddd/domain/service"
	"bounty-uploader/pkg/config"
	"bounty-uploader/pkg/logger"
	"bounty-uploader/pkg/metrics"
)

// State of the shared engine handle.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Hooks are bound to the engine at load time. They observe every Exec for logging only.
type Hooks struct {
	OnLog      func(line string)
	OnProgress func(ratio float64)
}

// Initializer fetches and initializes one engine instance.
type Initializer interface {
	Initialize(ctx context.Context, hooks Hooks) (port.Engine, error)
}

// InitializerFunc adapts a function to Initializer.
type InitializerFunc func(ctx context.Context, hooks Hooks) (port.Engine, error)

func (f InitializerFunc) Initialize(ctx context.Context, hooks Hooks) (port.Engine, error) {
	return f(ctx, hooks)
}

// inflight is one load attempt; done is closed once engine/err are set.
type inflight struct {
	done   chan struct{}
	engine port.Engine
	err    error
}

// Loader lazily initializes a single shared engine. At most one load runs at a time and
// every caller that arrives during a load receives that load's outcome.
type Loader struct {
	init Initializer

	mu      sync.Mutex
	state   State
	engine  port.Engine
	current *inflight
}

// NewLoader 创建引擎加载器
func NewLoader(init Initializer) *Loader {
	return &Loader{init: init}
}

var (
	defaultLoaderOnce sync.Once
	defaultLoader     *Loader
)

// DefaultLoader 返回进程级共享的 ffmpeg 引擎加载器
func DefaultLoader() *Loader {
	defaultLoaderOnce.Do(func() {
		cfg := config.GetGlobalConfig()
		if cfg == nil {
			cfg = config.Default()
		}
		defaultLoader = NewLoader(NewFFmpegInitializer(cfg.Engine))
	})
	return defaultLoader
}

// State returns the current lifecycle state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// GetEngine returns the ready engine, joining or starting a load as needed. A caller whose
// ctx ends while waiting gets an error; the load itself keeps running for the others.
func (l *Loader) GetEngine(ctx context.Context) (port.Engine, error) {
	l.mu.Lock()
	switch l.state {
	case StateReady:
		e := l.engine
		l.mu.Unlock()
		return e, nil
	case StateUnloaded:
		l.current = &inflight{done: make(chan struct{})}
		l.state = StateLoading
		go l.load(context.WithoutCancel(ctx), l.current)
	}
	attempt := l.current
	l.mu.Unlock()

	select {
	case <-attempt.done:
		if attempt.err != nil {
			return nil, attempt.err
		}
		return attempt.engine, nil
	case <-ctx.Done():
		return nil, &service.EngineLoadError{Err: ctx.Err()}
	}
}

func (l *Loader) load(ctx context.Context, attempt *inflight) {
	started := time.Now()
	logger.Infof("Loading transcoding engine...")

	e, err := l.init.Initialize(ctx, Hooks{
		OnLog: func(line string) {
			logger.Debug("engine log", map[string]interface{}{"line": line})
		},
		OnProgress: func(ratio float64) {
			logger.Debug("engine progress", map[string]interface{}{"percent": int(ratio * 100)})
		},
	})

	l.mu.Lock()
	if err != nil {
		l.state = StateUnloaded
		attempt.err = &service.EngineLoadError{Err: err}
		metrics.EngineLoadsTotal.WithLabelValues(metrics.StatusFailure).Inc()
		logger.Errorf("failed to load transcoding engine error=%v", err)
	} else {
		l.state = StateReady
		l.engine = e
		attempt.engine = e
		metrics.EngineLoadsTotal.WithLabelValues(metrics.StatusSuccess).Inc()
		metrics.EngineLoadDuration.Observe(time.Since(started).Seconds())
		logger.Infof("Transcoding engine loaded duration=%s", time.Since(started))
	}
	l.current = nil
	l.mu.Unlock()
	close(attempt.done)
}
