package observability

import (
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/grafana/pyroscope-go"

	"bounty-uploader/pkg/logger"
)

var (
	profilerMu sync.Mutex
	profiler   *pyroscope.Profiler
)

// StartProfiling 设置 PYROSCOPE_SERVER_ADDRESS 时开启持续性能分析，否则什么也不做
func StartProfiling(appName string) {
	addr := strings.TrimSpace(os.Getenv("PYROSCOPE_SERVER_ADDRESS"))
	if addr == "" {
		return
	}
	StartProfilingAt(appName, addr)
}

// StartProfilingAt starts profiling against addr; a second call is a no-op.
func StartProfilingAt(appName, addr string) {
	profilerMu.Lock()
	defer profilerMu.Unlock()
	if profiler != nil || addr == "" {
		return
	}

	runtime.SetMutexProfileFraction(5)
	runtime.SetBlockProfileRate(5)

	p, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   addr,
		Tags:            map[string]string{"hostname": hostname()},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount,
			pyroscope.ProfileBlockDuration,
		},
	})
	if err != nil {
		logger.Warnf("pyroscope start failed server=%s error=%v", addr, err)
		return
	}
	profiler = p
	logger.Infof("pyroscope profiling enabled app=%s server=%s", appName, addr)
}

// StopProfiling flushes and stops the profiler if it is running.
func StopProfiling() {
	profilerMu.Lock()
	defer profilerMu.Unlock()
	if profiler == nil {
		return
	}
	if err := profiler.Stop(); err != nil {
		logger.Warnf("pyroscope stop failed error=%v", err)
	}
	profiler = nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
