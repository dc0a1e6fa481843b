package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"bounty-uploader/pkg/config"
)

// Logger 日志服务，封装 logrus
type Logger struct {
	entry *logrus.Logger
	file  *os.File
}

var (
	globalMu     sync.RWMutex
	globalLogger = newDefault()
)

func newDefault() *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return &Logger{entry: l}
}

// NewLogger 根据配置创建日志服务
func NewLogger(cfg *config.Config) *Logger {
	l := logrus.New()
	if cfg == nil {
		return &Logger{entry: l}
	}

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Log.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	out := &Logger{entry: l}
	switch strings.ToLower(cfg.Log.Output) {
	case "stdout":
		l.SetOutput(os.Stdout)
	case "file":
		f, err := os.OpenFile(cfg.Log.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			l.SetOutput(os.Stderr)
			l.Warnf("open log file failed, falling back to stderr file=%s error=%v", cfg.Log.Filename, err)
			break
		}
		l.SetOutput(f)
		out.file = f
	default:
		l.SetOutput(os.Stderr)
	}
	return out
}

// NewWithWriter 创建写入指定 writer 的日志服务，测试中使用
func NewWithWriter(w io.Writer, level logrus.Level) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.JSONFormatter{})
	return &Logger{entry: l}
}

// SetGlobalLogger 设置全局日志服务
func SetGlobalLogger(l *Logger) {
	if l == nil {
		return
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

func current() *logrus.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger.entry
}

// Raw exposes the underlying logrus logger.
func (l *Logger) Raw() *logrus.Logger {
	return l.entry
}

// Close 关闭日志文件
func (l *Logger) Close() {
	if l != nil && l.file != nil {
		_ = l.file.Close()
	}
}

func withFields(fields []map[string]interface{}) *logrus.Entry {
	entry := logrus.NewEntry(current())
	for _, f := range fields {
		if len(f) > 0 {
			entry = entry.WithFields(logrus.Fields(f))
		}
	}
	return entry
}

func Debug(msg string, fields ...map[string]interface{}) {
	withFields(fields).Debug(msg)
}

func Info(msg string, fields ...map[string]interface{}) {
	withFields(fields).Info(msg)
}

func Warn(msg string, fields ...map[string]interface{}) {
	withFields(fields).Warn(msg)
}

func Error(msg string, fields ...map[string]interface{}) {
	withFields(fields).Error(msg)
}

func Debugf(format string, args ...interface{}) {
	current().Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	current().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	current().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	current().Errorf(format, args...)
}

// Fatal 记录错误并退出进程
func Fatal(msg string) {
	current().Fatal(msg)
}

// IsDebugEnabled reports whether debug entries would be emitted.
func IsDebugEnabled() bool {
	return current().IsLevelEnabled(logrus.DebugLevel)
}
