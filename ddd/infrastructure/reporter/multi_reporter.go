package reporter

import (
	"context"
	"errors"

	"bounty-uploader/ddd/domain/gateway"
	"bounty-uploader/internal/resource"
	"bounty-uploader/pkg/config"
	"bounty-uploader/pkg/kafka"
	"bounty-uploader/pkg/logger"
)

// MultiReporter 把同一事件发给所有下游，单个下游失败不影响其他下游
type MultiReporter struct {
	reporters []gateway.UploadResultReporter
}

func NewMultiReporter(reporters ...gateway.UploadResultReporter) *MultiReporter {
	m := &MultiReporter{}
	for _, r := range reporters {
		if r != nil {
			m.reporters = append(m.reporters, r)
		}
	}
	return m
}

func (m *MultiReporter) Report(ctx context.Context, event gateway.UploadEvent) error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Report(ctx, event); err != nil {
			logger.Warnf("upload event report failed event=%s file_id=%s error=%v", event.Event, event.FileID, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of downstream reporters.
func (m *MultiReporter) Len() int {
	return len(m.reporters)
}

// NopReporter drops every event.
type NopReporter struct{}

func (NopReporter) Report(context.Context, gateway.UploadEvent) error { return nil }

// DefaultReporter builds the reporter set enabled in cfg from the opened resources.
func DefaultReporter(cfg *config.Config) gateway.UploadResultReporter {
	if cfg == nil {
		return NopReporter{}
	}
	var reporters []gateway.UploadResultReporter
	if cfg.Reporter.Kafka && kafka.DefaultClient().Opened() {
		reporters = append(reporters, NewKafkaReporter(kafka.DefaultClient(), cfg.Kafka.Topics.UploadResults))
	}
	if cfg.Reporter.Redis {
		if cli := resource.DefaultRedisResource().Client(); cli != nil {
			reporters = append(reporters, NewRedisReporter(cli, cfg.Redis.Channel))
		}
	}
	if len(reporters) == 0 {
		return NopReporter{}
	}
	m := NewMultiReporter(reporters...)
	logger.Infof("upload result reporters enabled count=%d kafka=%t redis=%t", m.Len(), cfg.Reporter.Kafka, cfg.Reporter.Redis)
	return m
}
