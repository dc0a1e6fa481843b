package reporter

import (
	"context"
	"encoding/json"
	"fmt"

	"bounty-uploader/ddd/domain/gateway"
	"bounty-uploader/pkg/kafka"
)

// producer is the slice of *kafka.Client the reporter needs.
type producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// KafkaReporter publishes upload events keyed by file id.
type KafkaReporter struct {
	producer producer
	topic    string
}

func NewKafkaReporter(client *kafka.Client, topic string) *KafkaReporter {
	return &KafkaReporter{producer: client, topic: topic}
}

func (r *KafkaReporter) Report(ctx context.Context, event gateway.UploadEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal upload event: %w", err)
	}
	key := event.FileID
	if key == "" {
		key = event.Filename
	}
	if err := r.producer.Produce(ctx, r.topic, []byte(key), payload); err != nil {
		return fmt.Errorf("produce upload event topic=%s: %w", r.topic, err)
	}
	return nil
}
