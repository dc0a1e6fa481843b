package reporter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"bounty-uploader/ddd/domain/gateway"
	"bounty-uploader/pkg/redisclient"
)

// publisher is the slice of *redisclient.Client the reporter needs.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisReporter PUBLISHes upload events on a channel.
type RedisReporter struct {
	client  publisher
	channel string
}

func NewRedisReporter(client *redisclient.Client, channel string) *RedisReporter {
	return &RedisReporter{client: client, channel: channel}
}

func (r *RedisReporter) Report(ctx context.Context, event gateway.UploadEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal upload event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish upload event channel=%s: %w", r.channel, err)
	}
	return nil
}
