package redisclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bounty-uploader/pkg/config"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

// Client 上报结果用的 Redis 连接，只承担 PUBLISH
type Client struct {
	native  *redis.Client
	channel string
}

// Options translates the redis section of the config into go-redis options.
func Options(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   "bounty-uploader",
		DialTimeout:  orDefault(cfg.DialTimeout, defaultDialTimeout),
		WriteTimeout: orDefault(cfg.WriteTimeout, defaultWriteTimeout),
	}
	if cfg.EnableTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// New connects and pings; the dial timeout also bounds the ping.
func New(cfg config.RedisConfig) (*Client, error) {
	opts := Options(cfg)
	native := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if err := native.Ping(ctx).Err(); err != nil {
		_ = native.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return &Client{native: native, channel: cfg.Channel}, nil
}

// Channel is the configured result channel.
func (c *Client) Channel() string {
	return c.channel
}

// Publish sends msg on channel.
func (c *Client) Publish(ctx context.Context, channel string, msg interface{}) *redis.IntCmd {
	return c.native.Publish(ctx, channel, msg)
}

func (c *Client) Close() error {
	return c.native.Close()
}

func orDefault(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
