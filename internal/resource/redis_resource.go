package resource

import (
	"sync"

	"bounty-uploader/pkg/config"
	"bounty-uploader/pkg/logger"
	"bounty-uploader/pkg/manager"
	"bounty-uploader/pkg/redisclient"
)

var (
	redisOnce     sync.Once
	redisInstance *RedisResource
)

// RedisResource 结果上报用的 Redis 连接，仅在 reporter.redis 打开时连接
type RedisResource struct {
	mu     sync.Mutex
	client *redisclient.Client
}

func DefaultRedisResource() *RedisResource {
	redisOnce.Do(func() {
		redisInstance = &RedisResource{}
	})
	return redisInstance
}

// MustOpen panics when the reporter is enabled but Redis is unreachable.
func (r *RedisResource) MustOpen() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return
	}
	cfg := config.GetGlobalConfig()
	if cfg == nil || !cfg.Reporter.Redis {
		return
	}
	client, err := redisclient.New(cfg.Redis)
	if err != nil {
		panic("redis reporter enabled but unreachable: " + err.Error())
	}
	logger.Infof("Redis reporter connected addr=%s channel=%s", cfg.Redis.GetRedisAddr(), client.Channel())
	r.client = client
}

func (r *RedisResource) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return
	}
	if err := r.client.Close(); err != nil {
		logger.Warnf("close redis failed error=%v", err)
	}
	r.client = nil
}

// Client returns the opened client, or nil.
func (r *RedisResource) Client() *redisclient.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client
}

type RedisResourcePlugin struct{}

func (p *RedisResourcePlugin) Name() string { return "redis" }

func (p *RedisResourcePlugin) MustCreateResource() manager.Resource { return DefaultRedisResource() }
