package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.True(t, cfg.Compression.Enabled)
	assert.Equal(t, uint64(15*1024*1024), cfg.Compression.ThresholdBytes)
	assert.Equal(t, 0.6, cfg.Compression.Factor)
	assert.Equal(t, 480, cfg.Compression.MaxWidth)
	assert.Equal(t, "250k", cfg.Compression.VideoBitrate)
	assert.Equal(t, 38, cfg.Compression.Quality)
	assert.Equal(t, "ultrafast", cfg.Compression.Preset)
	assert.Equal(t, "s3", cfg.Upload.StorageScheme)
	assert.Equal(t, time.Hour, cfg.Engine.ExecTimeout)
	assert.Equal(t, "127.0.0.1:8090", cfg.Intake.Addr())
	assert.Equal(t, 2, cfg.Intake.Workers)
	assert.Equal(t, 16, cfg.Intake.QueueCapacity)
	assert.False(t, cfg.Reporter.Kafka)
	assert.Equal(t, "upload.results", cfg.Kafka.Topics.UploadResults)
	assert.Equal(t, "localhost:6379", cfg.Redis.GetRedisAddr())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://api.example.com/
  timeout: 5s
compression:
  threshold_bytes: 1048576
  factor: 0.5
  preset: fast
intake:
  port: 9000
  workers: 4
reporter:
  kafka: true
kafka:
  bootstrap_servers: ["k1:9092", "k2:9092"]
`), 0o644))
	t.Setenv("BOUNTY_API_TIMEOUT", "7s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, 7*time.Second, cfg.API.Timeout)
	assert.Equal(t, uint64(1<<20), cfg.Compression.ThresholdBytes)
	assert.Equal(t, 0.5, cfg.Compression.Factor)
	assert.Equal(t, "fast", cfg.Compression.Preset)
	assert.Equal(t, 9000, cfg.Intake.Port)
	assert.Equal(t, 4, cfg.Intake.Workers)
	assert.True(t, cfg.Reporter.Kafka)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.BootstrapServers)
	assert.Equal(t, "https://api.example.com/confirm-upload", cfg.API.Endpoint("/confirm-upload"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNormalizeClampsFactor(t *testing.T) {
	cfg := &Config{Compression: CompressionConfig{Factor: 1.5}}
	cfg.normalize()
	assert.Equal(t, 0.6, cfg.Compression.Factor)
}

func TestGlobalConfig(t *testing.T) {
	prev := GetGlobalConfig()
	t.Cleanup(func() { SetGlobalConfig(prev) })

	cfg := Default()
	SetGlobalConfig(cfg)
	assert.Same(t, cfg, GetGlobalConfig())
	assert.True(t, cfg.Compression.Enabled)
}
