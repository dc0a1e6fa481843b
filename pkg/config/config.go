package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	API         APIConfig         `mapstructure:"api"`
	Compression CompressionConfig `mapstructure:"compression"`
	Engine      EngineConfig      `mapstructure:"engine"`
	Upload      UploadConfig      `mapstructure:"upload"`
	Log         LogConfig         `mapstructure:"log"`
	Intake      IntakeConfig      `mapstructure:"intake"`
	Reporter    ReporterConfig    `mapstructure:"reporter"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Profiling   ProfilingConfig   `mapstructure:"profiling"`
}

// APIConfig 后端接口配置
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CompressionConfig 压缩策略与默认参数
type CompressionConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	ThresholdBytes uint64  `mapstructure:"threshold_bytes"`
	Factor         float64 `mapstructure:"factor"`
	MaxWidth       int     `mapstructure:"max_width"`
	MaxHeight      int     `mapstructure:"max_height"`
	VideoBitrate   string  `mapstructure:"video_bitrate"`
	Quality        int     `mapstructure:"quality"`
	Preset         string  `mapstructure:"preset"`
}

// EngineConfig 转码引擎配置
type EngineConfig struct {
	BinaryPath  string        `mapstructure:"binary_path"`
	DownloadURL string        `mapstructure:"download_url"`
	CacheDir    string        `mapstructure:"cache_dir"`
	StagingDir  string        `mapstructure:"staging_dir"`
	ExecTimeout time.Duration `mapstructure:"exec_timeout"`
}

// UploadConfig 直传配置
type UploadConfig struct {
	StorageScheme   string        `mapstructure:"storage_scheme"`
	TransferTimeout time.Duration `mapstructure:"transfer_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// IntakeConfig 本地接入服务配置
type IntakeConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Mode          string        `mapstructure:"mode"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes"`
	Retention     time.Duration `mapstructure:"retention"`
	Workers       int           `mapstructure:"workers"`
	QueueCapacity int           `mapstructure:"queue_capacity"`
}

// ReporterConfig selects which result reporters are active.
type ReporterConfig struct {
	Kafka bool `mapstructure:"kafka"`
	Redis bool `mapstructure:"redis"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	BootstrapServers []string          `mapstructure:"bootstrap_servers"`
	ClientID         string            `mapstructure:"client_id"`
	Topics           KafkaTopicsConfig `mapstructure:"topics"`
}

type KafkaTopicsConfig struct {
	UploadResults string `mapstructure:"upload_results"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	Channel      string        `mapstructure:"channel"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
}

// ProfilingConfig Pyroscope配置
type ProfilingConfig struct {
	ServerAddress string `mapstructure:"server_address"`
}

var (
	globalMu  sync.RWMutex
	globalCfg *Config
)

// SetGlobalConfig 设置全局配置
func SetGlobalConfig(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCfg = cfg
}

// GetGlobalConfig 获取全局配置，未设置时返回nil
func GetGlobalConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalCfg
}

// Load 加载配置。configPath 为空时只使用默认值与环境变量。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// 设置环境变量前缀，例如 BOUNTY_API_BASE_URL
	v.SetEnvPrefix("BOUNTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(configPath) != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", configPath, err)
			}
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	return &cfg, nil
}

// Default 返回仅包含默认值的配置，测试和库调用方使用。
func Default() *Config {
	cfg := &Config{}
	cfg.Compression.Enabled = true
	cfg.normalize()
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("compression.enabled", true)
	v.SetDefault("compression.threshold_bytes", 15*1024*1024)
	v.SetDefault("compression.factor", 0.6)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("kafka.client_id", "bounty-uploader")
	v.SetDefault("kafka.topics.upload_results", "upload.results")
	v.SetDefault("redis.channel", "upload-results")
}

// normalize 补全配置的默认值
func (c *Config) normalize() {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		c.API.BaseURL = "http://localhost:8000"
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.Timeout <= 0 {
		c.API.Timeout = 30 * time.Second
	}

	if c.Compression.ThresholdBytes == 0 {
		c.Compression.ThresholdBytes = 15 * 1024 * 1024
	}
	if c.Compression.Factor <= 0 || c.Compression.Factor > 1 {
		c.Compression.Factor = 0.6
	}
	if c.Compression.MaxWidth <= 0 {
		c.Compression.MaxWidth = 480
	}
	if c.Compression.MaxHeight <= 0 {
		c.Compression.MaxHeight = 480
	}
	if strings.TrimSpace(c.Compression.VideoBitrate) == "" {
		c.Compression.VideoBitrate = "250k"
	}
	if c.Compression.Quality <= 0 {
		c.Compression.Quality = 38
	}
	if strings.TrimSpace(c.Compression.Preset) == "" {
		c.Compression.Preset = "ultrafast"
	}

	if c.Engine.CacheDir == "" {
		c.Engine.CacheDir = os.TempDir() + "/bounty-uploader/engine"
	}
	if c.Engine.StagingDir == "" {
		c.Engine.StagingDir = os.TempDir() + "/bounty-uploader/staging"
	}
	if c.Engine.ExecTimeout <= 0 {
		c.Engine.ExecTimeout = time.Hour
	}

	if c.Upload.StorageScheme == "" {
		c.Upload.StorageScheme = "s3"
	}
	if c.Upload.TransferTimeout < 0 {
		c.Upload.TransferTimeout = 0
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stderr"
	}

	if c.Intake.Host == "" {
		c.Intake.Host = "127.0.0.1"
	}
	if c.Intake.Port == 0 {
		c.Intake.Port = 8090
	}
	if c.Intake.Mode == "" {
		c.Intake.Mode = "release"
	}
	if c.Intake.MaxBodyBytes <= 0 {
		c.Intake.MaxBodyBytes = 2 << 30
	}
	if c.Intake.Retention <= 0 {
		c.Intake.Retention = 30 * time.Minute
	}
	if c.Intake.Workers <= 0 {
		c.Intake.Workers = 2
	}
	if c.Intake.QueueCapacity <= 0 {
		c.Intake.QueueCapacity = 16
	}

	if len(c.Kafka.BootstrapServers) == 0 {
		c.Kafka.BootstrapServers = []string{"localhost:29092"}
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = "bounty-uploader"
	}
	if c.Kafka.Topics.UploadResults == "" {
		c.Kafka.Topics.UploadResults = "upload.results"
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "upload-results"
	}

	if c.Profiling.ServerAddress == "" {
		c.Profiling.ServerAddress = os.Getenv("PYROSCOPE_SERVER_ADDRESS")
	}
}

// Endpoint 拼接后端接口地址
func (c *APIConfig) Endpoint(path string) string {
	return c.BaseURL + "/" + strings.TrimLeft(path, "/")
}

// GetRedisAddr 获取Redis地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr 获取接入服务监听地址
func (c *IntakeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
