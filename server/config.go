package server

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 进程启动时加载，运行期不可变
type Config struct {
	ListenAddress      string   `yaml:"listen_address"`
	MaxConnectionCount int      `yaml:"max_connection_count"`
	Worlds             []string `yaml:"worlds"`
	// 准入后自动加入第一个世界
	AutoJoin            bool          `yaml:"auto_join"`
	RemoveEntityOnLeave bool          `yaml:"remove_entity_on_leave"`
	ReadLimitBytes      int64         `yaml:"read_limit_bytes"`
	ReadTimeout         time.Duration `yaml:"read_timeout"`
	SendQueueSize       int           `yaml:"send_queue_size"`
	AllowedOrigins      []string      `yaml:"allowed_origins"`
	// 打开 go-deadlock 的锁顺序与超时检测
	LockDebug bool `yaml:"lock_debug"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// RateLimitConfig 每连接入站消息令牌桶
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	MessagesPerSecond float64 `yaml:"messages_per_second"`
	Burst             int     `yaml:"burst"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddress:      "127.0.0.1:9000",
		MaxConnectionCount: 100,
		Worlds:             []string{"default"},
		AutoJoin:           true,
		ReadLimitBytes:     1 << 20,
		ReadTimeout:        60 * time.Second,
		SendQueueSize:      64,
		RateLimit: RateLimitConfig{
			Enabled:           true,
			MessagesPerSecond: 100,
			Burst:             200,
		},
		Log: LogConfig{
			File:       "app.log",
			Level:      "debug",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// LoadConfig 默认值之上叠加 YAML 文件；path 为空时只用默认值
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	c.ListenAddress = strings.TrimSpace(c.ListenAddress)
	names := c.Worlds[:0]
	for _, n := range c.Worlds {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	c.Worlds = names
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 64
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.ListenAddress == "" {
		errs = append(errs, errors.New("listen_address is required"))
	}
	if c.MaxConnectionCount <= 0 {
		errs = append(errs, fmt.Errorf("max_connection_count must be > 0, got %d", c.MaxConnectionCount))
	}
	if c.AutoJoin && len(c.Worlds) == 0 {
		errs = append(errs, errors.New("auto_join requires at least one world"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.MessagesPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate_limit needs positive messages_per_second and burst"))
	}
	if c.ReadTimeout < 0 {
		errs = append(errs, errors.New("read_timeout must not be negative"))
	}
	return errors.Join(errs...)
}
