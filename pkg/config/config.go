package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	MySQL       MySQLConfig       `mapstructure:"mysql"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Lmstfy      LmstfyConfig      `mapstructure:"lmstfy"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
	Poller      PollerConfig      `mapstructure:"poller"`
	Workers     []WorkerConfig    `mapstructure:"workers"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// MySQLConfig MySQL 配置
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LmstfyConfig Lmstfy 配置
type LmstfyConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Token     string `mapstructure:"token"`
}

// MarketplaceConfig 外部市场 API 配置
type MarketplaceConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
	// OrderPrefix 内部单号前缀，标识订单来源市场
	OrderPrefix string        `mapstructure:"order_prefix"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// DedupTTL 幂等记录有效期
	DedupTTL time.Duration `mapstructure:"dedup_ttl"`
}

// PollerConfig 轮询器配置
type PollerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	PageSize int           `mapstructure:"page_size"`
	// Statuses 轮询的市场侧状态过滤（空表示全部）
	Statuses []string `mapstructure:"statuses"`
	// SyncQueuePrefix Profile 队列前缀，实际队列名为 <prefix>_p<profile_id>
	SyncQueuePrefix string `mapstructure:"sync_queue_prefix"`
	// CancelCheckWindow 已完成订单的取消复查时间窗
	CancelCheckWindow time.Duration `mapstructure:"cancel_check_window"`
}

// WorkerConfig Worker 配置
type WorkerConfig struct {
	Name       string           `mapstructure:"name"`
	QueueName  string           `mapstructure:"queue_name"`
	Subscriber SubscriberConfig `mapstructure:"subscriber"`
	Processor  ProcessorConfig  `mapstructure:"processor"`
}

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads"`       // 并发拉取数
	Rate         time.Duration `mapstructure:"rate"`          // 拉取速率
	Timeout      time.Duration `mapstructure:"timeout"`       // 拉取超时
	TTR          time.Duration `mapstructure:"ttr"`           // Time-To-Run
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Threads    int           `mapstructure:"threads"`     // 并发处理数
	BufferSize int           `mapstructure:"buffer_size"` // Channel 缓冲大小
	Timeout    time.Duration `mapstructure:"timeout"`     // 单个任务超时
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults 填充缺省值
func (c *Config) applyDefaults() {
	if c.Marketplace.OrderPrefix == "" {
		c.Marketplace.OrderPrefix = "MP"
	}
	if c.Marketplace.Timeout == 0 {
		c.Marketplace.Timeout = 10 * time.Second
	}
	if c.Marketplace.DedupTTL == 0 {
		c.Marketplace.DedupTTL = 72 * time.Hour
	}
	if c.Poller.Interval == 0 {
		c.Poller.Interval = time.Minute
	}
	if c.Poller.PageSize == 0 {
		c.Poller.PageSize = 50
	}
	if c.Poller.CancelCheckWindow == 0 {
		c.Poller.CancelCheckWindow = 24 * time.Hour
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.Lmstfy.Host == "" {
		return fmt.Errorf("lmstfy.host is required")
	}
	if c.Marketplace.BaseURL == "" {
		return fmt.Errorf("marketplace.base_url is required")
	}
	return nil
}

// ValidateWorkers Worker 进程额外校验
func (c *Config) ValidateWorkers() error {
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker is required")
	}
	for _, w := range c.Workers {
		if w.QueueName == "" {
			return fmt.Errorf("worker %q: queue_name is required", w.Name)
		}
	}
	return nil
}

// ValidatePoller 轮询进程额外校验
func (c *Config) ValidatePoller() error {
	if c.Poller.SyncQueuePrefix == "" {
		return fmt.Errorf("poller.sync_queue_prefix is required")
	}
	return nil
}
