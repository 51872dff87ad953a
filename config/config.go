// =============================================================================
// 📦 InferFlow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.Load("inferflow.yaml")
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/inferflow/cache"
	"github.com/BaSui01/inferflow/infer"
)

// EnvPrefix 环境变量前缀。
const EnvPrefix = "INFERFLOW"

// Config 是 InferFlow 的完整配置结构。
type Config struct {
	// Engine 推理引擎配置
	Engine infer.Config `yaml:"engine"`

	// Cache 缓存层配置
	Cache CacheConfig `yaml:"cache"`

	// Redis 外部缓存后端配置
	Redis RedisConfig `yaml:"redis"`

	// Log 日志配置
	Log LogConfig `yaml:"log"`
}

// CacheConfig 缓存层配置。
type CacheConfig struct {
	// Enabled 是否启用预测缓存
	Enabled bool `yaml:"enabled"`

	// Backend 后端类型：lru | redis
	Backend string `yaml:"backend"`

	// Capacity LRU 后端条目数上限
	Capacity int `yaml:"capacity"`

	// Layer 键策略与 TTL 配置
	Layer cache.LayerConfig `yaml:"layer"`
}

// RedisConfig Redis 连接配置。
type RedisConfig struct {
	// Addr Redis 地址
	Addr string `yaml:"addr"`

	// Password 密码
	Password string `yaml:"password"`

	// DB 数据库编号
	DB int `yaml:"db"`

	// PoolSize 连接池大小
	PoolSize int `yaml:"pool_size"`

	// DialTimeout 建连超时
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// LogConfig 日志配置。
type LogConfig struct {
	// Level 日志级别：debug | info | warn | error
	Level string `yaml:"level"`

	// Development 是否使用开发模式编码
	Development bool `yaml:"development"`
}

// Default 返回带默认值的完整配置。
func Default() *Config {
	return &Config{
		Engine: infer.DefaultConfig(),
		Cache: CacheConfig{
			Enabled:  true,
			Backend:  "lru",
			Capacity: 1000,
			Layer:    cache.DefaultLayerConfig(),
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			PoolSize:    10,
			DialTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load 按 默认值 → YAML 文件 → 环境变量 的优先级加载配置。
// path 为空或文件不存在时跳过文件阶段。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 用环境变量覆盖关键配置项。
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvPrefix + "_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(EnvPrefix + "_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv(EnvPrefix + "_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv(EnvPrefix + "_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvPrefix + "_MAX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.MaxBatchSize = n
		}
	}
	if v := os.Getenv(EnvPrefix + "_MAX_WAIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Engine.MaxWait = d
		}
	}
	if v := os.Getenv(EnvPrefix + "_TARGET_LATENCY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Engine.TargetLatency = d
		}
	}
}

// Validate 校验配置合法性。
func (c *Config) Validate() error {
	if c.Engine.MaxBatchSize <= 0 {
		return fmt.Errorf("engine.max_batch_size must be > 0, got %d", c.Engine.MaxBatchSize)
	}
	if c.Engine.MaxWait < 0 {
		return fmt.Errorf("engine.max_wait must be >= 0, got %s", c.Engine.MaxWait)
	}
	if c.Engine.TargetLatency <= 0 {
		return fmt.Errorf("engine.target_latency must be > 0, got %s", c.Engine.TargetLatency)
	}
	switch c.Cache.Backend {
	case "lru", "redis", "":
	default:
		return fmt.Errorf("cache.backend must be lru or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.Enabled && c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr required when cache.backend is redis")
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache.capacity must be > 0, got %d", c.Cache.Capacity)
	}
	return nil
}

// BuildLogger 根据日志配置构建 zap 日志器。
func (c LogConfig) BuildLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", c.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	if c.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level
	return zapCfg.Build()
}
