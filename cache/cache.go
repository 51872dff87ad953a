package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Backend 键值后端契约。进程内 LRU 与外部 Redis 都必须满足：
// Get 未命中返回 ok=false 且无错误；Set 的 ttl 为 0 表示不过期。
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// LayerConfig 配置缓存层。
type LayerConfig struct {
	// DefaultTTL 未显式指定时的条目 TTL，0 表示不过期。
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl"`

	// Precision 键规范化时浮点舍入的小数位数。
	Precision int `json:"precision" yaml:"precision"`

	// KeyStrategyType 键策略类型：rounding | raw。
	KeyStrategyType string `json:"key_strategy" yaml:"key_strategy"`
}

// DefaultLayerConfig 默认配置。
func DefaultLayerConfig() LayerConfig {
	return LayerConfig{
		DefaultTTL: time.Hour,
		Precision:  6,
	}
}

// Layer 面向引擎的缓存门面：键生成、默认 TTL 与 fail-open 策略集中在此。
type Layer struct {
	backend  Backend
	strategy KeyStrategy
	cfg      LayerConfig
	logger   *zap.Logger
}

// NewLayer 创建缓存层。
func NewLayer(backend Backend, cfg LayerConfig, logger *zap.Logger) *Layer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Precision <= 0 {
		cfg.Precision = DefaultLayerConfig().Precision
	}

	var strategy KeyStrategy
	switch cfg.KeyStrategyType {
	case "raw":
		strategy = NewRawKeyStrategy()
	default:
		strategy = NewRoundingKeyStrategy(cfg.Precision)
	}
	logger.Info("cache layer ready", zap.String("key_strategy", strategy.Name()))

	return &Layer{
		backend:  backend,
		strategy: strategy,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "cache_layer")),
	}
}

// Key 返回输入的规范化缓存键。
func (l *Layer) Key(input []byte) string {
	return l.strategy.GenerateKey(input)
}

// Get 查缓存。后端不可用按未命中处理（fail-open），错误只记日志：
// 缓存故障不允许阻塞推理。
func (l *Layer) Get(ctx context.Context, input []byte) ([]byte, bool) {
	key := l.Key(input)
	value, ok, err := l.backend.Get(ctx, key)
	if err != nil {
		l.logger.Warn("cache get failed, treating as miss", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if ok {
		l.logger.Debug("cache hit", zap.String("key", key))
	}
	return value, ok
}

// Put 写缓存，ttl 为 0 时使用默认 TTL。写失败只记日志并吞掉：
// 缓存写失败不允许失败整个请求。
func (l *Layer) Put(ctx context.Context, input, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = l.cfg.DefaultTTL
	}
	key := l.Key(input)
	if err := l.backend.Set(ctx, key, value, ttl); err != nil {
		l.logger.Warn("cache put failed, continuing without cache", zap.String("key", key), zap.Error(err))
		return
	}
	l.logger.Debug("cache set", zap.String("key", key), zap.Duration("ttl", ttl))
}

// Delete 删除一个输入对应的条目。
func (l *Layer) Delete(ctx context.Context, input []byte) {
	key := l.Key(input)
	if err := l.backend.Delete(ctx, key); err != nil {
		l.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// Clear 清空全部条目。
func (l *Layer) Clear(ctx context.Context) {
	if err := l.backend.Clear(ctx); err != nil {
		l.logger.Warn("cache clear failed", zap.Error(err))
	}
}
