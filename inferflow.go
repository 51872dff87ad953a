// Package inferflow provides a top-level convenience entry point for creating
// a batching inference engine with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/inferflow"
//
//	eng, err := inferflow.New(inferflow.WithExecutor(myExecutor))
//	eng, err := inferflow.New(
//	    inferflow.WithExecutor(myExecutor),
//	    inferflow.WithRedisCache("localhost:6379"),
//	    inferflow.WithLogger(logger),
//	)
//
// This is a thin wrapper around [infer.NewEngine]; it wires the cache layer,
// logger and metrics collector so callers never assemble them by hand.
package inferflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/inferflow/cache"
	"github.com/BaSui01/inferflow/config"
	"github.com/BaSui01/inferflow/infer"
	"github.com/BaSui01/inferflow/internal/metrics"
)

// options collects everything New needs before assembling the engine.
type options struct {
	cfg          *config.Config
	executor     infer.Executor
	logger       *zap.Logger
	cacheLayer   *cache.Layer
	cacheBackend cache.Backend
	registerer   prometheus.Registerer
	metricsOn    bool
}

// Option configures the engine created by [New].
type Option func(*options)

// WithExecutor sets the batch executor. Required.
func WithExecutor(executor infer.Executor) Option {
	return func(o *options) { o.executor = executor }
}

// WithExecutorFunc sets a plain function as the batch executor.
func WithExecutorFunc(fn infer.ExecutorFunc) Option {
	return func(o *options) { o.executor = fn }
}

// WithConfig replaces the default configuration wholesale.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets a custom zap logger. Defaults to the logger built from
// the config's log section.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithCacheLayer sets a pre-built cache layer, overriding the config's
// cache section entirely.
func WithCacheLayer(layer *cache.Layer) Option {
	return func(o *options) { o.cacheLayer = layer }
}

// WithCacheBackend sets a custom cache backend while keeping the config's
// key strategy and TTL settings.
func WithCacheBackend(backend cache.Backend) Option {
	return func(o *options) { o.cacheBackend = backend }
}

// WithRedisCache enables the Redis cache backend at the given address.
func WithRedisCache(addr string) Option {
	return func(o *options) {
		if o.cfg == nil {
			o.cfg = config.Default()
		}
		o.cfg.Cache.Enabled = true
		o.cfg.Cache.Backend = "redis"
		o.cfg.Redis.Addr = addr
	}
}

// WithoutCache disables the prediction cache.
func WithoutCache() Option {
	return func(o *options) {
		if o.cfg == nil {
			o.cfg = config.Default()
		}
		o.cfg.Cache.Enabled = false
	}
}

// WithMetrics registers prometheus metrics on the given registerer.
// Pass nil to use the default registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.metricsOn = true
		o.registerer = reg
	}
}

// New creates an [infer.Engine] with minimal configuration.
// At minimum, an executor must be specified via [WithExecutor] or
// [WithExecutorFunc].
func New(opts ...Option) (*infer.Engine, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg == nil {
		o.cfg = config.Default()
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = o.cfg.Log.BuildLogger()
		if err != nil {
			return nil, err
		}
	}

	layer := o.cacheLayer
	if layer == nil && o.cfg.Cache.Enabled {
		backend := o.cacheBackend
		if backend == nil {
			switch o.cfg.Cache.Backend {
			case "redis":
				client := redis.NewClient(&redis.Options{
					Addr:        o.cfg.Redis.Addr,
					Password:    o.cfg.Redis.Password,
					DB:          o.cfg.Redis.DB,
					PoolSize:    o.cfg.Redis.PoolSize,
					DialTimeout: o.cfg.Redis.DialTimeout,
				})
				backend = cache.NewRedisBackend(client)
			default:
				backend = cache.NewLRUBackend(o.cfg.Cache.Capacity)
			}
		}
		layer = cache.NewLayer(backend, o.cfg.Cache.Layer, logger)
	}

	engineOpts := []infer.EngineOption{infer.WithEngineLogger(logger)}
	if layer != nil {
		engineOpts = append(engineOpts, infer.WithCache(layer))
	}
	if o.metricsOn {
		engineOpts = append(engineOpts,
			infer.WithCollector(metrics.NewCollector("inferflow", o.registerer, logger)))
	}

	return infer.NewEngine(o.cfg.Engine, o.executor, engineOpts...)
}
