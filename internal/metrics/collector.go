// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 推理核心指标收集器。nil 接收者上的全部方法为空操作，
// 引擎不注入收集器时无需判空。
type Collector struct {
	// 批处理指标
	batchesTotal prometheus.Counter
	batchSize    prometheus.Histogram
	batchLatency prometheus.Histogram

	// 调度指标
	queueDepth      prometheus.Gauge
	targetBatchSize prometheus.Gauge

	// 缓存指标
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到 reg；reg 为 nil 时使用默认注册表。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.batchesTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batches_total",
		Help:      "Total number of dispatched batches",
	})

	c.batchSize = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_size",
		Help:      "Number of requests per dispatched batch",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
	})

	c.batchLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_latency_seconds",
		Help:      "Wall-clock latency of batch execution in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	c.queueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current number of pending requests",
	})

	c.targetBatchSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "target_batch_size",
		Help:      "Current adaptive target batch size",
	})

	c.cacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Total number of prediction cache hits",
	})

	c.cacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Total number of prediction cache misses",
	})

	c.logger.Info("metrics collector registered", zap.String("namespace", namespace))
	return c
}

// ObserveBatch 记录一次批执行的大小与耗时。
func (c *Collector) ObserveBatch(size int, latency time.Duration) {
	if c == nil {
		return
	}
	c.batchesTotal.Inc()
	c.batchSize.Observe(float64(size))
	c.batchLatency.Observe(latency.Seconds())
}

// SetQueueDepth 更新待处理队列深度。
func (c *Collector) SetQueueDepth(depth int) {
	if c == nil {
		return
	}
	c.queueDepth.Set(float64(depth))
}

// SetTargetBatchSize 更新当前目标批大小。
func (c *Collector) SetTargetBatchSize(target int) {
	if c == nil {
		return
	}
	c.targetBatchSize.Set(float64(target))
}

// CacheHit 记录一次缓存命中。
func (c *Collector) CacheHit() {
	if c == nil {
		return
	}
	c.cacheHits.Inc()
}

// CacheMiss 记录一次缓存未命中。
func (c *Collector) CacheMiss() {
	if c == nil {
		return
	}
	c.cacheMisses.Inc()
}
