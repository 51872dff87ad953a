package infer

import (
	"sync/atomic"
	"time"
)

// ControllerConfig 配置延迟反馈控制器。
// 步长与滞回带是配置而非固定常量，默认策略：均值低于目标的 80% 时扩批，
// 高于 120% 时缩批，带内不动作，避免单批延迟毛刺引发振荡。
type ControllerConfig struct {
	MaxBatchSize  int           `json:"max_batch_size" yaml:"max_batch_size"`
	TargetLatency time.Duration `json:"target_latency" yaml:"target_latency"`
	Step          int           `json:"step" yaml:"step"`
	LowWatermark  float64       `json:"low_watermark" yaml:"low_watermark"`
	HighWatermark float64       `json:"high_watermark" yaml:"high_watermark"`
	HistorySize   int           `json:"history_size" yaml:"history_size"`
	InitialTarget int           `json:"initial_target" yaml:"initial_target"`
}

// DefaultControllerConfig 返回合理的默认值。
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		MaxBatchSize:  32,
		TargetLatency: 200 * time.Millisecond,
		Step:          1,
		LowWatermark:  0.8,
		HighWatermark: 1.2,
		HistorySize:   100,
	}
}

func (c *ControllerConfig) normalize() {
	def := DefaultControllerConfig()
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = def.MaxBatchSize
	}
	if c.TargetLatency <= 0 {
		c.TargetLatency = def.TargetLatency
	}
	if c.Step <= 0 {
		c.Step = def.Step
	}
	if c.LowWatermark <= 0 {
		c.LowWatermark = def.LowWatermark
	}
	if c.HighWatermark <= c.LowWatermark {
		c.HighWatermark = def.HighWatermark
	}
	if c.HistorySize <= 0 {
		c.HistorySize = def.HistorySize
	}
	// 初始目标默认取批大小上限：先追吞吐，延迟超标再收缩。
	if c.InitialTarget <= 0 {
		c.InitialTarget = c.MaxBatchSize
	}
	if c.InitialTarget > c.MaxBatchSize {
		c.InitialTarget = c.MaxBatchSize
	}
}

// Controller 观测每批实际耗时，按比例规则把目标批大小推向延迟目标。
//
// 延迟历史只由派发循环自身读写，无需跨线程同步；
// 目标批大小通过原子量发布，供取批路径无锁读取。
type Controller struct {
	cfg    ControllerConfig
	target atomic.Int64

	// 环形缓冲，容量 HistorySize，满后覆盖最旧样本。
	history []time.Duration
	next    int
	count   int
	sum     time.Duration
}

// NewController 创建控制器，零值字段回落到默认配置。
func NewController(cfg ControllerConfig) *Controller {
	cfg.normalize()
	c := &Controller{
		cfg:     cfg,
		history: make([]time.Duration, cfg.HistorySize),
	}
	c.target.Store(int64(cfg.InitialTarget))
	return c
}

// CurrentTarget 返回当前目标批大小，取批路径每轮读取一次。
func (c *Controller) CurrentTarget() int {
	return int(c.target.Load())
}

// RecordBatchLatency 记录一批的实际耗时并执行一步反馈调节。
// 只能由派发循环在每批执行完成后调用。
func (c *Controller) RecordBatchLatency(observed time.Duration, batchSize int) {
	if batchSize <= 0 {
		return
	}
	if c.count == len(c.history) {
		c.sum -= c.history[c.next]
	} else {
		c.count++
	}
	c.history[c.next] = observed
	c.sum += observed
	c.next = (c.next + 1) % len(c.history)

	avg := c.sum / time.Duration(c.count)
	target := int(c.target.Load())

	switch {
	case avg < time.Duration(float64(c.cfg.TargetLatency)*c.cfg.LowWatermark):
		target += c.cfg.Step
	case avg > time.Duration(float64(c.cfg.TargetLatency)*c.cfg.HighWatermark):
		target -= c.cfg.Step
	default:
		return // 滞回带内不动作
	}

	if target > c.cfg.MaxBatchSize {
		target = c.cfg.MaxBatchSize
	}
	if target < 1 {
		target = 1
	}
	c.target.Store(int64(target))
}

// AverageLatency 返回当前采样窗口的平均批延迟，无样本时为 0。
func (c *Controller) AverageLatency() time.Duration {
	if c.count == 0 {
		return 0
	}
	return c.sum / time.Duration(c.count)
}

// SampleCount 返回窗口内样本数。
func (c *Controller) SampleCount() int { return c.count }
