package infer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/BaSui01/inferflow/cache"
	"github.com/BaSui01/inferflow/internal/metrics"
)

const defaultQueueSize = 1000

// Config 配置推理引擎。
type Config struct {
	// MaxBatchSize 单批请求数上限，同时是目标批大小的调节上界。
	MaxBatchSize int `json:"max_batch_size" yaml:"max_batch_size"`

	// MaxWait 自首个待处理请求入队起的最长等待；到期即冲刷，不凑满批。
	MaxWait time.Duration `json:"max_wait" yaml:"max_wait"`

	// TargetLatency 批延迟目标，控制器据此调节目标批大小。
	TargetLatency time.Duration `json:"target_latency" yaml:"target_latency"`

	// Step 每次调节的步长；LowWatermark/HighWatermark 为滞回带边界。
	Step          int     `json:"step" yaml:"step"`
	LowWatermark  float64 `json:"low_watermark" yaml:"low_watermark"`
	HighWatermark float64 `json:"high_watermark" yaml:"high_watermark"`

	// HistorySize 延迟采样环形缓冲容量。
	HistorySize int `json:"history_size" yaml:"history_size"`

	// QueueSize 待处理队列容量，超出后 Predict 立即返回队列满错误。
	QueueSize int `json:"queue_size" yaml:"queue_size"`

	// PredictTimeout 单次 Predict 的默认等待上限，0 表示只受调用方 context 约束。
	PredictTimeout time.Duration `json:"predict_timeout" yaml:"predict_timeout"`

	// CacheTTL 预测结果写缓存的默认 TTL，0 走缓存层默认值。
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// MaxSubmitRate 每秒接纳请求数上限，0 表示不限流；Burst 默认等于速率。
	MaxSubmitRate float64 `json:"max_submit_rate" yaml:"max_submit_rate"`
	SubmitBurst   int     `json:"submit_burst" yaml:"submit_burst"`
}

// DefaultConfig 返回合理的默认值。
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:  32,
		MaxWait:       50 * time.Millisecond,
		TargetLatency: 200 * time.Millisecond,
		Step:          1,
		LowWatermark:  0.8,
		HighWatermark: 1.2,
		HistorySize:   100,
		QueueSize:     defaultQueueSize,
	}
}

func (c *Config) normalize() {
	def := DefaultConfig()
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = def.MaxBatchSize
	}
	if c.MaxWait < 0 {
		c.MaxWait = def.MaxWait
	}
	if c.TargetLatency <= 0 {
		c.TargetLatency = def.TargetLatency
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
}

func (c Config) controllerConfig() ControllerConfig {
	return ControllerConfig{
		MaxBatchSize:  c.MaxBatchSize,
		TargetLatency: c.TargetLatency,
		Step:          c.Step,
		LowWatermark:  c.LowWatermark,
		HighWatermark: c.HighWatermark,
		HistorySize:   c.HistorySize,
	}
}

// Engine 推理引擎门面：缓存前置、动态合批、结果槽回填。
// 每个模型实例对应一个 Engine 与一条专属派发循环 goroutine。
type Engine struct {
	cfg       Config
	exec      Executor
	cache     *cache.Layer
	acc       *Accumulator
	ctrl      *Controller
	logger    *zap.Logger
	collector *metrics.Collector
	limiter   *rate.Limiter
	tracer    trace.Tracer
	sf        singleflight.Group

	runCtx    context.Context
	runCancel context.CancelFunc
	done      chan struct{}
	closed    atomic.Bool

	// 计量
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64
	timedOut  atomic.Int64
	batches   atomic.Int64
	hits      atomic.Int64
	misses    atomic.Int64
}

// EngineOption 配置引擎的可选依赖。
type EngineOption func(*Engine)

// WithEngineLogger 注入 zap 日志器。
func WithEngineLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithCache 注入缓存层；不注入则每次 Predict 都走合批执行。
func WithCache(layer *cache.Layer) EngineOption {
	return func(e *Engine) { e.cache = layer }
}

// WithCollector 注入指标收集器。
func WithCollector(c *metrics.Collector) EngineOption {
	return func(e *Engine) { e.collector = c }
}

// NewEngine 创建推理引擎并启动派发循环。
// executor 为必选依赖；缓存、日志、指标均显式注入，不依赖全局状态。
func NewEngine(cfg Config, executor Executor, opts ...EngineOption) (*Engine, error) {
	if executor == nil {
		return nil, errors.New("infer: executor is required")
	}
	cfg.normalize()

	e := &Engine{
		cfg:    cfg,
		exec:   executor,
		acc:    NewAccumulator(cfg.QueueSize),
		ctrl:   NewController(cfg.controllerConfig()),
		logger: zap.NewNop(),
		tracer: otel.Tracer("github.com/BaSui01/inferflow/infer"),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "infer_engine"))

	if cfg.MaxSubmitRate > 0 {
		burst := cfg.SubmitBurst
		if burst <= 0 {
			burst = int(cfg.MaxSubmitRate)
			if burst < 1 {
				burst = 1
			}
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.MaxSubmitRate), burst)
	}

	e.runCtx, e.runCancel = context.WithCancel(context.Background())
	go e.run()

	e.logger.Info("engine started",
		zap.Int("max_batch_size", cfg.MaxBatchSize),
		zap.Duration("max_wait", cfg.MaxWait),
		zap.Duration("target_latency", cfg.TargetLatency),
		zap.Bool("cache_enabled", e.cache != nil))
	return e, nil
}

// PredictOptions 单次 Predict 的可选参数。
type PredictOptions struct {
	TTL      time.Duration // 结果写缓存的 TTL，0 走引擎默认
	Timeout  time.Duration // 等待上限，0 走引擎默认
	UseCache bool          // 是否读写缓存
}

// PredictOption 修改单次 Predict 行为。
type PredictOption func(*PredictOptions)

// WithTTL 指定本次结果的缓存 TTL。
func WithTTL(ttl time.Duration) PredictOption {
	return func(o *PredictOptions) { o.TTL = ttl }
}

// WithTimeout 指定本次调用的等待上限。
func WithTimeout(timeout time.Duration) PredictOption {
	return func(o *PredictOptions) { o.Timeout = timeout }
}

// WithoutCache 跳过缓存读写，强制走合批执行。
func WithoutCache() PredictOption {
	return func(o *PredictOptions) { o.UseCache = false }
}

func (e *Engine) predictOptions(opts []PredictOption) PredictOptions {
	po := PredictOptions{
		TTL:      e.cfg.CacheTTL,
		Timeout:  e.cfg.PredictTimeout,
		UseCache: true,
	}
	for _, opt := range opts {
		opt(&po)
	}
	return po
}

// Predict 对单个输入执行推理：缓存命中立即返回；未命中则入队合批，
// 挂起等待结果槽解析，成功后回写缓存再返回。
//
// 缓存后端不可用按未命中处理（fail-open），写失败只记日志，
// 缓存永远不是正确性依赖。并发提交的等价输入经 singleflight 合并为
// 一次在途执行，避免同一批窗口内的重复计算。
//
// 走缓存路径时，超时与取消只终止调用方自身的等待：共享的在途执行
// 照常完成并回写缓存，请求不会从待处理队列移除。需要取消即出队的
// 语义请用 WithoutCache 绕过合并。
func (e *Engine) Predict(ctx context.Context, input []byte, opts ...PredictOption) ([]byte, error) {
	if e.closed.Load() {
		return nil, NewError(ErrCodeShutdown, "predict rejected").WithCause(ErrShutdown)
	}
	po := e.predictOptions(opts)

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, NewError(ErrCodeCancelled, "cancelled while rate limited").WithCause(err)
		}
	}

	ctx, span := e.tracer.Start(ctx, "infer.Predict")
	defer span.End()

	if e.cache == nil || !po.UseCache {
		return e.submitAndAwait(ctx, input, po.Timeout)
	}

	key := e.cache.Key(input)
	if value, ok := e.cache.Get(ctx, input); ok {
		e.hits.Add(1)
		e.collector.CacheHit()
		return value, nil
	}
	e.misses.Add(1)
	e.collector.CacheMiss()

	// 同键并发未命中合并为一次执行。在途请求不携带任何单个调用方的
	// 超时或取消：每个调用方（包括发起者）只在自己的等待 context 上
	// 停止等待，超时与取消互不串扰。
	ch := e.sf.DoChan(key, func() (any, error) {
		value, err := e.submitAndAwait(context.Background(), input, 0)
		if err != nil {
			return nil, err // 失败不缓存，原样上抛
		}
		e.cache.Put(e.runCtx, input, value, po.TTL)
		return value, nil
	})

	waitCtx := ctx
	if po.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, po.Timeout)
		defer cancel()
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-waitCtx.Done():
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			e.timedOut.Add(1)
			return nil, NewError(ErrCodeTimeout, "timed out waiting for shared result").WithCause(ErrTimeout)
		}
		e.cancelled.Add(1)
		return nil, NewError(ErrCodeCancelled, "cancelled waiting for shared result").WithCause(waitCtx.Err())
	}
}

// submitAndAwait 入队一个请求并等待其结果槽解析。
// 超时只让调用方停止等待，批照常执行；取消会尝试把仍未取批的请求移出队列。
func (e *Engine) submitAndAwait(ctx context.Context, input []byte, timeout time.Duration) ([]byte, error) {
	env := newEnvelope(input)
	if err := e.acc.Submit(env); err != nil {
		switch {
		case errors.Is(err, ErrShutdown):
			return nil, NewError(ErrCodeShutdown, "submit rejected").WithCause(err)
		case errors.Is(err, ErrQueueFull):
			return nil, NewError(ErrCodeQueueFull, "submit rejected").WithCause(err)
		default:
			return nil, err
		}
	}
	e.submitted.Add(1)
	e.collector.SetQueueDepth(e.acc.Len())

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case out := <-env.slot:
		return out.value, out.err
	case <-waitCtx.Done():
		if errors.Is(waitCtx.Err(), context.Canceled) {
			e.cancelled.Add(1)
			if e.acc.Cancel(env.id) {
				out := <-env.slot
				return nil, out.err
			}
			// 已取批：在途请求无法单独取消，调用方就此停止等待。
			return nil, NewError(ErrCodeCancelled, "cancelled after dispatch, batch completes regardless").
				WithCause(waitCtx.Err())
		}
		e.timedOut.Add(1)
		return nil, NewError(ErrCodeTimeout, "batch result not ready in time").WithCause(ErrTimeout)
	}
}

// Cache 返回引擎持有的缓存层，未启用时为 nil。
func (e *Engine) Cache() *cache.Layer { return e.cache }

// Shutdown 停止接纳新请求并排空在途批次。
// ctx 到期仍未排空时强制停机：取消在途执行器调用，剩余请求以执行错误解析。
// 幂等，重复调用等待同一次停机完成。
func (e *Engine) Shutdown(ctx context.Context) error {
	if e.closed.Swap(true) {
		select {
		case <-e.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	e.acc.Close()

	select {
	case <-e.done:
		e.runCancel()
		e.logger.Info("engine drained and stopped")
		return nil
	case <-ctx.Done():
		e.runCancel()
		e.logger.Warn("drain deadline exceeded, force stopping dispatch loop")
		<-e.done
		return ctx.Err()
	}
}
