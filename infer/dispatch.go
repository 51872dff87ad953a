package infer

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// run 派发循环：取批 → 执行 → 记录延迟 → 按位置解析结果槽。
// 每个引擎恰好一条循环 goroutine，生命周期与引擎一致。
func (e *Engine) run() {
	defer close(e.done)

	for {
		batch := e.acc.Collect(e.ctrl.CurrentTarget(), e.cfg.MaxWait)
		if batch.Empty() {
			// 只有停机排空后 Collect 才会返回空批。
			e.logger.Info("dispatch loop stopped",
				zap.Int64("batches", e.batches.Load()),
				zap.Int64("completed", e.completed.Load()))
			return
		}
		e.executeBatch(batch)
	}
}

// executeBatch 执行一批并解析全部结果槽。
// 执行器对整批要么全部成功要么整体失败；失败时批内每个请求收到同一错误，
// 核心不做自动重试，重试策略留给调用方。
func (e *Engine) executeBatch(batch *Batch) {
	ctx, span := e.tracer.Start(e.runCtx, "infer.ExecuteBatch",
		trace.WithAttributes(attribute.Int("batch.size", batch.Size())))
	defer span.End()

	start := time.Now()
	outputs, err := e.exec.Execute(ctx, batch.inputs())
	latency := time.Since(start)

	e.batches.Add(1)
	e.ctrl.RecordBatchLatency(latency, batch.Size())
	e.collector.ObserveBatch(batch.Size(), latency)
	e.collector.SetTargetBatchSize(e.ctrl.CurrentTarget())
	e.collector.SetQueueDepth(e.acc.Len())

	if err != nil {
		e.failed.Add(int64(batch.Size()))
		e.logger.Warn("executor failed for whole batch",
			zap.Int("batch_size", batch.Size()),
			zap.Duration("latency", latency),
			zap.Error(err))
		batch.resolveAll(executorError(err))
		return
	}
	if len(outputs) != batch.Size() {
		e.failed.Add(int64(batch.Size()))
		e.logger.Error("executor broke positional contract",
			zap.Int("inputs", batch.Size()),
			zap.Int("outputs", len(outputs)))
		batch.resolveAll(executorError(
			fmt.Errorf("executor returned %d outputs for %d inputs", len(outputs), batch.Size())))
		return
	}

	// 批内第 i 个输出对应第 i 个输入。
	for i, env := range batch.envelopes {
		env.resolve(outputs[i], nil)
	}
	e.completed.Add(int64(batch.Size()))

	e.logger.Debug("batch resolved",
		zap.Int("batch_size", batch.Size()),
		zap.Duration("latency", latency),
		zap.Int("next_target", e.ctrl.CurrentTarget()))
}
