// 版权所有 2026 InferFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 infer 提供动态批处理推理核心：将并发到达的独立推理请求合并为批次，
按延迟目标自适应调整批大小，并通过结果槽把批量输出逐一送回原调用方。

# 概述

逐条调用模型执行器会浪费批量推理的吞吐优势。本包通过 Accumulator 聚合
短时间窗口内到达的请求，由单一 Dispatch 循环统一取批、调用 Executor，
并按批内位置一一对应地解析每个请求的结果槽。Controller 根据每批实际
耗时相对延迟目标的偏差，在 [1, MaxBatchSize] 内上下调节目标批大小。

# 核心组件

  - Executor：批量推理能力接口，Execute 对整批输入返回整批输出。
  - Accumulator：并发安全的待处理队列，按目标批大小或等待超时取批。
  - Controller：延迟反馈控制器，维护目标批大小与延迟采样环形缓冲。
  - Engine：对外门面，Predict 走缓存→合批→等待结果槽，Shutdown 排空停机。

# 批次语义

  - 批内第 i 个输入对应第 i 个输出，位置对应关系贯穿始终。
  - 只要等待超时到期且有至少一个请求在队，立即冲刷，不凑满批。
  - 执行器整批失败时，批内全部请求收到同一个执行错误（全有或全无）。

# 使用方式

	eng, err := infer.NewEngine(infer.Config{MaxBatchSize: 8}, executor,
	    infer.WithEngineLogger(logger), infer.WithCache(layer))
	defer eng.Shutdown(context.Background())

	out, err := eng.Predict(ctx, input)
*/
package infer
