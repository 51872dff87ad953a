// 版权所有 2026 InferFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供推理结果的内容寻址缓存层：对输入做规范化摘要作为键，
命中则跳过整条合批执行路径。

# 概述

缓存是性能优化而非正确性依赖。后端读失败按未命中处理（fail-open），
写失败只记日志，任何缓存故障都不会阻塞或失败一次推理请求。

# 核心接口

  - Backend：键值后端契约，进程内 LRU 与 Redis 两种实现遵守同一套
    TTL 与淘汰语义。
  - KeyStrategy：缓存键生成策略；默认策略对 JSON 输入中的浮点值
    按配置精度舍入后再哈希，使近似相同的输入共享缓存条目——
    这是有意的精度换命中率，不是缺陷。
  - Layer：面向引擎的门面，封装键生成、fail-open 与默认 TTL。

# 使用方式

	layer := cache.NewLayer(cache.NewLRUBackend(1024), cache.LayerConfig{
	    DefaultTTL: time.Hour,
	}, logger)

	if v, ok := layer.Get(ctx, input); ok {
	    return v
	}
*/
package cache
