// Copyright 2026 InferFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 InferFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，避免各包重复实现
相似的测试基础设施。所有测试应优先使用此包中的工具函数和 Mock 实现。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步断言: WaitFor / WaitForChannel，支持超时轮询等待条件满足

# 子包

  - testutil/mocks: Mock 实现，包括 MockExecutor（批量执行器），
    支持 Builder 模式、延迟注入与错误注入

# 使用示例

	ctx := testutil.TestContext(t)
	exec := mocks.NewMockExecutor().WithPerItemDelay(5 * time.Millisecond)
	eng, err := infer.NewEngine(cfg, exec)
*/
package testutil
