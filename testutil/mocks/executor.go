// Package mocks 提供测试用的 Mock 实现，支持 Builder 模式与错误注入。
package mocks

import (
	"context"
	"sync"
	"time"
)

// MockExecutor 可编程的批量执行器 Mock。
// 默认对每个输入回显 "echo:"+input；可注入固定延迟、逐项延迟与错误。
type MockExecutor struct {
	mu sync.Mutex

	transform  func(input []byte) []byte
	fixedDelay time.Duration
	perItem    time.Duration
	err        error
	failAfter  int // 第 N 次调用起返回 err，0 表示每次都返回

	calls      int
	batchSizes []int
	inputs     [][][]byte
}

// NewMockExecutor 创建默认回显 Mock。
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		transform: func(input []byte) []byte {
			return append([]byte("echo:"), input...)
		},
	}
}

// WithTransform 设置输出变换函数。
func (m *MockExecutor) WithTransform(fn func(input []byte) []byte) *MockExecutor {
	m.transform = fn
	return m
}

// WithFixedDelay 设置每批固定延迟。
func (m *MockExecutor) WithFixedDelay(d time.Duration) *MockExecutor {
	m.fixedDelay = d
	return m
}

// WithPerItemDelay 设置逐项延迟：一批耗时 = 固定延迟 + 批大小×逐项延迟。
func (m *MockExecutor) WithPerItemDelay(d time.Duration) *MockExecutor {
	m.perItem = d
	return m
}

// WithError 注入整批失败错误。
func (m *MockExecutor) WithError(err error) *MockExecutor {
	m.err = err
	return m
}

// WithErrorAfter 从第 n 次调用起注入错误。
func (m *MockExecutor) WithErrorAfter(n int, err error) *MockExecutor {
	m.err = err
	m.failAfter = n
	return m
}

// Execute 实现 infer.Executor。
func (m *MockExecutor) Execute(ctx context.Context, inputs [][]byte) ([][]byte, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.batchSizes = append(m.batchSizes, len(inputs))
	recorded := make([][]byte, len(inputs))
	copy(recorded, inputs)
	m.inputs = append(m.inputs, recorded)
	delay := m.fixedDelay + time.Duration(len(inputs))*m.perItem
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.err != nil && (m.failAfter == 0 || call >= m.failAfter) {
		return nil, m.err
	}

	outputs := make([][]byte, len(inputs))
	for i, input := range inputs {
		outputs[i] = m.transform(input)
	}
	return outputs, nil
}

// Calls 返回已执行的批次数。
func (m *MockExecutor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// BatchSizes 返回每批的大小序列。
func (m *MockExecutor) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	sizes := make([]int, len(m.batchSizes))
	copy(sizes, m.batchSizes)
	return sizes
}

// Inputs 返回每批记录的输入。
func (m *MockExecutor) Inputs() [][][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][][]byte, len(m.inputs))
	copy(out, m.inputs)
	return out
}
