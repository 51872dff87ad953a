package infer

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Executor 批量推理能力接口，由具体模型后端实现。
// 成功时 len(outputs) == len(inputs)，且第 i 个输出对应第 i 个输入；
// 失败时返回代表整批失败的单一错误。
type Executor interface {
	Execute(ctx context.Context, inputs [][]byte) ([][]byte, error)
}

// ExecutorFunc 将普通函数适配为 Executor。
type ExecutorFunc func(ctx context.Context, inputs [][]byte) ([][]byte, error)

func (f ExecutorFunc) Execute(ctx context.Context, inputs [][]byte) ([][]byte, error) {
	return f(ctx, inputs)
}

// outcome 结果槽的一次性载荷：值或错误，二者取一。
type outcome struct {
	value []byte
	err   error
}

// envelope 单个待处理推理请求及其完成句柄。
// 创建后除结果槽的一次性写入外不再修改。
type envelope struct {
	id          string
	input       []byte
	submittedAt time.Time
	slot        chan outcome // 容量 1，恰好写入一次
}

func newEnvelope(input []byte) *envelope {
	return &envelope{
		id:          uuid.NewString(),
		input:       input,
		submittedAt: time.Now(),
		slot:        make(chan outcome, 1),
	}
}

// resolve 写入结果槽。槽由唯一所有者（派发循环或取消路径）恰好写一次，
// 写入方在移交所有权的互斥区内决出，因此无需额外同步。
func (e *envelope) resolve(value []byte, err error) {
	e.slot <- outcome{value: value, err: err}
	close(e.slot)
}

// Batch 一次派发的有序请求组，插入顺序即输出下标对应顺序。
type Batch struct {
	envelopes []*envelope
	formedAt  time.Time
}

// Size 返回批内请求数。
func (b *Batch) Size() int { return len(b.envelopes) }

// Empty 判断批是否为空（仅在停机排空后出现）。
func (b *Batch) Empty() bool { return len(b.envelopes) == 0 }

func (b *Batch) inputs() [][]byte {
	inputs := make([][]byte, len(b.envelopes))
	for i, env := range b.envelopes {
		inputs[i] = env.input
	}
	return inputs
}

// resolveAll 以同一错误解析批内全部结果槽（整批失败扇出）。
func (b *Batch) resolveAll(err error) {
	for _, env := range b.envelopes {
		env.resolve(nil, err)
	}
}
