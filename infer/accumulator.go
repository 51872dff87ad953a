package infer

import (
	"sync"
	"time"
)

// Accumulator 并发安全的待处理队列：调用方 Submit 入队，
// 派发循环 Collect 按目标批大小或等待超时取批。
//
// 待处理队列是唯一同时被调用方和派发循环修改的结构，由单一互斥锁保护；
// 队列规模小，取消时的 O(n) 扫描可以接受。
type Accumulator struct {
	mu      sync.Mutex
	pending []*envelope
	closed  bool

	maxQueue int
	notify   chan struct{} // 入队信号，容量 1，非阻塞发送
	closeCh  chan struct{}
}

// NewAccumulator 创建待处理队列，maxQueue 为队列容量上限。
func NewAccumulator(maxQueue int) *Accumulator {
	if maxQueue <= 0 {
		maxQueue = defaultQueueSize
	}
	return &Accumulator{
		maxQueue: maxQueue,
		notify:   make(chan struct{}, 1),
		closeCh:  make(chan struct{}),
	}
}

// Submit 追加请求到待处理队列，可被任意多个调用方并发调用。
// 停机后提交返回 ErrShutdown，队列满返回 ErrQueueFull。
func (a *Accumulator) Submit(env *envelope) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrShutdown
	}
	if len(a.pending) >= a.maxQueue {
		a.mu.Unlock()
		return ErrQueueFull
	}
	a.pending = append(a.pending, env)
	a.mu.Unlock()

	select {
	case a.notify <- struct{}{}:
	default:
	}
	return nil
}

// Cancel 将仍在队列中的请求移出并以取消错误解析其结果槽。
// 请求已被取批时返回 false：交给执行器后的请求无法单独取消。
func (a *Accumulator) Cancel(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, env := range a.pending {
		if env.id == id {
			a.pending = append(a.pending[:i], a.pending[i+1:]...)
			env.resolve(nil, NewError(ErrCodeCancelled, "cancelled before dispatch").WithCause(ErrCancelled))
			return true
		}
	}
	return false
}

// Collect 阻塞派发循环直到以下任一条件满足，返回非空批：
//
//   - 待处理请求达到 target（target 是上限，不是冲刷下限）；
//   - 自首个待处理请求入队起已经过 maxWait；
//   - 队列停机（此时冲刷剩余请求；无剩余则返回空批）。
//
// target 在调用开始时生效；派发循环下一轮 Collect 才会看到新的目标值。
func (a *Accumulator) Collect(target int, maxWait time.Duration) *Batch {
	if target < 1 {
		target = 1
	}

	timer := time.NewTimer(maxWait)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		a.mu.Lock()
		if len(a.pending) == 0 {
			closed := a.closed
			a.mu.Unlock()
			if closed {
				return &Batch{formedAt: time.Now()}
			}
			// 空队列：等待首个请求入队或停机。
			select {
			case <-a.notify:
			case <-a.closeCh:
			}
			continue
		}

		// 等待截止时刻以当前队首请求的入队时间为基准；
		// 队首被取消后基准随新队首后移。
		deadline := a.pending[0].submittedAt.Add(maxWait)
		if len(a.pending) >= target || a.closed || !time.Now().Before(deadline) {
			return a.takeLocked(target)
		}
		a.mu.Unlock()

		timer.Reset(time.Until(deadline))
		select {
		case <-a.notify:
		case <-timer.C:
		case <-a.closeCh:
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
}

// takeLocked 取走最多 target 个请求，调用方必须持锁，返回前释放。
func (a *Accumulator) takeLocked(target int) *Batch {
	n := len(a.pending)
	if n > target {
		n = target
	}
	batch := &Batch{
		envelopes: make([]*envelope, n),
		formedAt:  time.Now(),
	}
	copy(batch.envelopes, a.pending[:n])
	a.pending = append(a.pending[:0], a.pending[n:]...)
	a.mu.Unlock()
	return batch
}

// Len 返回当前待处理请求数。
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Close 停止接纳新请求并唤醒阻塞中的 Collect。幂等。
func (a *Accumulator) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()
	close(a.closeCh)
}
