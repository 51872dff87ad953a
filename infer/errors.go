package infer

import (
	"errors"
	"fmt"
)

// 统一的推理核心错误码，用于对齐可重试性与上层降级策略。
type ErrorCode string

const (
	ErrCodeExecutor         ErrorCode = "INFER_EXECUTOR_ERROR"    // 执行器整批失败
	ErrCodeTimeout          ErrorCode = "INFER_TIMEOUT"           // 调用方等待超时
	ErrCodeCancelled        ErrorCode = "INFER_CANCELLED"         // 调用方在派发前取消
	ErrCodeShutdown         ErrorCode = "INFER_SHUTDOWN"          // 停机后提交被拒绝
	ErrCodeQueueFull        ErrorCode = "INFER_QUEUE_FULL"        // 待处理队列已满
	ErrCodeCacheUnavailable ErrorCode = "INFER_CACHE_UNAVAILABLE" // 缓存后端不可用（仅日志，不上抛）
)

var (
	ErrShutdown  = errors.New("engine shutdown in progress")
	ErrQueueFull = errors.New("pending queue full")
	ErrCancelled = errors.New("request cancelled before dispatch")
	ErrTimeout   = errors.New("request timed out waiting for batch result")
)

// Error 携带错误码与底层原因的结构化错误。
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层原因。
func (e *Error) Unwrap() error { return e.Cause }

// NewError 创建带错误码的结构化错误。
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause 附加底层原因。
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// GetErrorCode 提取错误码，非结构化错误返回空串。
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable 判断错误是否可由上层重试。
// 执行错误不在核心内重试：整批盲目重试会把同一失败放大到无关请求。
func IsRetryable(err error) bool {
	switch GetErrorCode(err) {
	case ErrCodeTimeout, ErrCodeQueueFull:
		return true
	default:
		return false
	}
}

func executorError(cause error) *Error {
	return NewError(ErrCodeExecutor, "executor failed for whole batch").WithCause(cause)
}
