package infer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewError(ErrCodeExecutor, "executor failed").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "INFER_EXECUTOR_ERROR")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestError_WithoutCause(t *testing.T) {
	err := NewError(ErrCodeShutdown, "submit rejected")
	assert.Nil(t, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "submit rejected")
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"structured error", NewError(ErrCodeTimeout, "t"), ErrCodeTimeout},
		{"wrapped structured error", NewError(ErrCodeQueueFull, "q").WithCause(ErrQueueFull), ErrCodeQueueFull},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCode(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewError(ErrCodeTimeout, "t")))
	assert.True(t, IsRetryable(NewError(ErrCodeQueueFull, "q")))
	assert.False(t, IsRetryable(NewError(ErrCodeExecutor, "e")), "batch failures must not be blindly retried")
	assert.False(t, IsRetryable(NewError(ErrCodeCancelled, "c")))
	assert.False(t, IsRetryable(NewError(ErrCodeShutdown, "s")))
	assert.False(t, IsRetryable(errors.New("plain")))
}
