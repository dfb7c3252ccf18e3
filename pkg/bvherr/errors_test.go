package bvherr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			err:      New(CodeDepthLimit, "maximum depth reached"),
			expected: "[DEPTH_LIMIT_REACHED] maximum depth reached",
		},
		{
			name:     "with underlying error",
			err:      Wrap(CodeAllocationFailure, "arena exhausted", errors.New("os: out of memory")),
			expected: "[ALLOCATION_FAILURE] arena exhausted: os: out of memory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeCapacityExceeded, "split replication failed", underlying)

	unwrapped := err.Unwrap()
	assert.Equal(t, underlying, unwrapped)
}

func TestAppError_Is(t *testing.T) {
	err1 := New(CodeCapacityExceeded, "error 1")
	err2 := New(CodeCapacityExceeded, "error 2")
	err3 := New(CodeDepthLimit, "error 3")

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestIsCapacityExceeded(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "sentinel", err: ErrCapacityExceeded, expected: true},
		{name: "wrapped", err: Wrap(CodeCapacityExceeded, "budget gone", errors.New("geomID bits exhausted")), expected: true},
		{name: "other code", err: ErrDepthLimit, expected: false},
		{name: "nil", err: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsCapacityExceeded(tt.err))
		})
	}
}

func TestIsDepthLimit(t *testing.T) {
	assert.True(t, IsDepthLimit(ErrDepthLimit))
	assert.False(t, IsDepthLimit(ErrCapacityExceeded))
}

func TestIsInvalidPrimitive(t *testing.T) {
	assert.True(t, IsInvalidPrimitive(ErrInvalidPrimitive))
	assert.False(t, IsInvalidPrimitive(ErrDepthLimit))
}

func TestIsAllocationFailure(t *testing.T) {
	assert.True(t, IsAllocationFailure(ErrAllocationFailure))
	assert.False(t, IsAllocationFailure(ErrCancelled))
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(ErrCancelled))
	assert.False(t, IsCancelled(ErrAllocationFailure))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrAllocationFailure))
	assert.True(t, IsFatal(ErrCancelled))
	assert.False(t, IsFatal(ErrDepthLimit))
	assert.False(t, IsFatal(ErrCapacityExceeded))
	assert.False(t, IsFatal(ErrInvalidPrimitive))
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "app error",
			err:      New(CodeDepthLimit, "depth"),
			expected: CodeDepthLimit,
		},
		{
			name:     "wrapped app error",
			err:      Wrap(CodeCapacityExceeded, "capacity", errors.New("inner")),
			expected: CodeCapacityExceeded,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: CodeUnknown,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: CodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCode(tt.err))
		})
	}
}

func TestGetErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "app error",
			err:      New(CodeDepthLimit, "maximum depth reached"),
			expected: "maximum depth reached",
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: "standard error",
		},
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorMessage(tt.err))
		})
	}
}

func TestErrorInfo(t *testing.T) {
	assert.Equal(t, CodeCapacityExceeded, ErrorInfo["CapacityExceeded"])
	assert.Equal(t, CodeDepthLimit, ErrorInfo["DepthLimit"])
	assert.Equal(t, CodeInvalidPrimitive, ErrorInfo["InvalidPrimitive"])
	assert.Equal(t, CodeAllocationFailure, ErrorInfo["AllocationFailure"])
	assert.Equal(t, CodeCancelled, ErrorInfo["Cancelled"])
}
