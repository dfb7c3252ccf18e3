// Package bvherr defines common error types for the builder and the
// service shell around it.
package bvherr

import (
	"errors"
	"fmt"
)

// Error codes for the builder and its surrounding service shell.
const (
	CodeUnknown           = "UNKNOWN_ERROR"
	CodeCapacityExceeded  = "CAPACITY_EXCEEDED"
	CodeDepthLimit        = "DEPTH_LIMIT_REACHED"
	CodeInvalidPrimitive  = "INVALID_PRIMITIVE"
	CodeAllocationFailure = "ALLOCATION_FAILURE"
	CodeCancelled         = "BUILD_CANCELLED"
	CodeParseError        = "PARSE_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeTimeout           = "TIMEOUT_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeConfigError       = "CONFIG_ERROR"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeStorageError      = "STORAGE_ERROR"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances, one per code above.
var (
	ErrCapacityExceeded  = New(CodeCapacityExceeded, "spatial split replication budget exhausted")
	ErrDepthLimit        = New(CodeDepthLimit, "maximum build depth reached")
	ErrInvalidPrimitive  = New(CodeInvalidPrimitive, "primitive has a non-finite bound")
	ErrAllocationFailure = New(CodeAllocationFailure, "arena could not acquire another block")
	ErrCancelled         = New(CodeCancelled, "build cancelled by progress callback")
	ErrParseError        = New(CodeParseError, "parse error")
	ErrInvalidInput      = New(CodeInvalidInput, "invalid input")
	ErrTimeout           = New(CodeTimeout, "operation timeout")
	ErrNotFound          = New(CodeNotFound, "resource not found")
	ErrConfigError       = New(CodeConfigError, "configuration error")
	ErrDatabaseError     = New(CodeDatabaseError, "database error")
	ErrStorageError      = New(CodeStorageError, "storage error")
)

// IsCapacityExceeded checks if the error is a capacity-exceeded error.
// Builders treat this as recoverable: fall back to an object split, or to
// an unsplit leaf if the budget is gone too.
func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

// IsDepthLimit checks if the error is a depth-limit error.
func IsDepthLimit(err error) bool {
	return errors.Is(err, ErrDepthLimit)
}

// IsInvalidPrimitive checks if the error is an invalid-primitive error.
func IsInvalidPrimitive(err error) bool {
	return errors.Is(err, ErrInvalidPrimitive)
}

// IsAllocationFailure checks if the error is an allocation-failure error.
func IsAllocationFailure(err error) bool {
	return errors.Is(err, ErrAllocationFailure)
}

// IsCancelled checks if the error is a cancellation error.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsFatal reports whether err belongs to one of the two categories that
// must abort a build outright rather than being absorbed at the node
// that raised it.
func IsFatal(err error) bool {
	return IsAllocationFailure(err) || IsCancelled(err)
}

// IsDatabaseError checks if the error is a database error.
func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabaseError)
}

// IsStorageError checks if the error is a storage error.
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorageError)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// ErrorInfo maps the builder-specific error kinds to their codes.
var ErrorInfo = map[string]string{
	"CapacityExceeded":  CodeCapacityExceeded,
	"DepthLimit":        CodeDepthLimit,
	"InvalidPrimitive":  CodeInvalidPrimitive,
	"AllocationFailure": CodeAllocationFailure,
	"Cancelled":         CodeCancelled,
}
