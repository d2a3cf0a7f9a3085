// Package errors provides structured error types for readbench.
// Every error carries a category, code, message and a recoverable flag so the
// read path can tell the one recoverable condition (an unsupported read mode)
// apart from the fatal ones.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by the failing stage of a benchmark run.
type ErrorCategory string

const (
	ErrCategoryConfig       ErrorCategory = "CONFIG"
	ErrCategoryOpen         ErrorCategory = "OPEN"
	ErrCategoryUnsupported  ErrorCategory = "UNSUPPORTED"
	ErrCategoryRead         ErrorCategory = "READ"
	ErrCategorySizeMismatch ErrorCategory = "SIZE_MISMATCH"
	ErrCategoryFlush        ErrorCategory = "FLUSH"
	ErrCategoryInternal     ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Config codes
	CodeMissingArgument   = "MISSING_ARGUMENT"
	CodeInvalidArgument   = "INVALID_ARGUMENT"
	CodeConflictingFlags  = "CONFLICTING_FLAGS"
	CodeUnreadablePath    = "UNREADABLE_PATH"
	CodeInvalidConfigFile = "INVALID_CONFIG_FILE"

	// Open codes
	CodeConnectFailed = "CONNECT_FAILED"
	CodeOpenFailed    = "OPEN_FAILED"
	CodeStatFailed    = "STAT_FAILED"
	CodeMapFailed     = "MAP_FAILED"

	// Unsupported codes
	CodeZeroCopyUnsupported = "ZERO_COPY_UNSUPPORTED"

	// Read codes
	CodeReadFailed     = "READ_FAILED"
	CodeSeekFailed     = "SEEK_FAILED"
	CodeZeroCopyFailed = "ZERO_COPY_FAILED"

	// Size mismatch codes
	CodeUnexpectedEOF = "UNEXPECTED_EOF"
	CodeShortTotal    = "SHORT_TOTAL"

	// Flush codes
	CodeFlushFailed = "FLUSH_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// BenchError is the structured error type used throughout readbench.
type BenchError struct {
	Category    ErrorCategory
	Code        string
	Message     string
	Details     map[string]interface{}
	Cause       error
	Recoverable bool
}

// Error returns a formatted error string.
func (e *BenchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *BenchError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *BenchError) Is(target error) bool {
	var t *BenchError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new BenchError.
func New(category ErrorCategory, code, message string) *BenchError {
	return &BenchError{
		Category:    category,
		Code:        code,
		Message:     message,
		Recoverable: isRecoverable(category),
	}
}

// Wrap creates a new BenchError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *BenchError {
	return &BenchError{
		Category:    category,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: isRecoverable(category),
	}
}

// WithDetails returns a copy of the error with additional details merged
// over any existing ones.
func (e *BenchError) WithDetails(details map[string]interface{}) *BenchError {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+len(details))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	for k, v := range details {
		cp.Details[k] = v
	}
	return &cp
}

// IsRecoverable checks whether an error (or its chain) lets the run continue.
func IsRecoverable(err error) bool {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Recoverable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a BenchError.
func GetCategory(err error) ErrorCategory {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a BenchError.
func GetCode(err error) string {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// isRecoverable: only an unsupported read mode is recovered from (by falling
// back to standard reads). Everything else aborts the run.
func isRecoverable(category ErrorCategory) bool {
	return category == ErrCategoryUnsupported
}

// Convenience constructors for common errors.

func NewConfigError(code, message string) *BenchError {
	return New(ErrCategoryConfig, code, message)
}

func NewOpenError(code, message string, cause error) *BenchError {
	return Wrap(ErrCategoryOpen, code, message, cause)
}

func NewUnsupportedError(message string, cause error) *BenchError {
	return Wrap(ErrCategoryUnsupported, CodeZeroCopyUnsupported, message, cause)
}

func NewReadError(code, message string, cause error) *BenchError {
	return Wrap(ErrCategoryRead, code, message, cause)
}

func NewSizeMismatchError(code string, expected, actual int64) *BenchError {
	return New(ErrCategorySizeMismatch, code,
		fmt.Sprintf("expected %d bytes, read %d", expected, actual)).
		WithDetails(map[string]interface{}{"expected": expected, "actual": actual})
}

func NewFlushError(message string, cause error) *BenchError {
	return Wrap(ErrCategoryFlush, CodeFlushFailed, message, cause)
}

func NewInternalError(message string, cause error) *BenchError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
