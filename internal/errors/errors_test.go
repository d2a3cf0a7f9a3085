package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestBenchError_Error(t *testing.T) {
	err := New(ErrCategoryConfig, CodeMissingArgument, "--type is required")
	expected := "[CONFIG:MISSING_ARGUMENT] --type is required"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestBenchError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCategoryOpen, CodeConnectFailed, "connect to dfs", cause)
	expected := "[OPEN:CONNECT_FAILED] connect to dfs: connection refused"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestBenchError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ErrCategoryRead, CodeReadFailed, "pread", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestBenchError_Is(t *testing.T) {
	err1 := New(ErrCategoryRead, CodeReadFailed, "first")
	err2 := New(ErrCategoryRead, CodeReadFailed, "second")
	err3 := New(ErrCategoryRead, CodeSeekFailed, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		category    ErrorCategory
		code        string
		recoverable bool
	}{
		{ErrCategoryUnsupported, CodeZeroCopyUnsupported, true},
		{ErrCategoryConfig, CodeConflictingFlags, false},
		{ErrCategoryOpen, CodeOpenFailed, false},
		{ErrCategoryRead, CodeReadFailed, false},
		{ErrCategoryRead, CodeZeroCopyFailed, false},
		{ErrCategorySizeMismatch, CodeUnexpectedEOF, false},
		{ErrCategoryFlush, CodeFlushFailed, false},
		{ErrCategoryInternal, CodeUnexpected, false},
	}

	for _, tt := range tests {
		err := New(tt.category, tt.code, "test")
		if IsRecoverable(err) != tt.recoverable {
			t.Errorf("%s:%s recoverable=%v, want %v", tt.category, tt.code, IsRecoverable(err), tt.recoverable)
		}
	}

	if IsRecoverable(fmt.Errorf("plain")) {
		t.Error("plain errors are never recoverable")
	}
}

func TestGetCategory(t *testing.T) {
	err := fmt.Errorf("worker 2: %w", New(ErrCategoryRead, CodeReadFailed, "pread"))
	if GetCategory(err) != ErrCategoryRead {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryRead)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-BenchError should return empty category")
	}
}

func TestGetCode(t *testing.T) {
	err := New(ErrCategorySizeMismatch, CodeShortTotal, "short")
	if GetCode(err) != CodeShortTotal {
		t.Errorf("got %q, want %q", GetCode(err), CodeShortTotal)
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-BenchError should return empty code")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(ErrCategoryConfig, CodeInvalidArgument, "bad buffer")
	detailed := err.WithDetails(map[string]interface{}{"flag": "buffer"})

	if detailed.Details["flag"] != "buffer" {
		t.Error("WithDetails should set details")
	}
	if err.Details != nil {
		t.Error("WithDetails should not modify original")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cause := fmt.Errorf("io error")

	c := NewConfigError(CodeMissingArgument, "no type")
	if c.Category != ErrCategoryConfig || c.Code != CodeMissingArgument {
		t.Error("NewConfigError mismatch")
	}

	o := NewOpenError(CodeOpenFailed, "open", cause)
	if o.Category != ErrCategoryOpen || !errors.Is(o, cause) {
		t.Error("NewOpenError mismatch")
	}

	u := NewUnsupportedError("zero-copy", cause)
	if u.Category != ErrCategoryUnsupported || !u.Recoverable {
		t.Error("NewUnsupportedError mismatch")
	}

	r := NewReadError(CodeReadFailed, "read", cause)
	if r.Category != ErrCategoryRead || r.Recoverable {
		t.Error("NewReadError mismatch")
	}

	s := NewSizeMismatchError(CodeShortTotal, 4097, 4096)
	if s.Category != ErrCategorySizeMismatch || s.Details["expected"] != int64(4097) {
		t.Error("NewSizeMismatchError mismatch")
	}
	if s.Error() != "[SIZE_MISMATCH:SHORT_TOTAL] expected 4097 bytes, read 4096" {
		t.Errorf("unexpected message %q", s.Error())
	}

	f := NewFlushError("flush", cause)
	if f.Category != ErrCategoryFlush || f.Code != CodeFlushFailed {
		t.Error("NewFlushError mismatch")
	}

	i := NewInternalError("unexpected", cause)
	if i.Category != ErrCategoryInternal || i.Code != CodeUnexpected {
		t.Error("NewInternalError mismatch")
	}
}
