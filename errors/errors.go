package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// AppError is the structured error type used across seqkit.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code, so the
// sentinel values below match any error built from the same constructor.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || t == nil {
		return false
	}
	return e.Code == t.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Sentinels for errors.Is checks. Compare with errors.Is, never with ==.
var (
	ErrInvalidArgument   = New(CodeInvalidArgument, "invalid argument")
	ErrInvalidConfig     = New(CodeInvalidConfig, "invalid configuration")
	ErrEmptySequence     = New(CodeEmptySequence, "sequence contains no elements")
	ErrOverflow          = New(CodeOverflow, "arithmetic overflow")
	ErrIndexOutOfRange   = New(CodeIndexOutOfRange, "index out of range")
	ErrCanceled          = New(CodeCanceled, "operation canceled")
	ErrDeadlineExceeded  = New(CodeDeadlineExceeded, "operation deadline exceeded")
	ErrConcurrentAdvance = New(CodeConcurrentAdvance, "iterator advanced concurrently")
)

// --- Constructors ---

// InvalidArgument creates an AppError for a bad constructor argument.
func InvalidArgument(argument, reason string) *AppError {
	return &AppError{
		Code:    CodeInvalidArgument,
		Message: fmt.Sprintf("invalid argument %s: %s", argument, reason),
		Details: map[string]any{"argument": argument},
	}
}

// NilArgument creates an AppError for a nil source, callback or comparer.
func NilArgument(argument string) *AppError {
	return InvalidArgument(argument, "must not be nil")
}

// InvalidConfig creates an AppError for configuration that failed validation.
func InvalidConfig(message string) *AppError {
	return &AppError{Code: CodeInvalidConfig, Message: message}
}

// EmptySequence creates an AppError for an aggregation over no elements.
func EmptySequence(operation string) *AppError {
	return &AppError{
		Code:    CodeEmptySequence,
		Message: "sequence contains no elements",
		Details: map[string]any{"operation": operation},
	}
}

// Overflow creates an AppError for an accumulation that overflowed its kind.
func Overflow(operation string) *AppError {
	return &AppError{
		Code:    CodeOverflow,
		Message: "arithmetic operation resulted in an overflow",
		Details: map[string]any{"operation": operation},
	}
}

// IndexOutOfRange creates an AppError for a positional lookup past the end.
func IndexOutOfRange(index int) *AppError {
	return &AppError{
		Code:    CodeIndexOutOfRange,
		Message: fmt.Sprintf("index %d is out of range", index),
		Details: map[string]any{"index": index},
	}
}

// ConcurrentAdvance creates an AppError for a reentrant Next call.
func ConcurrentAdvance() *AppError {
	return &AppError{Code: CodeConcurrentAdvance, Message: "iterator advanced while a previous advance was in flight"}
}

// Canceled converts a context error into a cancellation AppError. The
// original context error stays reachable through Unwrap.
func Canceled(cause error) *AppError {
	if stderrors.Is(cause, context.DeadlineExceeded) {
		return &AppError{Code: CodeDeadlineExceeded, Message: "operation deadline exceeded", Cause: cause}
	}
	return &AppError{Code: CodeCanceled, Message: "operation canceled", Cause: cause}
}

// --- Predicates ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCanceled reports whether err is a cancellation outcome: either a
// cancellation AppError or a bare context error.
func IsCanceled(err error) bool {
	if appErr, ok := AsAppError(err); ok && IsCancellationCode(appErr.Code) {
		return true
	}
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// IsEmptySequence reports whether err is an empty-sequence error.
func IsEmptySequence(err error) bool { return stderrors.Is(err, ErrEmptySequence) }

// IsInvalidArgument reports whether v, typically the value returned by
// recover, is an argument error.
func IsInvalidArgument(v any) bool {
	err, ok := v.(error)
	return ok && stderrors.Is(err, ErrInvalidArgument)
}

// Is and As are re-exported so callers can import this package in place of
// the standard library one.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Join returns an error that wraps the given errors, discarding nils.
func Join(errs ...error) error { return stderrors.Join(errs...) }
