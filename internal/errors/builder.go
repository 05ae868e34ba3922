package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorBuilder provides a fluent API for constructing rich errors. A builder
// is created with NewError, NewErrorf or WithError and finalized with Mark,
// which attaches one of the sentinel errors for classification.
type ErrorBuilder struct {
	err     error
	hint    string
	details map[string]any
}

// InternalError is the error type produced by the builder. It implements
// the unwrap interfaces used by errors.Is and errors.As.
type InternalError struct {
	cause   error
	mark    error
	hint    string
	details map[string]any
}

func (e *InternalError) Error() string {
	return e.cause.Error()
}

func (e *InternalError) Unwrap() []error {
	return []error{e.cause, e.mark}
}

// Hint returns the human readable hint attached to the error, if any.
func (e *InternalError) Hint() string {
	return e.hint
}

// Details returns the reportable details attached to the error, if any.
func (e *InternalError) Details() map[string]any {
	return e.details
}

// NewError starts a builder from a new error message.
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// NewErrorf starts a builder from a formatted error message.
func NewErrorf(format string, args ...any) *ErrorBuilder {
	return &ErrorBuilder{err: errors.Newf(format, args...)}
}

// WithError starts a builder wrapping an existing error.
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// WithHint attaches a human readable hint to the error.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.hint = hint
	return b
}

// WithHintf attaches a formatted human readable hint to the error.
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.hint = fmt.Sprintf(format, args...)
	return b
}

// WithReportableDetails attaches structured details safe to surface to callers.
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	b.details = details
	return b
}

// Mark finalizes the builder, classifying the error with the given sentinel.
func (b *ErrorBuilder) Mark(mark error) error {
	return &InternalError{
		cause:   b.err,
		mark:    mark,
		hint:    b.hint,
		details: b.details,
	}
}
