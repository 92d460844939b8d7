package mcperrors

import (
	"errors"
	"fmt"
)

// Error is the structured error type returned by every indexing and search
// component. The tool surface is the single place that maps an unrecognized
// error to CodeInternal; the message it returns to a caller is the error's
// full text, cause included.
type Error struct {
	Code    Code
	Message string
	Details map[string]string
	Cause   error
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error from an existing error, preserving it as the cause.
func Wrap(code Code, message string, cause error) *Error {
	if cause == nil {
		return New(code, message)
	}
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap supports errors.Is/errors.As against the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, mcperrors.New(CodeX, "")) style comparisons by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail attaches a key/value detail, returning the error for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Retryable reports whether the failed operation is worth retrying as-is.
func (e *Error) Retryable() bool {
	return retryable(e.Code)
}

// CodeOf extracts the Code from err if it is (or wraps) an *Error, and
// CodeInternal otherwise. Used by the tool surface to build error envelopes.
func CodeOf(err error) Code {
	var me *Error
	if errors.As(err, &me) {
		return me.Code
	}
	return CodeInternal
}
