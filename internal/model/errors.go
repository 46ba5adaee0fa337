package model

import (
	"fmt"

	"minisearch/internal/protocol"
)

// CodedError is the error currency of the whole service. Every failure that
// can reach a user or the model carries a stable code from the protocol
// package; Retryable tells callers whether backing off and repeating the
// request can help.
type CodedError struct {
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Message
}

func (e *CodedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches two CodedErrors by code, so errors.Is works against the
// sentinel values below regardless of message text.
func (e *CodedError) Is(target error) bool {
	t, ok := target.(*CodedError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// NotFound builds a NOT_FOUND error.
func NotFound(format string, args ...interface{}) *CodedError {
	return &CodedError{
		Code:    protocol.ErrorCodeNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// InvalidArgument builds an INVALID_ARGUMENT error.
func InvalidArgument(format string, args ...interface{}) *CodedError {
	return &CodedError{
		Code:    protocol.ErrorCodeInvalidArgument,
		Message: fmt.Sprintf(format, args...),
	}
}

// Timeout builds a TIMEOUT error wrapping cause.
func Timeout(message string, cause error) *CodedError {
	return &CodedError{
		Code:      protocol.ErrorCodeTimeout,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// StoreUnavailable builds a STORE_UNAVAILABLE error wrapping cause.
func StoreUnavailable(message string, cause error) *CodedError {
	return &CodedError{
		Code:    protocol.ErrorCodeStoreUnavailable,
		Message: message,
		Cause:   cause,
	}
}

// Sentinels for errors.Is checks. Matching is by code only.
var (
	ErrToolLoopExceeded = &CodedError{
		Code:    protocol.ErrorCodeToolLoopExceeded,
		Message: "tool call budget exhausted for this turn",
	}
	ErrRateLimited = &CodedError{
		Code:      protocol.ErrorCodeRateLimited,
		Message:   "request rate limit exceeded",
		Retryable: true,
	}
)

// CodeOf extracts the stable error code from err, walking the wrap chain.
// Errors without a code report UNEXPECTED_ERROR.
func CodeOf(err error) string {
	for err != nil {
		if coded, ok := err.(*CodedError); ok {
			return coded.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return protocol.ErrorCodeUnexpected
}
