// Package http provides shared plumbing for LLM transports: typed errors,
// retry with backoff, pricing, logging, and call metrics.
package http

import (
	"fmt"
	stdhttp "net/http"
)

// ErrorType categorizes transport failures so callers can decide whether
// to retry, fall back, or give up.
type ErrorType int

const (
	ErrTypeAuthentication ErrorType = iota
	ErrTypeRateLimit
	ErrTypeServiceUnavailable
	ErrTypeInvalidRequest
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeUnknown
)

// String returns a human-readable description of the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrTypeAuthentication:
		return "authentication error"
	case ErrTypeRateLimit:
		return "rate limit exceeded"
	case ErrTypeServiceUnavailable:
		return "service unavailable"
	case ErrTypeInvalidRequest:
		return "invalid request"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeModelNotFound:
		return "model not found"
	default:
		return "unknown error"
	}
}

// Error is a transport failure with enough context to drive retry and
// fallback decisions.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Retryable  bool
	Provider   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s (status: %d)", e.Provider, e.Type.String(), e.Message, e.StatusCode)
}

// Is matches errors by type, enabling errors.Is against sentinel values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsRetryable reports whether the call may be retried.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewTimeoutError creates a retryable timeout error. Transports use this
// for deadline exceeded and connection failures.
func NewTimeoutError(provider, message string) *Error {
	return &Error{
		Type:      ErrTypeTimeout,
		Message:   message,
		Retryable: true,
		Provider:  provider,
	}
}

// FromStatus maps an HTTP status code to a typed Error. Rate limits and
// 5xx-equivalents are retryable; client errors are not. Status 529 is the
// Anthropic-specific "overloaded" signal and is treated as unavailable.
func FromStatus(provider string, statusCode int, message string) *Error {
	err := &Error{
		Message:    message,
		StatusCode: statusCode,
		Provider:   provider,
	}

	switch {
	case statusCode == stdhttp.StatusUnauthorized || statusCode == stdhttp.StatusForbidden:
		err.Type = ErrTypeAuthentication
	case statusCode == stdhttp.StatusTooManyRequests:
		err.Type = ErrTypeRateLimit
		err.Retryable = true
	case statusCode == stdhttp.StatusNotFound:
		err.Type = ErrTypeModelNotFound
	case statusCode == stdhttp.StatusBadRequest:
		err.Type = ErrTypeInvalidRequest
	case statusCode == 529 || statusCode >= 500:
		err.Type = ErrTypeServiceUnavailable
		err.Retryable = true
	default:
		err.Type = ErrTypeUnknown
	}

	return err
}
