// Package apperr defines the engine's error taxonomy.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an engine error.
type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindUpstreamTimeout  Kind = "upstream_timeout"
	KindUpstream         Kind = "upstream_error"
	KindStore            Kind = "store_error"
	KindInternal         Kind = "internal_error"
)

// Error carries a kind, a safe client message, and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	// RetryAfter is a hint for retryable kinds (capacity, timeout).
	RetryAfter time.Duration
	// Status is the upstream HTTP status for KindUpstream, zero otherwise.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports a missing or malformed request field.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// CapacityExceeded reports admission rejection with a retry hint.
func CapacityExceeded(retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindCapacityExceeded,
		Message:    "too many concurrent requests",
		RetryAfter: retryAfter,
	}
}

// UpstreamTimeout reports a provider deadline expiry.
func UpstreamTimeout(err error) *Error {
	return &Error{
		Kind:       KindUpstreamTimeout,
		Message:    "upstream call timed out",
		RetryAfter: 5 * time.Second,
		Err:        err,
	}
}

// Upstream reports a non-2xx provider response.
func Upstream(status int, err error) *Error {
	msg := "upstream provider error"
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		msg = "upstream authentication failed"
	case status == http.StatusTooManyRequests:
		msg = "upstream rate limit exceeded"
	case status >= 500:
		msg = "upstream server error"
	}
	return &Error{Kind: KindUpstream, Message: msg, Status: status, Err: err}
}

// Store wraps a persistence failure.
func Store(op string, err error) *Error {
	return &Error{Kind: KindStore, Message: fmt.Sprintf("store operation %s failed", op), Err: err}
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf extracts the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the status code exposed to the client.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindCapacityExceeded:
		return http.StatusServiceUnavailable
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
