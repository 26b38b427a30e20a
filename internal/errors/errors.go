// Package errors defines the single error taxonomy every component surfaces
// through. Each failure carries a distinguishing kind so callers can branch
// on classification instead of string matching.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an error.
type Kind string

const (
	// KindAuth marks invalid or revoked credentials. Never retried.
	KindAuth Kind = "authentication"
	// KindRateLimited marks a Provider throttle that survived every retry.
	KindRateLimited Kind = "rate_limited"
	// KindQuery marks a caller-correctable 4xx. Never retried.
	KindQuery Kind = "query"
	// KindServer marks a Provider 5xx that survived every retry.
	KindServer Kind = "server"
	// KindTransport marks network or I/O failure after retries.
	KindTransport Kind = "transport"
	// KindProtocol marks a malformed Provider response body.
	KindProtocol Kind = "protocol"
	// KindTableExists marks a storage create against an existing table.
	KindTableExists Kind = "table_exists"
	// KindTableNotFound marks a storage operation against a missing table.
	KindTableNotFound Kind = "table_not_found"
	// KindConfig marks invalid configuration or arguments.
	KindConfig Kind = "config"
	// KindPartial marks a parallel fetch that completed with failed slices.
	KindPartial Kind = "partial"
)

// Error is the taxonomy's carrier. Endpoint and StatusCode are set for
// failures that crossed the wire; RetryAfter holds the server-advertised
// delay in seconds for rate limits.
type Error struct {
	Kind       Kind
	Message    string
	Endpoint   string
	StatusCode int
	RetryAfter int
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Endpoint != "" {
		msg += fmt.Sprintf(" (endpoint %s)", e.Endpoint)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap exposes the wrapped cause for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithEndpoint records the endpoint the failure occurred against.
func (e *Error) WithEndpoint(endpoint string) *Error {
	e.Endpoint = endpoint
	return e
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NewAuth creates an authentication failure.
func NewAuth(message string) *Error {
	return New(KindAuth, message)
}

// NewRateLimited creates a rate-limit failure carrying the server-advertised
// retry delay in seconds.
func NewRateLimited(message string, retryAfter int) *Error {
	return &Error{Kind: KindRateLimited, Message: message, StatusCode: 429, RetryAfter: retryAfter}
}

// NewQuery creates a caller-correctable query failure.
func NewQuery(message string) *Error {
	return New(KindQuery, message)
}

// NewServer creates a server failure.
func NewServer(message string, status int) *Error {
	return &Error{Kind: KindServer, Message: message, StatusCode: status}
}

// NewTransport creates a network failure around a cause.
func NewTransport(message string, err error) *Error {
	return Wrap(KindTransport, message, err)
}

// NewProtocol creates a malformed-response failure.
func NewProtocol(message string) *Error {
	return New(KindProtocol, message)
}

// NewProtocolf creates a malformed-response failure with a formatted message.
func NewProtocolf(format string, args ...any) *Error {
	return Newf(KindProtocol, format, args...)
}

// NewTableExists creates a storage precondition failure for a table that
// already exists.
func NewTableExists(name string) *Error {
	return Newf(KindTableExists, "table %q already exists", name)
}

// NewTableNotFound creates a storage precondition failure for a missing
// table.
func NewTableNotFound(name string) *Error {
	return Newf(KindTableNotFound, "table %q not found", name)
}

// NewPartialf creates a partial-failure error with a formatted message.
func NewPartialf(format string, args ...any) *Error {
	return Newf(KindPartial, format, args...)
}

// NewConfig creates a configuration failure.
func NewConfig(message string) *Error {
	return New(KindConfig, message)
}

// KindOf returns the kind of err, or an empty kind for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// AsError extracts the taxonomy carrier from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := stderrors.As(err, &e)
	return e, ok
}

// Retryable reports whether the failure class is worth retrying: rate
// limits, server errors, and transport errors qualify.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindServer, KindTransport:
		return true
	default:
		return false
	}
}

// ExitCode maps an error to the CLI exit-code contract: 0 success,
// 1 generic or partial failure, 2 authentication, 3 invalid arguments,
// 5 rate limited.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindAuth:
		return 2
	case KindQuery, KindConfig:
		return 3
	case KindRateLimited:
		return 5
	default:
		return 1
	}
}
