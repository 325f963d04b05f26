package usecase

import "fmt"

// ErrorCode is the client-facing failure category; the handler maps each one
// to an HTTP status.
type ErrorCode string

const (
	ErrorInvalidInput         ErrorCode = "INVALID_INPUT"
	ErrorConfiguration        ErrorCode = "CONFIGURATION_ERROR"
	ErrorTimeout              ErrorCode = "TIMEOUT"
	ErrorUpstreamUnauthorized ErrorCode = "UPSTREAM_UNAUTHORIZED"
	ErrorRateLimited          ErrorCode = "RATE_LIMITED"
	ErrorMalformedResponse    ErrorCode = "MALFORMED_RESPONSE"
	ErrorNetwork              ErrorCode = "NETWORK_ERROR"
	ErrorUpstream             ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal             ErrorCode = "INTERNAL_ERROR"
)

// Error is the tagged failure returned by ChatService. Reason is a stable
// snake_case identifier for logs; Err carries the underlying detail.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
