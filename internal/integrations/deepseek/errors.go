package deepseek

import (
	"context"
	"errors"
	"fmt"
	"net"

	"bilingual-tutor/internal/domain"
)

// Error is a classified completion failure. StatusCode and Body are only set
// for upstream errors.
type Error struct {
	Kind       domain.FailureKind
	StatusCode int
	URL        string
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Kind == domain.FailureUpstream:
		return fmt.Sprintf("deepseek: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("deepseek: %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("deepseek: %s", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FailureKind reports the classification of the failure.
func (e *Error) FailureKind() domain.FailureKind {
	return e.Kind
}

// HTTPStatusCode returns the upstream status, or 0 when no response was read.
func (e *Error) HTTPStatusCode() int {
	return e.StatusCode
}

func transportError(err error) *Error {
	if isTimeout(err) {
		return &Error{Kind: domain.FailureTimeout, Err: err}
	}
	return &Error{Kind: domain.FailureNetwork, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
