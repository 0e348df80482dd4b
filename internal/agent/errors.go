package agent

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTransport covers everything that prevented a response from arriving:
	// dial failures, resets, timeouts, cancellation.
	ErrTransport = errors.New("agent transport failure")

	// ErrMalformedResponse is returned when a 2xx body cannot be decoded or
	// carries no reply message.
	ErrMalformedResponse = errors.New("agent returned a malformed response")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("agent responded with status %d", e.StatusCode)
}

// Kind labels an Invoke error for logs and metrics.
func Kind(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &statusErr):
		if statusErr.StatusCode >= 500 {
			return "server_error"
		}
		return "client_error"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "unknown"
	}
}

// IsRetryable reports whether resubmitting the same turn could succeed.
// The console never retries on its own; this only steers what the user is told in logs.
func IsRetryable(err error) bool {
	var statusErr *StatusError
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.As(err, &statusErr):
		return statusErr.StatusCode == 429 || statusErr.StatusCode >= 500
	case errors.Is(err, ErrMalformedResponse):
		return false
	default:
		return true
	}
}
