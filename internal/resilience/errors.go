// Package resilience wraps calls to third-party services with retry and
// circuit breaking. Enrichment steps never surface these errors to callers;
// they log and fall back, so the policies here only decide how hard to try.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// StatusCoder is implemented by client errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// UpstreamError is a failed call to a named upstream service.
type UpstreamError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// HTTPStatus returns the upstream status, or 0 for transport failures.
func (e *UpstreamError) HTTPStatus() int { return e.StatusCode }

// Upstream builds an UpstreamError. A zero status marks a transport failure.
func Upstream(service string, status int, err error) error {
	return &UpstreamError{Service: service, StatusCode: status, Err: err}
}

// TemporaryStatus reports whether an HTTP status is worth retrying.
func TemporaryStatus(code int) bool {
	switch code {
	case 0, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= 500
}

// Retryable reports whether err is worth another attempt. Cancellation never is.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrOpen) {
		return false
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return TemporaryStatus(sc.HTTPStatus())
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
