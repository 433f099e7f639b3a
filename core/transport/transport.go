package transport

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds every outbound call unless overridden.
const DefaultTimeout = 10 * time.Second

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware wraps an http.RoundTripper with additional behavior.
type Middleware func(http.RoundTripper) http.RoundTripper

// Chain builds a single round tripper from a middleware stack and a base.
// Middlewares are applied in reverse order so the first listed runs first.
func Chain(base http.RoundTripper, middlewares ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	rt := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		rt = middlewares[i](rt)
	}

	return rt
}

// NewClient returns an http.Client with the middleware chain installed and
// a bounded per-call timeout. A non-positive timeout falls back to
// DefaultTimeout.
func NewClient(timeout time.Duration, middlewares ...Middleware) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: Chain(nil, middlewares...),
	}
}
