package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultRetryAttempts is the number of retries after the initial attempt.
	DefaultRetryAttempts = 2
	// DefaultRetryBackoff is the base for exponential backoff between attempts.
	DefaultRetryBackoff = 100 * time.Millisecond
)

// RetryConfig configures the transient-retry middleware.
type RetryConfig struct {
	Attempts uint64        `env:"AUTH_API_RETRY_ATTEMPTS" envDefault:"2"`
	Backoff  time.Duration `env:"AUTH_API_RETRY_BACKOFF" envDefault:"100ms"`
}

// Retry retries idempotent requests that fail with a transport error or a
// gateway-class status (502, 503, 504), with exponential backoff. It never
// retries an authorization rejection: a 401 is a terminal answer about the
// credential and must reach the eviction stage and the caller untouched.
// Non-idempotent methods are passed through with a single attempt because
// their bodies cannot be replayed safely.
func Retry() Middleware {
	return RetryWithConfig(RetryConfig{
		Attempts: DefaultRetryAttempts,
		Backoff:  DefaultRetryBackoff,
	})
}

// RetryWithConfig is Retry with explicit settings.
func RetryWithConfig(cfg RetryConfig) Middleware {
	if cfg.Attempts == 0 {
		cfg.Attempts = DefaultRetryAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultRetryBackoff
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if !isIdempotent(req.Method) {
				return next.RoundTrip(req)
			}

			backoff := retry.WithMaxRetries(cfg.Attempts, retry.NewExponential(cfg.Backoff))

			var resp *http.Response
			err := retry.Do(req.Context(), backoff, func(ctx context.Context) error {
				var rtErr error
				resp, rtErr = next.RoundTrip(req)
				if rtErr != nil {
					return retry.RetryableError(rtErr)
				}
				if isTransientStatus(resp.StatusCode) {
					drain(resp)
					return retry.RetryableError(fmt.Errorf("transient status %d", resp.StatusCode))
				}
				return nil
			})
			if err != nil {
				return nil, err
			}

			return resp, nil
		})
	}
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func isTransientStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// drain releases the connection of a response we are about to discard.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
