package transport

import (
	"log/slog"
	"net/http"
	"time"
)

// Logging records every outbound call with method, path, status and
// duration. The Authorization header is never logged. Transport failures
// are logged and re-raised unchanged; this stage never mutates session
// state or the response.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()

			resp, err := next.RoundTrip(req)
			if err != nil {
				logger.ErrorContext(req.Context(), "outbound request failed",
					slog.String("method", req.Method),
					slog.String("path", req.URL.Path),
					slog.Duration("duration", time.Since(start)),
					slog.Any("error", err))
				return nil, err
			}

			logger.DebugContext(req.Context(), "outbound request",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", resp.StatusCode),
				slog.Duration("duration", time.Since(start)))

			return resp, nil
		})
	}
}
