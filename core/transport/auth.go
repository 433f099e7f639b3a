package transport

import (
	"log/slog"
	"net/http"
)

// TokenSource supplies the current bearer credential, or "" when absent.
// The session store satisfies this interface.
type TokenSource interface {
	Token() string
}

// Evictor clears the session. The session store satisfies this interface.
type Evictor interface {
	Clear()
}

// BearerAuth attaches the current credential as an Authorization header.
// The token is read from the source at send time, so a request issued
// before a login or logout still carries whatever credential is current
// when it actually goes out. Requests are sent unmodified when no
// credential is installed or when the caller already set the header.
func BearerAuth(source TokenSource) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			token := source.Token()
			if token == "" || req.Header.Get("Authorization") != "" {
				return next.RoundTrip(req)
			}

			// RoundTrippers must not mutate the caller's request.
			clone := req.Clone(req.Context())
			clone.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(clone)
		})
	}
}

// EvictOnUnauthorized clears the session when the server rejects the
// presented credential with 401 Unauthorized. Eviction is a side effect:
// the original response is returned to the caller unchanged so the failure
// still propagates. No other status mutates session state.
func EvictOnUnauthorized(evictor Evictor, logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil {
				return nil, err
			}

			if resp.StatusCode == http.StatusUnauthorized {
				logger.InfoContext(req.Context(), "credential rejected, clearing session",
					slog.String("method", req.Method),
					slog.String("path", req.URL.Path))
				evictor.Clear()
			}

			return resp, nil
		})
	}
}
