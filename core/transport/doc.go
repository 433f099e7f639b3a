// Package transport wraps every outbound HTTP call of the client in an
// ordered middleware pipeline around http.RoundTripper.
//
// The pipeline carries the cross-cutting authentication behavior:
//
//   - BearerAuth reads the current credential from its TokenSource at the
//     moment of send (never at construction time) and attaches it as a
//     Bearer Authorization header when present.
//   - EvictOnUnauthorized observes every response and, on a 401, clears the
//     session as a side effect while still handing the original response to
//     the caller unchanged. There is no silent retry with a refreshed
//     credential; no refresh protocol exists.
//   - Logging records method, path, status and duration for every call.
//   - Retry applies bounded exponential backoff to transient transport
//     failures of idempotent requests. Authorization rejections are never
//     retried; they must propagate so eviction stays caller-visible.
//
// Middlewares compose like handler chains, first listed runs first:
//
//	client := transport.NewClient(10*time.Second,
//	    transport.Logging(logger),
//	    transport.Retry(),
//	    transport.BearerAuth(store),
//	    transport.EvictOnUnauthorized(store, logger),
//	)
package transport
