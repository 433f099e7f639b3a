// Package gate decides whether a protected view may render. The decision is
// a pure, synchronous read of the session state: no I/O, no side effects.
// Consumers re-check on every session change published by the store.
package gate

import "net/http"

// DefaultLoginPath is where denied access attempts are redirected.
const DefaultLoginPath = "/login"

// AuthReader reports the current authentication state. The session store
// satisfies this interface.
type AuthReader interface {
	IsAuthenticated() bool
}

// Decision is the outcome of one gate check.
type Decision struct {
	Allowed    bool
	RedirectTo string // entry view path; empty when allowed
}

// Gate is the only consumer-facing authority for "may this view render".
type Gate struct {
	auth      AuthReader
	loginPath string
}

// Option configures a Gate.
type Option func(*Gate)

// WithLoginPath overrides the entry view path. Default is "/login".
func WithLoginPath(path string) Option {
	return func(g *Gate) {
		if path != "" {
			g.loginPath = path
		}
	}
}

// New creates a Gate reading authentication state from auth.
func New(auth AuthReader, opts ...Option) *Gate {
	g := &Gate{
		auth:      auth,
		loginPath: DefaultLoginPath,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Allowed reports whether protected views may currently render.
func (g *Gate) Allowed() bool {
	return g.auth.IsAuthenticated()
}

// Check returns the full decision: admit, or redirect to the entry view.
func (g *Gate) Check() Decision {
	if g.auth.IsAuthenticated() {
		return Decision{Allowed: true}
	}
	return Decision{RedirectTo: g.loginPath}
}

// Protect wraps a locally served protected view: unauthenticated requests
// are redirected to the entry view with 303 See Other, authenticated ones
// pass through. The check runs per request, so an eviction takes effect on
// the very next render.
func (g *Gate) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := g.Check()
		if !decision.Allowed {
			http.Redirect(w, r, decision.RedirectTo, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
