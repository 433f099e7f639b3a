package transport_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionkit/sessionkit/core/transport"
)

// fakeSession implements transport.TokenSource and transport.Evictor.
type fakeSession struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (f *fakeSession) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeSession) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeSession) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.cleared++
}

func (f *fakeSession) Cleared() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// headerRecorder captures Authorization headers observed by the test server.
// Handlers run in the server's goroutines, so access is synchronized.
type headerRecorder struct {
	mu     sync.Mutex
	values []string
}

func (h *headerRecorder) record(r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.values = append(h.values, r.Header.Get("Authorization"))
}

func (h *headerRecorder) all() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.values...)
}

func (h *headerRecorder) last() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.values) == 0 {
		return ""
	}
	return h.values[len(h.values)-1]
}

func TestBearerAuth(t *testing.T) {
	t.Parallel()

	t.Run("attaches current credential", func(t *testing.T) {
		t.Parallel()

		rec := &headerRecorder{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec.record(r)
		}))
		defer srv.Close()

		sess := &fakeSession{token: "tok-123"}
		client := transport.NewClient(0, transport.BearerAuth(sess))

		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, "Bearer tok-123", rec.last())
	})

	t.Run("sends unmodified without credential", func(t *testing.T) {
		t.Parallel()

		rec := &headerRecorder{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec.record(r)
		}))
		defer srv.Close()

		client := transport.NewClient(0, transport.BearerAuth(&fakeSession{}))

		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Empty(t, rec.last())
	})

	t.Run("reads token at send time", func(t *testing.T) {
		t.Parallel()

		rec := &headerRecorder{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec.record(r)
		}))
		defer srv.Close()

		sess := &fakeSession{}
		client := transport.NewClient(0, transport.BearerAuth(sess))

		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()

		// Credential installed after the middleware was constructed.
		sess.SetToken("tok-late")

		resp, err = client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, []string{"", "Bearer tok-late"}, rec.all())
	})

	t.Run("does not override an explicit header", func(t *testing.T) {
		t.Parallel()

		rec := &headerRecorder{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec.record(r)
		}))
		defer srv.Close()

		sess := &fakeSession{token: "tok-store"}
		client := transport.NewClient(0, transport.BearerAuth(sess))

		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer tok-explicit")

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, "Bearer tok-explicit", rec.last())
	})
}

func TestEvictOnUnauthorized(t *testing.T) {
	t.Parallel()

	t.Run("clears session exactly once and propagates the response", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		sess := &fakeSession{token: "tok-stale"}
		client := transport.NewClient(0, transport.EvictOnUnauthorized(sess, discardLogger()))

		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "rejection must still reach the caller")
		assert.Equal(t, 1, sess.Cleared())
		assert.Empty(t, sess.Token())
	})

	t.Run("other failures leave the session alone", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		sess := &fakeSession{token: "tok-keep"}
		client := transport.NewClient(0, transport.EvictOnUnauthorized(sess, discardLogger()))

		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Zero(t, sess.Cleared())
		assert.Equal(t, "tok-keep", sess.Token())
	})
}

func TestRetry(t *testing.T) {
	t.Parallel()

	t.Run("retries transient status on idempotent request", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client := transport.NewClient(0, transport.Retry())

		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("never retries an authorization rejection", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		client := transport.NewClient(0, transport.Retry())

		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("passes non-idempotent requests through once", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := transport.NewClient(0, transport.Retry())

		resp, err := client.Post(srv.URL, "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var order []string
	tag := func(name string) transport.Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return transport.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(req)
			})
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	client := transport.NewClient(0, tag("first"), tag("second"))

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{"first", "second"}, order)
}
