package sessionkit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionkit/sessionkit"
	"github.com/sessionkit/sessionkit/core/client"
	"github.com/sessionkit/sessionkit/core/session"
	"github.com/sessionkit/sessionkit/storage/filestore"
	"github.com/sessionkit/sessionkit/storage/memstore"
)

// authServer is a minimal stand-in for the authentication backend.
type authServer struct {
	mu      sync.Mutex
	token   string // currently valid bearer token
	user    session.User
	revoked bool
}

func (s *authServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req client.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req.Email != s.user.Email || req.Password != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "invalid credentials"})
			return
		}

		s.mu.Lock()
		s.revoked = false
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(client.LoginResponse{AccessToken: s.token, TokenType: "bearer"})
	})

	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !s.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(s.user)
	})

	mux.HandleFunc("/api/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !s.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode([]string{})
	})

	return mux
}

func (s *authServer) authorized(r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.revoked && r.Header.Get("Authorization") == "Bearer "+s.token
}

func (s *authServer) revoke() {
	s.mu.Lock()
	s.revoked = true
	s.mu.Unlock()
}

func newTestSetup(t *testing.T, storage session.Storage) (*sessionkit.Client, *authServer, string) {
	t.Helper()

	srv := &authServer{
		token: "tok-123",
		user: session.User{
			ID: 1, Email: "a@b.com", IsActive: true, AuthProvider: "local",
		},
	}

	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)

	opts := []sessionkit.Option{}
	if storage != nil {
		opts = append(opts, sessionkit.WithStorage(storage))
	}

	c, err := sessionkit.New(context.Background(), sessionkit.Config{
		BaseURL:   ts.URL,
		Timeout:   5 * time.Second,
		Freshness: time.Minute,
		LoginPath: "/login",
	}, opts...)
	require.NoError(t, err)

	return c, srv, ts.URL
}

func TestClient_LoginFlow(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestSetup(t, memstore.New())

	// Pre-login: gate denies.
	require.False(t, c.Gate().Allowed())

	require.NoError(t, c.Login(context.Background(), "a@b.com", "secret1"))

	snap := c.Session()
	assert.True(t, snap.Authenticated)
	assert.Equal(t, "tok-123", snap.Token)
	assert.Nil(t, snap.User, "profile is fetched by the coordinator, not by login")
	assert.True(t, c.Gate().Allowed())

	c.RefreshProfile(context.Background())

	snap = c.Session()
	require.NotNil(t, snap.User)
	assert.Equal(t, "a@b.com", snap.User.Email)
	assert.Equal(t, "local", snap.User.AuthProvider)
}

func TestClient_LoginFailure(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestSetup(t, memstore.New())

	err := c.Login(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	// The user stays on the entry view with an untouched session.
	assert.False(t, c.Session().Authenticated)
	assert.False(t, c.Gate().Allowed())
}

func TestClient_ServerEviction(t *testing.T) {
	t.Parallel()

	c, srv, baseURL := newTestSetup(t, memstore.New())

	require.NoError(t, c.Login(context.Background(), "a@b.com", "secret1"))
	c.RefreshProfile(context.Background())
	require.True(t, c.Gate().Allowed())

	srv.revoke()

	// Any authenticated call observing the rejection evicts the session;
	// the failure itself still reaches the caller.
	resp, err := c.HTTPClient().Get(baseURL + "/api/v1/orders")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	snap := c.Session()
	assert.False(t, snap.Authenticated)
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.User)
	assert.False(t, c.Gate().Allowed(), "next protected render is denied")
}

func TestClient_Logout(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestSetup(t, memstore.New())

	require.NoError(t, c.Login(context.Background(), "a@b.com", "secret1"))
	c.RefreshProfile(context.Background())

	c.Logout()

	snap := c.Session()
	assert.False(t, snap.Authenticated)
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.User)
	assert.False(t, c.Gate().Allowed())
}

func TestClient_PersistenceRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), filestore.BlobName)

	first, _, _ := newTestSetup(t, filestore.New(path))
	require.NoError(t, first.Login(context.Background(), "a@b.com", "secret1"))
	first.RefreshProfile(context.Background())
	want := first.Session()
	require.NotNil(t, want.User)

	// A second client over the same blob stands in for a process restart.
	second, _, _ := newTestSetup(t, filestore.New(path))
	assert.Equal(t, want, second.Session())
	assert.True(t, second.Gate().Allowed())
}

func TestClient_CorruptPersistedState(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), filestore.BlobName)
	require.NoError(t, os.WriteFile(path, []byte("{definitely not json"), 0o600))

	c, _, _ := newTestSetup(t, filestore.New(path))

	snap := c.Session()
	assert.False(t, snap.Authenticated)
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.User)
}
