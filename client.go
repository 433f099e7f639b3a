package sessionkit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sessionkit/sessionkit/core/client"
	"github.com/sessionkit/sessionkit/core/gate"
	"github.com/sessionkit/sessionkit/core/profile"
	"github.com/sessionkit/sessionkit/core/session"
	"github.com/sessionkit/sessionkit/core/transport"
)

// Config holds the composed client settings, loadable from the environment
// via core/config.
type Config struct {
	BaseURL   string        `env:"AUTH_API_BASE_URL" envDefault:"http://localhost:8000"`
	Timeout   time.Duration `env:"AUTH_API_TIMEOUT" envDefault:"10s"`
	Freshness time.Duration `env:"AUTH_PROFILE_FRESHNESS" envDefault:"5m"`
	LoginPath string        `env:"AUTH_LOGIN_PATH" envDefault:"/login"`
}

// Client wires the session store, the authenticated transport, the API
// client, the profile coordinator and the access gate into one unit.
type Client struct {
	store       *session.Store
	api         *client.Client
	coordinator *profile.Coordinator
	gate        *gate.Gate
	httpClient  *http.Client
	logger      *slog.Logger
}

type options struct {
	storage session.Storage
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithStorage sets the durable session storage. Default is none: the
// session then lives only as long as the process.
func WithStorage(storage session.Storage) Option {
	return func(o *options) {
		o.storage = storage
	}
}

// WithLogger configures structured logging for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New composes a Client. The session store is rehydrated from storage
// before New returns, so the very first render already sees a restored
// session when one was persisted.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	store := session.New(ctx, o.storage, session.WithLogger(o.logger))

	httpClient := transport.NewClient(cfg.Timeout,
		transport.Logging(o.logger),
		transport.Retry(),
		transport.BearerAuth(store),
		transport.EvictOnUnauthorized(store, o.logger),
	)

	api, err := client.NewFromConfig(
		client.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout},
		httpClient,
		client.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("sessionkit: %w", err)
	}

	return &Client{
		store: store,
		api:   api,
		coordinator: profile.New(store, api,
			profile.WithFreshness(cfg.Freshness),
			profile.WithLogger(o.logger)),
		gate:       gate.New(store, gate.WithLoginPath(cfg.LoginPath)),
		httpClient: httpClient,
		logger:     o.logger,
	}, nil
}

// Run drives the reactive profile fetching until ctx is canceled. Start it
// in its own goroutine; one-shot consumers can skip it and call
// RefreshProfile after Login instead.
func (c *Client) Run(ctx context.Context) {
	c.coordinator.Run(ctx)
}

// Login exchanges credentials for a bearer token and installs it. On
// failure the session is left untouched and the error is returned for the
// entry view to display. The profile is not fetched here; the coordinator
// picks that up from the state change.
func (c *Client) Login(ctx context.Context, email, password string) error {
	resp, err := c.api.Login(ctx, client.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}

	if err := c.store.SetCredential(resp.AccessToken); err != nil {
		return fmt.Errorf("sessionkit: install credential: %w", err)
	}

	return nil
}

// Signup registers a new account. It does not log the new user in.
func (c *Client) Signup(ctx context.Context, email, password, displayName string) (session.User, error) {
	return c.api.Signup(ctx, client.SignupRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
}

// Logout clears the session. Server-triggered eviction converges on the
// same path through the transport middleware.
func (c *Client) Logout() {
	c.store.Clear()
}

// RefreshProfile synchronously runs one coordinator evaluation. Useful for
// consumers that do not run the reactive loop.
func (c *Client) RefreshProfile(ctx context.Context) {
	c.coordinator.Refresh(ctx)
}

// Session returns the current session snapshot.
func (c *Client) Session() session.Session {
	return c.store.Snapshot()
}

// Store exposes the session store for subscribers.
func (c *Client) Store() *session.Store {
	return c.store
}

// Gate returns the access gate for protected views.
func (c *Client) Gate() *gate.Gate {
	return c.gate
}

// HTTPClient returns the authenticated HTTP client. Any call made through
// it carries the current credential and participates in 401 eviction.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// API returns the typed authentication API client.
func (c *Client) API() *client.Client {
	return c.api
}
