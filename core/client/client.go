package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sessionkit/sessionkit/core/session"
)

// Config holds the server address and call timeout, loadable from the
// environment via core/config.
type Config struct {
	BaseURL string        `env:"AUTH_API_BASE_URL" envDefault:"http://localhost:8000"`
	Timeout time.Duration `env:"AUTH_API_TIMEOUT" envDefault:"10s"`
}

// Client calls the authentication endpoints of the server.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger configures structured logging for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an API client. The httpClient should carry the transport
// middleware chain; when nil, http.DefaultClient is used.
func New(baseURL string, httpClient *http.Client, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &Client{
		baseURL:    u,
		httpClient: httpClient,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// NewFromConfig creates an API client from environment-derived configuration.
// When httpClient is nil, a plain client bounded by cfg.Timeout is used; the
// composed facade passes its middleware-carrying client instead.
func NewFromConfig(cfg Config, httpClient *http.Client, opts ...Option) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return New(cfg.BaseURL, httpClient, opts...)
}

// Login exchanges credentials for a bearer token. A 401 means invalid
// credentials and unwraps to ErrUnauthorized.
func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", req, &resp); err != nil {
		return LoginResponse{}, fmt.Errorf("login: %w", err)
	}
	return resp, nil
}

// Signup registers a new account and returns the created user. It does not
// log the user in; the caller follows up with Login.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (session.User, error) {
	var user session.User
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/signup", req, &user); err != nil {
		return session.User{}, fmt.Errorf("signup: %w", err)
	}
	return user, nil
}

// Me fetches the profile of the currently authenticated user. The bearer
// credential is attached by the transport middleware, not here.
func (c *Client) Me(ctx context.Context) (session.User, error) {
	var user session.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, &user); err != nil {
		return session.User{}, fmt.Errorf("me: %w", err)
	}
	return user, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// statusError maps a non-success response to a StatusError, pulling the
// detail message the server includes in its error payloads when present.
func (c *Client) statusError(resp *http.Response) error {
	var payload struct {
		Detail string `json:"detail"`
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		_ = json.Unmarshal(raw, &payload)
	}

	return &StatusError{Status: resp.StatusCode, Detail: payload.Detail}
}
