package profile

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sessionkit/sessionkit/core/session"
)

// DefaultFreshness is how long a fetched profile is trusted before the next
// activation re-fetches it.
const DefaultFreshness = 5 * time.Minute

// Fetcher retrieves the current user's profile. The API client satisfies
// this interface.
type Fetcher interface {
	Me(ctx context.Context) (session.User, error)
}

// Coordinator drives the reactive profile fetch described in the package
// documentation. Create it with New and start it with Run.
type Coordinator struct {
	store    *session.Store
	fetcher  Fetcher
	freshFor time.Duration
	logger   *slog.Logger

	mu           sync.Mutex
	inFlight     bool
	fetchedEpoch uint64
	fetchedAt    time.Time
	failedEpoch  uint64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithFreshness sets the freshness window. Default is 5 minutes.
func WithFreshness(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.freshFor = d
		}
	}
}

// WithLogger configures structured logging for the coordinator.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Coordinator bound to the given store and fetcher.
func New(store *session.Store, fetcher Fetcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		fetcher:  fetcher,
		freshFor: DefaultFreshness,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run evaluates once for the current state (a rehydrated authenticated
// session fetches immediately) and then re-evaluates on every store change
// until ctx is canceled. It blocks and is meant to be run in its own
// goroutine.
func (c *Coordinator) Run(ctx context.Context) {
	changes, cancel := c.store.Subscribe()
	defer cancel()

	c.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			c.Refresh(ctx)
		}
	}
}

// Refresh re-evaluates whether the profile should be (re-)fetched and, if
// so, fetches it and writes the result into the store. It is a no-op while
// the session is unauthenticated, while a fetch is already in flight,
// within the freshness window of the current epoch, and after a failed
// attempt for the current epoch.
func (c *Coordinator) Refresh(ctx context.Context) {
	// Epoch is read before the authentication check: any mutation that
	// lands afterwards bumps it and the completion below is discarded.
	epoch := c.store.Epoch()
	if !c.store.IsAuthenticated() {
		return
	}

	c.mu.Lock()
	if c.inFlight ||
		(epoch == c.fetchedEpoch && time.Since(c.fetchedAt) < c.freshFor) ||
		epoch == c.failedEpoch {
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	c.mu.Unlock()

	user, err := c.fetcher.Me(ctx)

	c.mu.Lock()
	c.inFlight = false
	if err != nil {
		c.failedEpoch = epoch
		c.mu.Unlock()
		c.logger.WarnContext(ctx, "profile fetch failed", slog.Any("error", err))
		return
	}

	// The session may have been cleared or re-issued while the fetch was
	// in flight; applying the result now would resurrect a stale identity.
	// The store write and the freshness bookkeeping share the critical
	// section that released inFlight, so a concurrent Refresh can never
	// observe the fetch as finished but not yet fresh and fetch again.
	// SetProfileIfEpoch takes only the store's own lock, never c.mu.
	applied := c.store.SetProfileIfEpoch(epoch, user)
	if applied {
		c.fetchedEpoch = epoch
		c.fetchedAt = time.Now()
	}
	c.mu.Unlock()

	if !applied {
		c.logger.DebugContext(ctx, "discarding stale profile fetch",
			slog.Uint64("issued_epoch", epoch),
			slog.Uint64("current_epoch", c.store.Epoch()))
	}
}
