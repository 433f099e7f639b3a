package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultPersistTimeout bounds each best-effort write to the Storage backend.
	DefaultPersistTimeout = 3 * time.Second
	// DefaultSubscriberBuffer is the change-feed buffer per subscriber.
	DefaultSubscriberBuffer = 8
)

// Op identifies which of the three mutations produced a Change.
type Op string

const (
	OpSetCredential Op = "set_credential"
	OpSetProfile    Op = "set_profile"
	OpClear         Op = "clear"
)

// Change is published to every subscriber after a mutation has been applied.
// It intentionally carries no session data; subscribers read the current
// state via Snapshot so they always observe the latest, never a queued copy.
type Change struct {
	ID            uuid.UUID
	Op            Op
	Epoch         uint64
	Authenticated bool
	At            time.Time
}

// Store is the single authoritative holder of the Session. All mutations go
// through SetCredential, SetProfile and Clear; each is atomic with respect
// to readers, bumps the change feed, and persists the new snapshot without
// failing the in-memory mutation if the write does not stick.
type Store struct {
	mu      sync.RWMutex
	current Session
	epoch   uint64
	seq     uint64

	storage        Storage
	persistTimeout time.Duration
	logger         *slog.Logger

	persistMu sync.Mutex
	persisted uint64

	subMu   sync.Mutex
	subs    map[uint64]chan Change
	nextSub uint64
	bufSize int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger configures structured logging for the store.
// Use slog.New(slog.NewTextHandler(io.Discard, nil)) to disable logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPersistTimeout bounds each persistence write. Default is 3s.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

// WithSubscriberBuffer sets the per-subscriber change buffer. A subscriber
// that falls further behind than the buffer loses intermediate changes, not
// the latest state, because changes carry no payload.
func WithSubscriberBuffer(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.bufSize = size
		}
	}
}

// New creates a Store and rehydrates it from storage. A missing, corrupt or
// invariant-violating blob is discarded and the store starts unauthenticated;
// rehydration never fails.
func New(ctx context.Context, storage Storage, opts ...Option) *Store {
	s := &Store{
		storage:        storage,
		persistTimeout: DefaultPersistTimeout,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		subs:           make(map[uint64]chan Change),
		bufSize:        DefaultSubscriberBuffer,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.hydrate(ctx)

	return s
}

func (s *Store) hydrate(ctx context.Context) {
	if s.storage == nil {
		return
	}

	loaded, err := s.storage.Load(ctx)
	if err != nil {
		s.logger.DebugContext(ctx, "starting with empty session", slog.Any("reason", err))
		return
	}
	if !loaded.IsValid() {
		s.logger.WarnContext(ctx, "discarding inconsistent persisted session")
		return
	}

	s.current = loaded
	if loaded.Authenticated {
		s.epoch++
	}
}

// SetCredential installs a new bearer token and marks the session
// authenticated. The previous profile, if any, is dropped so a consumer can
// never observe the old identity's profile under the new credential; the
// profile coordinator re-fetches it. Returns ErrEmptyToken for an empty token.
func (s *Store) SetCredential(token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	s.current = Session{Token: token, Authenticated: true}
	s.epoch++
	s.seq++
	snap, epoch, seq := s.current, s.epoch, s.seq
	s.mu.Unlock()

	s.persist(snap, seq)
	s.notify(OpSetCredential, epoch, true)
	return nil
}

// SetProfile replaces the profile wholesale. Callers are expected to hold an
// authenticated session; the store does not reject the call otherwise, it
// simply stores what it was given.
func (s *Store) SetProfile(user User) {
	s.mu.Lock()
	u := user
	s.current.User = &u
	s.seq++
	snap, epoch, seq := s.current.clone(), s.epoch, s.seq
	s.mu.Unlock()

	s.persist(snap, seq)
	s.notify(OpSetProfile, epoch, snap.Authenticated)
}

// SetProfileIfEpoch is the guarded form of SetProfile used for results of
// asynchronous work: the profile is applied only if the authentication
// epoch still equals the epoch the work was issued under. The compare and
// the write happen under one lock, so a concurrent Clear or SetCredential
// can never interleave between them. Returns whether the write applied.
func (s *Store) SetProfileIfEpoch(epoch uint64, user User) bool {
	s.mu.Lock()
	if s.epoch != epoch || !s.current.Authenticated {
		s.mu.Unlock()
		return false
	}
	u := user
	s.current.User = &u
	s.seq++
	snap, seq := s.current.clone(), s.seq
	s.mu.Unlock()

	s.persist(snap, seq)
	s.notify(OpSetProfile, epoch, true)
	return true
}

// Clear atomically resets the session to the empty unauthenticated state and
// persists it. User logout and server-side eviction both converge here, so
// no caller can ever observe a half-cleared session. Clear is idempotent.
func (s *Store) Clear() {
	s.mu.Lock()
	s.current = Session{}
	s.epoch++
	s.seq++
	epoch, seq := s.epoch, s.seq
	s.mu.Unlock()

	s.persist(Session{}, seq)
	s.notify(OpClear, epoch, false)
}

// Snapshot returns a consistent copy of the current session.
// It never blocks on I/O.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Token returns the current bearer credential, or "" when absent. Outbound
// transports call this at send time so they never hold a stale credential.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}

// Epoch returns the current authentication epoch. It increases on every
// SetCredential and Clear.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// IsAuthenticated reports whether a credential is currently installed.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Authenticated
}

// Subscribe registers a change-feed subscriber. The returned cancel func
// must be called to release the subscription; it closes the channel.
func (s *Store) Subscribe() (<-chan Change, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Change, s.bufSize)
	s.subs[id] = ch

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}

	return ch, cancel
}

// persist writes the snapshot best-effort: a failed write is logged and
// otherwise ignored, it never fails or rolls back the in-memory mutation.
// Writes are serialized and ordered by the mutation sequence captured under
// s.mu, so a mutation that lost the race to a later one never lands as the
// final durable state. A snapshot older than the last one written is skipped;
// the newer write already covers it.
func (s *Store) persist(snap Session, seq uint64) {
	if s.storage == nil {
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if seq <= s.persisted {
		s.logger.Debug("skipping superseded session write", slog.Uint64("seq", seq))
		return
	}
	s.persisted = seq

	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	if err := s.storage.Save(ctx, snap); err != nil {
		s.logger.Warn("failed to persist session", slog.Any("error", err))
	}
}

func (s *Store) notify(op Op, epoch uint64, authenticated bool) {
	change := Change{
		ID:            uuid.New(),
		Op:            op,
		Epoch:         epoch,
		Authenticated: authenticated,
		At:            time.Now(),
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	for id, ch := range s.subs {
		select {
		case ch <- change:
		default:
			// Slow subscriber; it will catch up from Snapshot on its
			// next wakeup, so dropping the event only coalesces.
			s.logger.Debug("dropping session change for slow subscriber",
				slog.Uint64("subscriber", id),
				slog.String("op", string(op)))
		}
	}
}
