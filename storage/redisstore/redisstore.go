// Package redisstore persists the session snapshot as a single JSON blob in
// Redis. It is the durable client storage for deployments where sessions
// should survive the host the client runs on, for example kiosk fleets
// sharing a credential.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/sessionkit/sessionkit/core/session"
)

// DefaultKey is the versioned Redis key of the persisted snapshot.
const DefaultKey = "sessionkit:session:v1"

// ErrRedisUnavailable is returned when a connection cannot be established
// within the configured retry budget.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Config holds the Redis connection settings, loadable from the environment.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	Key            string        `env:"SESSION_REDIS_KEY" envDefault:"sessionkit:session:v1"`
	RetryAttempts  uint64        `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"500ms"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// Connect creates a Redis client and verifies connectivity with a ping,
// retrying with exponential backoff to ride out transient startup races.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(cfg.RetryAttempts, retry.NewExponential(cfg.RetryInterval))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrRedisUnavailable, err)
	}

	return client, nil
}

// Storage is a Redis-backed session.Storage.
type Storage struct {
	client *redis.Client
	key    string
}

// New creates a Redis storage using the given client and key.
// An empty key falls back to DefaultKey.
func New(client *redis.Client, key string) *Storage {
	if key == "" {
		key = DefaultKey
	}
	return &Storage{client: client, key: key}
}

// Load implements session.Storage. A missing key maps to ErrNotFound and an
// undecodable blob to ErrCorrupted; the store discards both.
func (s *Storage) Load(ctx context.Context) (session.Session, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, fmt.Errorf("redisstore: get %s: %w", s.key, err)
	}

	var sess session.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return session.Session{}, errors.Join(session.ErrCorrupted, err)
	}

	return sess, nil
}

// Save implements session.Storage. The blob has no TTL: a session never
// expires client-side, it only ends via logout or server-side eviction.
func (s *Storage) Save(ctx context.Context, sess session.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redisstore: encode session: %w", err)
	}

	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: set %s: %w", s.key, err)
	}

	return nil
}
