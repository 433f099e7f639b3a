// Package memstore is an in-memory session.Storage backend. State does not
// survive the process; it exists for tests and for embedding the library
// without durable storage.
package memstore

import (
	"context"
	"sync"

	"github.com/sessionkit/sessionkit/core/session"
)

// Storage holds the session blob in memory. Safe for concurrent use.
type Storage struct {
	mu     sync.RWMutex
	sess   session.Session
	exists bool
}

// New creates an empty in-memory storage.
func New() *Storage {
	return &Storage{}
}

// Load implements session.Storage.
func (s *Storage) Load(ctx context.Context) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.exists {
		return session.Session{}, session.ErrNotFound
	}
	return copySession(s.sess), nil
}

// Save implements session.Storage.
func (s *Storage) Save(ctx context.Context, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess = copySession(sess)
	s.exists = true
	return nil
}

func copySession(sess session.Session) session.Session {
	if sess.User != nil {
		u := *sess.User
		sess.User = &u
	}
	return sess
}
