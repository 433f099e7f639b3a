// Package filestore persists the session snapshot as a single JSON blob on
// disk, the durable client storage for CLI and desktop consumers. The blob
// is replaced atomically on every save; a missing or undecodable blob reads
// back as "no session".
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sessionkit/sessionkit/core/session"
)

// BlobName is the versioned file name of the persisted snapshot. Bumping
// the version abandons blobs written by incompatible older builds; they
// simply rehydrate as absent.
const BlobName = "auth-session-v1.json"

// Config locates the session blob, loadable from the environment.
type Config struct {
	Path string `env:"AUTH_SESSION_FILE"`
}

// Storage is a file-backed session.Storage. Safe for concurrent use within
// one process; cross-process coordination is whatever the filesystem gives.
type Storage struct {
	path string
	mu   sync.Mutex
}

// New creates a file storage writing to the given path.
func New(path string) *Storage {
	return &Storage{path: path}
}

// DefaultPath returns the conventional blob location under the user's
// configuration directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("filestore: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "sessionkit", BlobName), nil
}

// Load implements session.Storage. A missing file maps to ErrNotFound and
// an undecodable one to ErrCorrupted; the store discards both.
func (s *Storage) Load(ctx context.Context) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, fmt.Errorf("filestore: read %s: %w", s.path, err)
	}

	var sess session.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return session.Session{}, errors.Join(session.ErrCorrupted, err)
	}

	return sess, nil
}

// Save implements session.Storage. The blob is written to a temp file and
// renamed into place so a crash mid-write never leaves a torn snapshot.
func (s *Storage) Save(ctx context.Context, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("filestore: encode session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("filestore: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, BlobName+".tmp-*")
	if err != nil {
		return fmt.Errorf("filestore: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: write session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: chmod session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: close session: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("filestore: replace %s: %w", s.path, err)
	}

	return nil
}
