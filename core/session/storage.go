package session

import "context"

// Storage persists the session snapshot as a single named blob in durable
// client storage. Implementations must handle concurrent access safely.
//
// Load returns ErrNotFound when no blob exists and ErrCorrupted when the
// blob cannot be decoded; the Store treats both (and any other error) as
// "no session" and starts unauthenticated.
type Storage interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, sess Session) error
}
