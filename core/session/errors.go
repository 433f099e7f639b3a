package session

import "errors"

var (
	// ErrEmptyToken is returned when SetCredential is called with an empty token.
	ErrEmptyToken = errors.New("session token is empty")
	// ErrNotFound is returned by Storage implementations when no persisted session exists.
	ErrNotFound = errors.New("persisted session not found")
	// ErrCorrupted is returned by Storage implementations when the persisted blob cannot be decoded.
	ErrCorrupted = errors.New("persisted session corrupted")
)
