package client

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the server rejects the presented
	// credential (or the login itself) with 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnexpectedStatus is returned for any non-success status that has
	// no more specific mapping.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// StatusError carries the HTTP status and the server-provided detail of a
// failed call. It wraps ErrUnauthorized for 401 so callers can use
// errors.Is without inspecting status codes.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Detail)
}

func (e *StatusError) Unwrap() error {
	if e.Status == 401 {
		return ErrUnauthorized
	}
	return ErrUnexpectedStatus
}
