// Package profile keeps the session's user profile in sync with the server.
//
// The Coordinator subscribes to session store changes and, while the
// session is authenticated, fetches the current user's profile and writes
// it back into the store. A fetched profile stays fresh for a bounded
// window; installing a new credential invalidates it immediately regardless
// of the window, so the profile shown always belongs to the identity that
// is actually logged in.
//
// Every fetch is tagged with the authentication epoch at issue time. A
// completion that arrives after the epoch has moved on (logout, new login)
// is discarded instead of applied, which is what prevents a stale fetch
// from overwriting a newer session's state.
//
// A failed fetch is not retried automatically: the dominant failure cause
// is an already-invalid credential, which the transport layer evicts
// through its own path, and retrying would race that eviction. The next
// credential install triggers a fresh attempt.
package profile
