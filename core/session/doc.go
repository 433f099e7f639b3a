// Package session holds the authoritative client-side authentication state:
// the bearer token, the fetched user profile, and the authenticated flag.
//
// The Store is the single writer of that state. It exposes exactly three
// mutations (SetCredential, SetProfile, Clear), publishes a change event for
// every mutation, and persists each new snapshot to a pluggable Storage
// backend on a best-effort basis. A snapshot that cannot be loaded back at
// startup (missing, corrupt, inconsistent) is silently discarded and the
// store starts unauthenticated.
//
// Basic usage:
//
//	store := session.New(ctx, filestore.New(path))
//
//	if err := store.SetCredential(resp.AccessToken); err != nil {
//	    return err
//	}
//
//	snap := store.Snapshot()
//	if snap.Authenticated {
//	    // render protected view
//	}
//
// Readers never block and never trigger I/O. Consumers that need to react to
// state changes subscribe to the change feed:
//
//	changes, unsubscribe := store.Subscribe()
//	defer unsubscribe()
//	for change := range changes {
//	    // re-evaluate
//	}
//
// Every credential install and every clear bumps a monotonically increasing
// epoch counter. In-flight work issued under an older epoch can compare the
// epoch it started with against Store.Epoch() and discard its result, which
// is how stale profile fetches are prevented from overwriting newer state.
package session
