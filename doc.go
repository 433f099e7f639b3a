// Package sessionkit is a client-side authentication-session toolkit.
//
// It owns a single source of truth for "is this user logged in, with what
// credential, and who are they", keeps that truth durable across process
// restarts, attaches the credential to every outbound call, evicts the
// session when the server rejects the credential, and gates protected
// views on the current state.
//
// The root package composes the core building blocks into a ready-to-use
// Client; the blocks themselves live in their own packages and can be
// wired independently:
//
//   - core/session: the persisted session store and its change feed
//   - core/transport: bearer injection, 401 eviction, logging and retry
//     middleware around http.RoundTripper
//   - core/client: the typed API client for login, signup and profile
//   - core/profile: the reactive profile-fetch coordinator
//   - core/gate: the render-time access gate
//   - storage/{memstore,filestore,redisstore}: durable blob backends
//
// Typical usage:
//
//	auth, err := sessionkit.New(ctx, cfg,
//	    sessionkit.WithStorage(filestore.New(path)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	go auth.Run(ctx) // reactive profile fetching
//
//	if err := auth.Login(ctx, email, password); err != nil {
//	    // show error, user stays on the entry view
//	}
package sessionkit
