// Package client is the typed HTTP client for the authentication server:
// login, signup and current-user profile. It owns the wire types and the
// error mapping; the cross-cutting credential attachment and eviction live
// in the transport middleware of the http.Client it is given.
package client
