package session

// User is the read-only profile snapshot returned by the server.
// It is replaced wholesale on every successful fetch, never merged.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	DisplayName  string `json:"full_name,omitempty"`
	IsActive     bool   `json:"is_active"`
	AuthProvider string `json:"auth_provider"`
}

// Session is one consistent view of the authentication state.
// Exactly one logical session exists per store; this struct is the
// value that gets persisted and rehydrated across process restarts.
type Session struct {
	// Token is the opaque bearer credential issued at login.
	// The client never parses or interprets it.
	Token string `json:"token,omitempty"`

	// User is the fetched profile, nil until the first successful
	// profile fetch after login.
	User *User `json:"user,omitempty"`

	// Authenticated is true iff a credential has been installed via a
	// successful login. It can be true while User is still nil.
	Authenticated bool `json:"is_authenticated"`
}

// IsValid reports whether the snapshot satisfies the session invariant:
// an authenticated session must carry a token, and a profile must not
// outlive authentication. Rehydrated snapshots failing this check are
// discarded as corrupt.
func (s Session) IsValid() bool {
	if s.Authenticated && s.Token == "" {
		return false
	}
	if !s.Authenticated && (s.Token != "" || s.User != nil) {
		return false
	}
	return true
}

// clone returns a deep copy so no caller can alias the store's state.
func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
