// Package domain defines the core domain models for Resonance.
//
// Domain models are pure value objects without any IO dependencies
// or framework coupling.
package domain

import (
	"strings"
	"time"
)

// Session is the token pair and identity metadata obtained from a
// successful createSession call.
//
// A session is either fully populated (authenticated) or zero. Callers
// never see a partially filled value.
type Session struct {
	// AccessJWT is the short-lived bearer credential for repository calls.
	AccessJWT string `json:"-"`

	// RefreshJWT is exchanged for a new token pair via refreshSession.
	RefreshJWT string `json:"-"`

	// DID is the durable account identifier the handle resolves to.
	DID string `json:"did"`

	// Handle is the canonical handle returned by the server.
	Handle string `json:"handle"`

	// Endpoint is the base URL of the server hosting the account.
	Endpoint string `json:"endpoint"`

	// AccessExpiresAt is the access token expiry taken from its exp claim.
	// Zero when the token could not be inspected.
	AccessExpiresAt time.Time `json:"access_expires_at,omitempty"`
}

// IsZero reports whether the session carries no state at all.
func (s Session) IsZero() bool {
	return s.AccessJWT == "" && s.RefreshJWT == "" && s.DID == "" &&
		s.Handle == "" && s.Endpoint == ""
}

// Clone returns a copy of the session.
func (s Session) Clone() Session {
	return s
}

// IsAuthenticated reports whether both the access token and DID are present.
func (s Session) IsAuthenticated() bool {
	return s.AccessJWT != "" && s.DID != ""
}

// ExpiresWithin reports whether the access token is known to expire within d.
// A session with an unknown expiry never reports true.
func (s Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	if s.AccessExpiresAt.IsZero() {
		return false
	}
	return s.AccessExpiresAt.Sub(now) <= d
}

// Credentials is a handle/password pair, optionally with an email used
// only during account creation. The core never persists credentials.
type Credentials struct {
	Handle   string `json:"handle" yaml:"handle"`
	Password string `json:"password" yaml:"password"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
}

// ParseCredentials parses the "handle:password" boundary encoding.
// The string is split on the first colon so passwords may contain colons.
func ParseCredentials(s string) (Credentials, error) {
	handle, password, ok := strings.Cut(s, ":")
	handle = strings.TrimSpace(handle)
	if !ok || handle == "" || password == "" {
		return Credentials{}, ErrInvalidCredentials
	}
	return Credentials{Handle: handle, Password: password}, nil
}

// String returns the "handle:password" encoding.
func (c Credentials) String() string {
	return c.Handle + ":" + c.Password
}

// IsZero reports whether no handle or password is set.
func (c Credentials) IsZero() bool {
	return c.Handle == "" || c.Password == ""
}
