// Package session holds the in-memory authentication state of a client:
// the bearer token, the role it grants and the display name of the user.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the server-assigned classification of an account.
type Role int

const (
	// RoleUnknown covers the unauthenticated state and any role string
	// the client does not recognise.
	RoleUnknown Role = iota
	// RoleAdmin may create, update and delete products.
	RoleAdmin
	// RoleUser may browse products and view its profile.
	RoleUser
)

// ParseRole maps a server role string onto Role.
func ParseRole(s string) Role {
	switch s {
	case "admin":
		return RoleAdmin
	case "user":
		return RoleUser
	default:
		return RoleUnknown
	}
}

// String returns the wire form of the role.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleUser:
		return "user"
	default:
		return "unknown"
	}
}

// ErrEmptyToken is returned by Start when the server issued no token.
var ErrEmptyToken = errors.New("empty token")

// Session is the authentication state of one client. The zero value is an
// unauthenticated session ready for use.
type Session struct {
	mu        sync.RWMutex
	token     string
	user      string
	role      Role
	rawRole   string
	expiresAt time.Time
}

// Snapshot is an immutable copy of a Session.
type Snapshot struct {
	Token     string
	User      string
	Role      Role
	RawRole   string
	ExpiresAt time.Time
}

// Authenticated reports whether the snapshot carries a token.
func (s Snapshot) Authenticated() bool {
	return s.Token != ""
}

// Start replaces the current state with a freshly issued token.
// rawRole is kept verbatim for display; Role is its parsed form.
func (s *Session) Start(token, user, rawRole string) error {
	if token == "" {
		return ErrEmptyToken
	}
	exp := tokenExpiry(token)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
	s.rawRole = rawRole
	s.role = ParseRole(rawRole)
	s.expiresAt = exp
	return nil
}

// Clear drops the token and everything derived from it.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = ""
	s.rawRole = ""
	s.role = RoleUnknown
	s.expiresAt = time.Time{}
}

// Token returns the cached bearer token, or "" when unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Role returns the role granted by the current token.
func (s *Session) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// Snapshot returns a consistent copy of the whole state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Token:     s.token,
		User:      s.user,
		Role:      s.role,
		RawRole:   s.rawRole,
		ExpiresAt: s.expiresAt,
	}
}

// Expired reports whether the token carries an expiry that is at or before now.
// Tokens without a readable expiry never expire on the client side.
func (s *Session) Expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.expiresAt.IsZero() && !now.Before(s.expiresAt)
}

// tokenExpiry reads the exp claim of a JWT without verifying it. The server
// owns verification; the client only uses exp for display and warnings.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
