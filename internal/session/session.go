// Package session implements the stateless authenticated session: a user
// snapshot carried in an encrypted, signed, HTTP-only cookie. The server
// keeps no session table; reads cost zero queries at the price of
// staleness until the cookie is refreshed.
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/placemate/placemate/internal/domain"
)

// DefaultTTL is the session validity window.
const DefaultTTL = 7 * 24 * time.Hour

// UserSnapshot is the identity captured at session-creation time. It may
// go stale relative to the database; callers needing freshness (e.g.
// before a sensitive action) must re-fetch the user themselves.
type UserSnapshot struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
	Verified  bool        `json:"verified"`
	Suspended bool        `json:"suspended"`
}

// Snapshot captures a user for embedding into a session.
func Snapshot(u domain.User) UserSnapshot {
	return UserSnapshot{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Verified:  u.Verified(),
		Suspended: u.Suspended,
	}
}

// Session is the decoded cookie payload.
type Session struct {
	User      UserSnapshot
	IsAuth    bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is unusable at the given instant.
// A session with no auth flag or no expiry is treated as expired
// (fail-closed: malformed state never authenticates).
func (s *Session) Expired(now time.Time) bool {
	if s == nil || !s.IsAuth || s.ExpiresAt.IsZero() {
		return true
	}
	return now.After(s.ExpiresAt)
}

// sessionClaims is the JWT payload sealed into the cookie.
type sessionClaims struct {
	jwt.RegisteredClaims

	User   UserSnapshot `json:"user"`
	IsAuth bool         `json:"is_auth"`
}
