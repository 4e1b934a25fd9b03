package domain

import "time"

// TokenPurpose scopes a single-use emailed token to one flow.
type TokenPurpose string

const (
	PurposeVerification  TokenPurpose = "verification"
	PurposePasswordReset TokenPurpose = "password_reset"
)

// TTL returns the validity window for a freshly issued token. Reset links
// leak more power if intercepted, so they get the tighter window.
func (p TokenPurpose) TTL() time.Duration {
	if p == PurposePasswordReset {
		return time.Hour
	}
	return 24 * time.Hour
}

// AuthToken is a single-use, expiring credential embedded in an emailed
// link. Only the SHA-256 fingerprint of the raw token is stored.
type AuthToken struct {
	ID        string
	UserID    string
	Purpose   TokenPurpose
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
