package store

import (
	"context"
	"errors"
	"time"

	"github.com/placemate/placemate/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable.
type Store interface {
	Users() Users
	Profiles() Profiles
	AuthTokens() AuthTokens
	Settings() Settings

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to handle multi-row writes like signup.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks a user up case-insensitively by email address.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists when the email is already registered,
	// compared case-insensitively.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// MarkEmailVerified sets verified_at for the user.
	MarkEmailVerified(ctx context.Context, userID string, at time.Time) error

	// SetSuspended flips the suspension flag.
	SetSuspended(ctx context.Context, userID string, suspended bool) error

	// DeleteUser hard-deletes the user; the role profile and any auth
	// tokens cascade per schema. Used by the signup compensating action.
	DeleteUser(ctx context.Context, userID string) error
}

type Profiles interface {
	// CreateProfile inserts the role-specific row for a user.
	CreateProfile(ctx context.Context, p domain.Profile) error

	// GetProfile returns the role-specific row for a user.
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)

	// SetOrganizationStatus updates the approval status of an organization
	// profile and bumps updated_at.
	SetOrganizationStatus(ctx context.Context, userID string, status domain.OrganizationStatus) error
}

type AuthTokens interface {
	// CreateAuthToken stores a new token record (token_hash is the SHA-256
	// fingerprint of the raw emailed token).
	CreateAuthToken(ctx context.Context, t domain.AuthToken) error

	// GetAuthTokenByHash returns the token record by fingerprint and purpose.
	GetAuthTokenByHash(ctx context.Context, hash string, purpose domain.TokenPurpose) (domain.AuthToken, error)

	// DeleteAuthToken removes a single token record by id.
	DeleteAuthToken(ctx context.Context, id string) error

	// DeleteUserAuthTokens removes every token of a purpose for a user.
	// Issuance calls this first to keep at most one live token per user
	// per purpose.
	DeleteUserAuthTokens(ctx context.Context, userID string, purpose domain.TokenPurpose) error

	// DeleteExpiredAuthTokens is housekeeping; lazy verify-time deletion
	// bounds growth already, this just keeps the table tidy.
	DeleteExpiredAuthTokens(ctx context.Context) error
}

type Settings interface {
	// GetSettings returns the platform configuration record, or
	// ErrNotFound when the platform has not been set up yet.
	GetSettings(ctx context.Context) (domain.Settings, error)

	// CreateSettings writes the one-time configuration record. Returns
	// ErrAlreadyExists if setup already happened.
	CreateSettings(ctx context.Context, s domain.Settings) error

	// UpdateSettings replaces the configuration record.
	UpdateSettings(ctx context.Context, s domain.Settings) error
}
