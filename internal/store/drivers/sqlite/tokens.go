package sqlite

import (
	"context"
	"time"

	"github.com/placemate/placemate/internal/domain"
)

type authTokensRepo struct {
	db dbtx
}

func (r *authTokensRepo) CreateAuthToken(ctx context.Context, t domain.AuthToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO auth_tokens (id, user_id, purpose, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, string(t.Purpose), t.TokenHash, t.ExpiresAt.UTC(), time.Now().UTC(),
	)
	return mapConflict(err)
}

func (r *authTokensRepo) GetAuthTokenByHash(ctx context.Context, hash string, purpose domain.TokenPurpose) (domain.AuthToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, purpose, token_hash, expires_at, created_at
		FROM auth_tokens WHERE token_hash = ? AND purpose = ?`,
		hash, string(purpose))

	var t domain.AuthToken
	var p string
	err := row.Scan(&t.ID, &t.UserID, &p, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return domain.AuthToken{}, mapNotFound(err)
	}
	t.Purpose = domain.TokenPurpose(p)
	return t, nil
}

func (r *authTokensRepo) DeleteAuthToken(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE id = ?`, id)
	return err
}

func (r *authTokensRepo) DeleteUserAuthTokens(ctx context.Context, userID string, purpose domain.TokenPurpose) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_tokens WHERE user_id = ? AND purpose = ?`,
		userID, string(purpose))
	return err
}

func (r *authTokensRepo) DeleteExpiredAuthTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_tokens WHERE expires_at < ?`, time.Now().UTC())
	return err
}
