package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/placemate/placemate/internal/domain"
	"github.com/placemate/placemate/internal/store"
	"github.com/placemate/placemate/pkg/cryptox"
	"github.com/placemate/placemate/pkg/idx"
	"github.com/placemate/placemate/pkg/slogx"
)

// TokenService issues and verifies the single-use tokens embedded in
// emailed links. Only the SHA-256 fingerprint of a token is persisted, so
// a leaked database dump does not yield usable links.
type TokenService struct {
	Store store.Store

	now func() time.Time // test hook
}

func NewTokenService(st store.Store) *TokenService {
	return &TokenService{Store: st, now: time.Now}
}

// Issue creates a fresh token for the user and purpose, returning the raw
// string to embed in the emailed link. Any prior token of the same purpose
// is deleted first, keeping at most one live token per user per purpose.
func (s *TokenService) Issue(ctx context.Context, userID string, purpose domain.TokenPurpose) (string, domain.AuthToken, error) {
	l := slogx.FromContext(ctx)

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		l.Error("failed to generate token", slog.Any("error", err))
		return "", domain.AuthToken{}, err
	}

	now := s.now().UTC()
	record := domain.AuthToken{
		ID:        idx.New().String(),
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: now.Add(purpose.TTL()),
		CreatedAt: now,
	}

	// Delete-then-create inside one transaction so two concurrent issues
	// for the same user cannot leave both tokens live.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.AuthTokens().DeleteUserAuthTokens(ctx, userID, purpose); err != nil {
			return err
		}
		return tx.AuthTokens().CreateAuthToken(ctx, record)
	})
	if err != nil {
		l.Error("failed to store token",
			slog.String("user_id", userID),
			slog.String("purpose", string(purpose)),
			slog.Any("error", err),
		)
		return "", domain.AuthToken{}, err
	}

	return raw, record, nil
}

// Verify resolves a raw token string to its record. An unknown fingerprint
// yields ErrTokenInvalid; a known-but-expired token is deleted on the spot
// and yields ErrTokenExpired, so the next attempt with the same string
// reports invalid.
//
// Verify does not consume the token. Callers must call Consume after the
// dependent action succeeds, so a verify-then-fail sequence leaves the
// token usable for retry.
func (s *TokenService) Verify(ctx context.Context, raw string, purpose domain.TokenPurpose) (domain.AuthToken, error) {
	l := slogx.FromContext(ctx)

	hash := cryptox.FingerprintToken(raw)
	record, err := s.Store.AuthTokens().GetAuthTokenByHash(ctx, hash, purpose)
	if errors.Is(err, store.ErrNotFound) {
		return domain.AuthToken{}, ErrTokenInvalid
	}
	if err != nil {
		return domain.AuthToken{}, err
	}

	if s.now().After(record.ExpiresAt) {
		// Lazy cleanup: expired tokens are removed when touched.
		if err := s.Store.AuthTokens().DeleteAuthToken(ctx, record.ID); err != nil {
			l.Warn("failed to delete expired token",
				slog.String("token_id", record.ID),
				slog.Any("error", err),
			)
		}
		return domain.AuthToken{}, ErrTokenExpired
	}

	return record, nil
}

// Consume deletes a verified token after its dependent action completed.
func (s *TokenService) Consume(ctx context.Context, tokenID string) error {
	return s.Store.AuthTokens().DeleteAuthToken(ctx, tokenID)
}
