package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/placemate/placemate/internal/domain"
)

func TestIssueKeepsAtMostOneLiveToken(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createTestUser(t, st, "alice@uni.edu", "Abcd1234", domain.RoleStudent)

	svc := NewTokenService(st)

	first, _, err := svc.Issue(ctx, user.ID, domain.PurposeVerification)
	require.NoError(t, err)
	second, _, err := svc.Issue(ctx, user.ID, domain.PurposeVerification)
	require.NoError(t, err)

	// Only the second token validates; the first was deleted at issuance.
	_, err = svc.Verify(ctx, first, domain.PurposeVerification)
	require.ErrorIs(t, err, ErrTokenInvalid)

	record, err := svc.Verify(ctx, second, domain.PurposeVerification)
	require.NoError(t, err)
	require.Equal(t, user.ID, record.UserID)
}

func TestIssuePurposesAreIndependent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createTestUser(t, st, "alice@uni.edu", "Abcd1234", domain.RoleStudent)

	svc := NewTokenService(st)

	verification, _, err := svc.Issue(ctx, user.ID, domain.PurposeVerification)
	require.NoError(t, err)
	reset, _, err := svc.Issue(ctx, user.ID, domain.PurposePasswordReset)
	require.NoError(t, err)

	// Issuing a reset token does not invalidate the verification token,
	// and neither validates under the other purpose.
	_, err = svc.Verify(ctx, verification, domain.PurposeVerification)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, verification, domain.PurposePasswordReset)
	require.ErrorIs(t, err, ErrTokenInvalid)
	_, err = svc.Verify(ctx, reset, domain.PurposePasswordReset)
	require.NoError(t, err)
}

func TestIssueTTLByPurpose(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createTestUser(t, st, "alice@uni.edu", "Abcd1234", domain.RoleStudent)

	svc := NewTokenService(st)
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fixedNow(svc, issuedAt)

	_, verification, err := svc.Issue(ctx, user.ID, domain.PurposeVerification)
	require.NoError(t, err)
	require.Equal(t, issuedAt.Add(24*time.Hour), verification.ExpiresAt)

	_, reset, err := svc.Issue(ctx, user.ID, domain.PurposePasswordReset)
	require.NoError(t, err)
	require.Equal(t, issuedAt.Add(time.Hour), reset.ExpiresAt)
}

func TestVerifyExpiredThenInvalid(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createTestUser(t, st, "alice@uni.edu", "Abcd1234", domain.RoleStudent)

	svc := NewTokenService(st)
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fixedNow(svc, issuedAt)

	raw, _, err := svc.Issue(ctx, user.ID, domain.PurposeVerification)
	require.NoError(t, err)

	// Past the 24h TTL the first attempt reports expired and deletes the
	// record; the second attempt reports invalid because it is gone.
	fixedNow(svc, issuedAt.Add(25*time.Hour))
	_, err = svc.Verify(ctx, raw, domain.PurposeVerification)
	require.ErrorIs(t, err, ErrTokenExpired)

	_, err = svc.Verify(ctx, raw, domain.PurposeVerification)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createTestUser(t, st, "alice@uni.edu", "Abcd1234", domain.RoleStudent)

	svc := NewTokenService(st)

	raw, _, err := svc.Issue(ctx, user.ID, domain.PurposeVerification)
	require.NoError(t, err)

	// A verify-then-fail sequence leaves the token usable for retry.
	record, err := svc.Verify(ctx, raw, domain.PurposeVerification)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, raw, domain.PurposeVerification)
	require.NoError(t, err)

	require.NoError(t, svc.Consume(ctx, record.ID))
	_, err = svc.Verify(ctx, raw, domain.PurposeVerification)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyUnknownToken(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	svc := NewTokenService(st)
	_, err := svc.Verify(ctx, "never-issued", domain.PurposeVerification)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
