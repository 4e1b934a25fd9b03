package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/placemate/placemate/internal/domain"
)

func testSetupRequest() SetupRequest {
	return SetupRequest{
		PlatformName:       "Placemate Test",
		StudentEmailDomain: "uni.edu",
		StaffEmailDomain:   "staff.uni.edu",
		SupportEmail:       "support@uni.edu",
		AdminName:          "Root Admin",
		AdminEmail:         "admin@staff.uni.edu",
		AdminPassword:      "Abcd1234",
	}
}

func TestSetupIsOneTime(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewSettingsService(st)

	configured, err := svc.IsConfigured(ctx)
	require.NoError(t, err)
	require.False(t, configured)

	admin, err := svc.Setup(ctx, testSetupRequest())
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdministrator, admin.Role)
	require.True(t, admin.Verified())

	configured, err = svc.IsConfigured(ctx)
	require.NoError(t, err)
	require.True(t, configured)

	// The transition is one-way.
	_, err = svc.Setup(ctx, testSetupRequest())
	require.ErrorIs(t, err, ErrAlreadyConfigured)
}

func TestSetupValidation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewSettingsService(st)

	req := testSetupRequest()
	req.PlatformName = ""
	_, err := svc.Setup(ctx, req)
	require.ErrorIs(t, err, ErrInvalidInput)

	req = testSetupRequest()
	req.AdminEmail = "not-an-email"
	_, err = svc.Setup(ctx, req)
	require.ErrorIs(t, err, ErrInvalidInput)

	req = testSetupRequest()
	req.AdminPassword = "short"
	_, err = svc.Setup(ctx, req)
	require.ErrorIs(t, err, ErrWeakPassword)

	// Nothing was written by the failed attempts.
	configured, err := svc.IsConfigured(ctx)
	require.NoError(t, err)
	require.False(t, configured)
}

func TestSettingsCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewSettingsService(st)

	_, err := svc.Setup(ctx, testSetupRequest())
	require.NoError(t, err)

	cfg, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "uni.edu", cfg.StudentEmailDomain)

	cfg.StudentEmailDomain = "new.uni.edu"
	require.NoError(t, svc.Update(ctx, cfg))

	// Update invalidated the cache, so the next Get sees the new value.
	cfg, err = svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "new.uni.edu", cfg.StudentEmailDomain)
}

func TestGetServesFromCache(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewSettingsService(st)

	_, err := svc.Setup(ctx, testSetupRequest())
	require.NoError(t, err)

	first, err := svc.Get(ctx)
	require.NoError(t, err)

	// A write that bypasses the service is invisible until Invalidate.
	first.PlatformName = "Changed Behind The Cache"
	require.NoError(t, st.Settings().UpdateSettings(ctx, first))

	cached, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "Placemate Test", cached.PlatformName)

	svc.Invalidate()
	fresh, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "Changed Behind The Cache", fresh.PlatformName)
}
