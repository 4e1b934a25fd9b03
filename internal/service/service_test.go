package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/placemate/placemate/internal/domain"
	"github.com/placemate/placemate/internal/metrics"
	"github.com/placemate/placemate/internal/store"
	"github.com/placemate/placemate/internal/store/drivers/sqlite"
	"github.com/placemate/placemate/pkg/cryptox"
	"github.com/placemate/placemate/pkg/idx"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedSettings(t *testing.T, st store.Store, cfg domain.Settings) {
	t.Helper()
	if cfg.PlatformName == "" {
		cfg.PlatformName = "Placemate Test"
	}
	require.NoError(t, st.Settings().CreateSettings(context.Background(), cfg))
}

func createTestUser(t *testing.T, st store.Store, email, password string, role domain.Role) domain.User {
	t.Helper()

	u := domain.User{
		ID:    idx.New().String(),
		Email: strings.ToLower(email),
		Name:  "Test User",
		Role:  role,
	}
	if password != "" {
		hash, err := cryptox.HashPassword(password)
		require.NoError(t, err)
		u.PasswordHash = hash
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

// mockMailer records every delivery and can be told to fail specific
// kinds. Links are recorded even on failure so tests can inspect the
// tokens that were rolled back.
type mockMailer struct {
	mu sync.Mutex

	failVerification bool
	failReset        bool
	failWelcome      bool

	verificationLinks []string
	resetLinks        []string
	welcomes          []string
	suspensions       []string
	approvals         []string
	rejections        []string
}

var errSMTPDown = errors.New("smtp: connection refused")

func (m *mockMailer) SendVerificationEmail(_ context.Context, to, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verificationLinks = append(m.verificationLinks, link)
	if m.failVerification {
		return errSMTPDown
	}
	return nil
}

func (m *mockMailer) SendPasswordResetEmail(_ context.Context, to, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLinks = append(m.resetLinks, link)
	if m.failReset {
		return errSMTPDown
	}
	return nil
}

func (m *mockMailer) SendWelcomeEmail(_ context.Context, to, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomes = append(m.welcomes, to)
	if m.failWelcome {
		return errSMTPDown
	}
	return nil
}

func (m *mockMailer) SendAccountSuspended(_ context.Context, to, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspensions = append(m.suspensions, to)
	return nil
}

func (m *mockMailer) SendOrganizationApproved(_ context.Context, to, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approvals = append(m.approvals, to)
	return nil
}

func (m *mockMailer) SendOrganizationRejected(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections = append(m.rejections, to)
	return nil
}

func (m *mockMailer) lastVerificationToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.verificationLinks)
	return tokenFromLink(t, m.verificationLinks[len(m.verificationLinks)-1])
}

func (m *mockMailer) lastResetToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.resetLinks)
	return tokenFromLink(t, m.resetLinks[len(m.resetLinks)-1])
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	_, token, ok := strings.Cut(link, "token=")
	require.True(t, ok, "link %q has no token parameter", link)
	return token
}

func newTestAuthService(t *testing.T, st store.Store, m *mockMailer) *AuthService {
	t.Helper()
	return NewAuthService(
		st,
		NewTokenService(st),
		NewSettingsService(st),
		m,
		metrics.Nop{},
		"http://localhost:8080",
	)
}

// fixedNow pins a TokenService clock for expiry tests.
func fixedNow(ts *TokenService, at time.Time) {
	ts.now = func() time.Time { return at }
}
