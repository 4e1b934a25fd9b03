package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/placemate/placemate/internal/domain"
	"github.com/placemate/placemate/internal/metrics"
	"github.com/placemate/placemate/internal/service"
	"github.com/placemate/placemate/internal/session"
	"github.com/placemate/placemate/internal/store"
	"github.com/placemate/placemate/internal/store/drivers/sqlite"
	"github.com/placemate/placemate/pkg/cryptox"
)

// mockMailer records deliveries so tests can pluck tokens out of links.
type mockMailer struct {
	mu sync.Mutex

	verificationLinks []string
	resetLinks        []string
}

func (m *mockMailer) SendVerificationEmail(_ context.Context, _, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verificationLinks = append(m.verificationLinks, link)
	return nil
}

func (m *mockMailer) SendPasswordResetEmail(_ context.Context, _, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLinks = append(m.resetLinks, link)
	return nil
}

func (m *mockMailer) SendWelcomeEmail(context.Context, string, string) error          { return nil }
func (m *mockMailer) SendAccountSuspended(context.Context, string, string) error      { return nil }
func (m *mockMailer) SendOrganizationApproved(context.Context, string, string) error  { return nil }
func (m *mockMailer) SendOrganizationRejected(context.Context, string, string, string) error {
	return nil
}

func (m *mockMailer) lastVerificationToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.verificationLinks)
	link := m.verificationLinks[len(m.verificationLinks)-1]
	_, token, ok := strings.Cut(link, "token=")
	require.True(t, ok)
	return token
}

type testEnv struct {
	router *Router
	store  store.Store
	mail   *mockMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	mail := &mockMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewManager("test-secret", time.Hour, false)

	tokens := service.NewTokenService(st)
	settings := service.NewSettingsService(st)

	router := NewRouter("test", st, sessions, logger)
	router.AuthService = service.NewAuthService(st, tokens, settings, mail, metrics.Nop{}, "http://localhost:8080")
	router.SettingsService = settings
	router.AdminService = service.NewAdminService(st, mail, metrics.Nop{})
	router.ApplyRoutes()

	return &testEnv{router: router, store: st, mail: mail}
}

func (e *testEnv) configure(t *testing.T) {
	t.Helper()
	require.NoError(t, e.store.Settings().CreateSettings(context.Background(), domain.Settings{
		PlatformName:       "Placemate Test",
		StudentEmailDomain: "uni.edu",
		StaffEmailDomain:   "staff.uni.edu",
	}))
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func TestSignUpAndSignIn(t *testing.T) {
	e := newTestEnv(t)
	e.configure(t)

	rec := e.do(t, http.MethodPost, "/auth/signup", map[string]any{
		"name":     "Alice",
		"email":    "a@uni.edu",
		"password": "Abcd1234",
		"role":     "STUDENT",
		"program":  "Software Engineering",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created signUpResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.True(t, created.NeedsVerification)
	require.False(t, created.User.Verified)

	// Signup does not set a session cookie.
	for _, c := range rec.Result().Cookies() {
		require.NotEqual(t, session.CookieName, c.Name)
	}

	rec = e.do(t, http.MethodPost, "/auth/signin", map[string]any{
		"email":    "a@uni.edu",
		"password": "Abcd1234",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, sessionCookie(t, rec))
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	e := newTestEnv(t)
	e.configure(t)

	rec := e.do(t, http.MethodPost, "/auth/signin", map[string]any{
		"email":    "ghost@uni.edu",
		"password": "Abcd1234",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_credentials")
}

func TestSignUpDomainPolicyOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	e.configure(t)

	rec := e.do(t, http.MethodPost, "/auth/signup", map[string]any{
		"name":     "Eve",
		"email":    "eve@other.com",
		"password": "Abcd1234",
		"role":     "STUDENT",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "domain_not_allowed")
}

func TestSignOut(t *testing.T) {
	e := newTestEnv(t)
	e.configure(t)

	rec := e.do(t, http.MethodPost, "/auth/signout", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	for _, c := range rec.Result().Cookies() {
		require.Equal(t, session.CookieName, c.Name)
		require.Negative(t, c.MaxAge)
	}
}

func TestUnconfiguredPlatformRedirectsToSetup(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/login", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/setup", rec.Header().Get("Location"))
}

func TestSetupFlow(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/setup", map[string]any{
		"platform_name":        "Placemate Test",
		"student_email_domain": "uni.edu",
		"staff_email_domain":   "staff.uni.edu",
		"admin_name":           "Root Admin",
		"admin_email":          "admin@staff.uni.edu",
		"admin_password":       "Abcd1234",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	adminCookie := sessionCookie(t, rec)

	// The setup page now forwards to login.
	rec = e.do(t, http.MethodGet, "/setup", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))

	// A second setup attempt is refused.
	rec = e.do(t, http.MethodPost, "/setup", map[string]any{
		"platform_name":  "Again",
		"admin_name":     "Other",
		"admin_email":    "other@staff.uni.edu",
		"admin_password": "Abcd1234",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	// The first administrator's session passes the admin gate.
	rec = e.do(t, http.MethodGet, "/admin/users", nil, adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestVerificationGateLifecycle(t *testing.T) {
	e := newTestEnv(t)
	e.configure(t)

	// Sign up and sign in while still unverified.
	rec := e.do(t, http.MethodPost, "/auth/signup", map[string]any{
		"name":     "Alice",
		"email":    "a@uni.edu",
		"password": "Abcd1234",
		"role":     "STUDENT",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodPost, "/auth/signin", map[string]any{
		"email":    "a@uni.edu",
		"password": "Abcd1234",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)

	// The gate traps the unverified session on the pending page.
	rec = e.do(t, http.MethodGet, "/dashboard/settings", nil, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/verify-email-pending", rec.Header().Get("Location"))

	// Verifying refreshes the session snapshot.
	rec = e.do(t, http.MethodPost, "/auth/verify-email", map[string]any{
		"token": e.mail.lastVerificationToken(t),
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := sessionCookie(t, rec)

	// The same path is now served directly.
	rec = e.do(t, http.MethodGet, "/dashboard/settings", nil, refreshed)
	require.Equal(t, http.StatusOK, rec.Code)

	// And the pending page forwards to the dashboard.
	rec = e.do(t, http.MethodGet, "/verify-email-pending", nil, refreshed)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestGuestProtectedRouteRedirectsToLogin(t *testing.T) {
	e := newTestEnv(t)
	e.configure(t)

	rec := e.do(t, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestAdminAPIRequiresAdminRole(t *testing.T) {
	e := newTestEnv(t)
	e.configure(t)

	// Anonymous call.
	rec := e.do(t, http.MethodPost, "/admin/users/someone/suspend", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Student session.
	rec = e.do(t, http.MethodPost, "/auth/signup", map[string]any{
		"name":     "Alice",
		"email":    "a@uni.edu",
		"password": "Abcd1234",
		"role":     "STUDENT",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = e.do(t, http.MethodPost, "/auth/signin", map[string]any{
		"email":    "a@uni.edu",
		"password": "Abcd1234",
	})
	cookie := sessionCookie(t, rec)

	rec = e.do(t, http.MethodPost, "/admin/users/someone/suspend", nil, cookie)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminSuspendOverHTTP(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/setup", map[string]any{
		"platform_name":  "Placemate Test",
		"admin_name":     "Root Admin",
		"admin_email":    "admin@staff.uni.edu",
		"admin_password": "Abcd1234",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	adminCookie := sessionCookie(t, rec)

	// Target account.
	rec = e.do(t, http.MethodPost, "/auth/signup", map[string]any{
		"name":     "Alice",
		"email":    "a@uni.edu",
		"password": "Abcd1234",
		"role":     "STUDENT",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created signUpResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = e.do(t, http.MethodPost, "/admin/users/"+created.User.ID+"/suspend", nil, adminCookie)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The suspended account can no longer sign in.
	rec = e.do(t, http.MethodPost, "/auth/signin", map[string]any{
		"email":    "a@uni.edu",
		"password": "Abcd1234",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "account_suspended")
}

func TestLivez(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/livez", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestReadyz(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"database":"ok"`)
}
