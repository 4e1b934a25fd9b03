// Package gate implements the per-request routing policy evaluated before
// any page is rendered: platform setup, authentication, role checks, the
// email-verification trap state, and guest-only routes. Evaluate is a
// pure function over (path, session, configured) so the full rule table
// is testable without HTTP machinery; the middleware wrapping lives in
// internal/http.
package gate

import (
	"strings"
	"time"

	"github.com/placemate/placemate/internal/domain"
	"github.com/placemate/placemate/internal/session"
)

// Page paths the gate routes between.
const (
	SetupPath          = "/setup"
	LoginPath          = "/login"
	RegisterPath       = "/register"
	ForgotPasswordPath = "/forgot-password"
	ResetPasswordPath  = "/reset-password"
	VerifyEmailPath    = "/verify-email"
	VerifyPendingPath  = "/verify-email-pending"
	DashboardPath      = "/dashboard"
	AdminPrefix        = "/admin"
	AccessDeniedPath   = "/access-denied"
)

// assetPrefixes pass through unconditionally: static files and the
// non-page surfaces (API, health, metrics) that enforce their own policy.
var assetPrefixes = []string{
	"/assets/",
	"/static/",
	"/favicon",
	"/auth/",
	"/livez",
	"/readyz",
	"/metrics",
}

// guestOnly routes redirect authenticated users away.
var guestOnly = map[string]bool{
	LoginPath:          true,
	RegisterPath:       true,
	ForgotPasswordPath: true,
	ResetPasswordPath:  true,
}

// Decision is the gate's verdict for one request.
type Decision struct {
	Allow      bool
	RedirectTo string
}

func allow() Decision             { return Decision{Allow: true} }
func redirect(to string) Decision { return Decision{RedirectTo: to} }

// Evaluate applies the routing rules in order; each rule can short-circuit
// the rest with a redirect. The session is the decoded cookie (nil when
// absent or unreadable); configured reports whether the platform settings
// record exists.
func Evaluate(path string, sess *session.Session, configured bool, now time.Time) Decision {
	// 1. Asset bypass.
	for _, p := range assetPrefixes {
		if strings.HasPrefix(path, p) {
			return allow()
		}
	}

	// 2. Locale strip so the remaining rules match canonical paths.
	p := stripLocale(path)

	// 3. Setup gate: an unconfigured platform routes everything to /setup;
	// once configured there is no way back, so /setup forwards to /login.
	if !configured {
		if p == SetupPath {
			return allow()
		}
		return redirect(SetupPath)
	}
	if p == SetupPath {
		return redirect(LoginPath)
	}

	authed := sess != nil && !sess.Expired(now)
	protected := strings.HasPrefix(p, DashboardPath) || strings.HasPrefix(p, AdminPrefix)

	// 4. Protected-route check.
	if protected && !authed {
		return redirect(LoginPath)
	}

	// 5. Role check: the admin namespace needs the ADMINISTRATOR role. The
	// query parameter is informational for the denied page; the redirect
	// itself is the enforcement.
	if strings.HasPrefix(p, AdminPrefix) && sess.User.Role != domain.RoleAdministrator {
		return redirect(AccessDeniedPath + "?required=" + string(domain.RoleAdministrator))
	}

	// 6. Verification gate: authenticated-but-unverified users are trapped
	// on the verification pages until they verify; verified users who land
	// on the pending page are forwarded to the dashboard.
	if authed && !sess.User.Verified {
		if protected && p != VerifyPendingPath && p != VerifyEmailPath {
			return redirect(VerifyPendingPath)
		}
	}
	if authed && sess.User.Verified && p == VerifyPendingPath {
		return redirect(DashboardPath)
	}

	// 7. Guest-only routes.
	if guestOnly[p] && authed {
		if sess.User.Verified {
			return redirect(DashboardPath)
		}
		return redirect(VerifyPendingPath)
	}

	// 8. Delegate to locale-resolution passthrough.
	return allow()
}

// stripLocale removes a leading locale segment ("/en/dashboard" →
// "/dashboard") so the remaining rules match on canonical paths. The
// i18n layer re-applies the prefix on output.
func stripLocale(path string) string {
	rest, ok := strings.CutPrefix(path, "/")
	if !ok {
		return path
	}

	seg, tail, _ := strings.Cut(rest, "/")
	if !isLocale(seg) {
		return path
	}
	if tail == "" {
		return "/"
	}
	return "/" + tail
}

// isLocale matches "en" or "en-AU" style segments.
func isLocale(seg string) bool {
	switch len(seg) {
	case 2:
		return isAlphaLower(seg)
	case 5:
		return isAlphaLower(seg[:2]) && seg[2] == '-' && isAlphaUpper(seg[3:])
	default:
		return false
	}
}

func isAlphaLower(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

func isAlphaUpper(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
