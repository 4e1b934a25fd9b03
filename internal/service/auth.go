package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/placemate/placemate/internal/domain"
	"github.com/placemate/placemate/internal/mailer"
	"github.com/placemate/placemate/internal/metrics"
	"github.com/placemate/placemate/internal/ratelimit"
	"github.com/placemate/placemate/internal/store"
	"github.com/placemate/placemate/pkg/cryptox"
	"github.com/placemate/placemate/pkg/idx"
	"github.com/placemate/placemate/pkg/slogx"
)

// Rate-limit categories for the sensitive auth operations. Login, signup
// and reset are keyed by client IP; resend is keyed by the target email so
// repeated-resend spam against one mailbox is stopped regardless of source.
const (
	loginLimit   = 5
	loginWindow  = 15 * time.Minute
	signupLimit  = 5
	signupWindow = time.Hour
	resetLimit   = 3
	resetWindow  = time.Hour
	resendLimit  = 3
	resendWindow = 15 * time.Minute
)

const minPasswordLength = 8

// AuthService orchestrates signup, signin, password reset and email
// verification. It owns no HTTP concerns; the handler layer writes the
// session cookie from the user this service returns.
type AuthService struct {
	Store    store.Store
	Tokens   *TokenService
	Settings *SettingsService
	Mailer   mailer.Mailer
	Metrics  metrics.Collector

	// BaseURL is the externally reachable origin used to build emailed
	// links, e.g. "https://placemate.example.edu".
	BaseURL string

	LoginLimiter  *ratelimit.Limiter
	SignupLimiter *ratelimit.Limiter
	ResetLimiter  *ratelimit.Limiter
	ResendLimiter *ratelimit.Limiter
}

// NewAuthService wires the auth orchestrator with its default limiter
// windows.
func NewAuthService(st store.Store, tokens *TokenService, settings *SettingsService, m mailer.Mailer, collector metrics.Collector, baseURL string) *AuthService {
	return &AuthService{
		Store:         st,
		Tokens:        tokens,
		Settings:      settings,
		Mailer:        m,
		Metrics:       collector,
		BaseURL:       strings.TrimRight(baseURL, "/"),
		LoginLimiter:  ratelimit.New(loginLimit, loginWindow),
		SignupLimiter: ratelimit.New(signupLimit, signupWindow),
		ResetLimiter:  ratelimit.New(resetLimit, resetWindow),
		ResendLimiter: ratelimit.New(resendLimit, resendWindow),
	}
}

// SignUpRequest carries the signup form fields plus the client IP for
// rate limiting.
type SignUpRequest struct {
	Name     string
	Email    string
	Password string
	Role     string

	// Role-specific profile fields; which one applies depends on Role.
	Program    string
	Department string
	Website    string

	ClientIP string
}

// SignUp registers a new account. The identity and its role profile are
// created in one transaction; the verification token and email follow.
// If the verification email cannot be delivered the just-created account
// is deleted again (compensating action), since an unverified account
// with no reachable link is useless.
//
// SignUp does not establish a session; the user signs in after verifying.
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (domain.User, error) {
	l := slogx.FromContext(ctx)

	// 1. Rate limit before any work.
	if res := s.SignupLimiter.Check(req.ClientIP); !res.Success {
		l.Warn("signup rate limited", slog.String("client_ip", req.ClientIP))
		s.Metrics.RecordRateLimited("signup")
		s.Metrics.RecordSignup("rate_limited")
		return domain.User{}, ErrRateLimited
	}

	// 2. Validate input.
	email, err := normalizeEmail(req.Email)
	if err != nil {
		s.Metrics.RecordSignup("invalid_input")
		return domain.User{}, ErrInvalidInput
	}
	if strings.TrimSpace(req.Name) == "" {
		s.Metrics.RecordSignup("invalid_input")
		return domain.User{}, ErrInvalidInput
	}
	if err := checkPasswordStrength(req.Password); err != nil {
		s.Metrics.RecordSignup("weak_password")
		return domain.User{}, err
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok || role == domain.RoleAdministrator {
		// Administrators are created via setup or by another admin, never
		// through public signup.
		s.Metrics.RecordSignup("invalid_role")
		return domain.User{}, ErrInvalidRole
	}

	// 3. Registration policy: student and coordinator signups must match
	// the configured email domains unless public registration is enabled.
	cfg, err := s.Settings.Get(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if !cfg.AllowPublicRegistration {
		if err := checkDomainPolicy(role, email, cfg); err != nil {
			l.Warn("signup rejected by domain policy",
				slog.String("email", email),
				slog.String("role", string(role)),
			)
			s.Metrics.RecordSignup("domain_policy")
			return domain.User{}, err
		}
	}

	// 4. Duplicate check, case-insensitive. The unique index backs this up
	// against races; checking first gives the cleaner error.
	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		s.Metrics.RecordSignup("email_taken")
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	// 5. Hash the password.
	passHash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		l.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	// 6. Create identity and role profile atomically.
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: passHash,
		Role:         role,
	}
	profile := domain.Profile{
		UserID:     user.ID,
		Role:       role,
		Program:    req.Program,
		Department: req.Department,
		Website:    req.Website,
	}
	if role == domain.RoleOrganization {
		profile.Status = domain.OrganizationPending
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return err
		}
		return tx.Profiles().CreateProfile(ctx, profile)
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			s.Metrics.RecordSignup("email_taken")
			return domain.User{}, err
		}
		l.Error("failed to create user",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return domain.User{}, err
	}

	// 7. Issue the verification token.
	raw, _, err := s.Tokens.Issue(ctx, user.ID, domain.PurposeVerification)
	if err != nil {
		s.compensateSignup(ctx, user.ID)
		return domain.User{}, err
	}

	// 8. Send the verification email; on failure, delete the account
	// again. Best-effort: a crash between the commit and this delete
	// leaves an unverified account recoverable via resend-verification.
	if err := s.Mailer.SendVerificationEmail(ctx, user.Email, user.Name, s.link("/verify-email", raw)); err != nil {
		l.Error("verification email failed, rolling back signup",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		s.Metrics.RecordEmailSent("verification", "fail")
		s.Metrics.RecordSignup("email_delivery")
		s.compensateSignup(ctx, user.ID)
		return domain.User{}, ErrEmailDelivery
	}
	s.Metrics.RecordEmailSent("verification", "ok")

	s.Metrics.RecordSignup("ok")
	l.Info("user signed up",
		slog.String("user_id", user.ID),
		slog.String("role", string(role)),
	)
	return user, nil
}

// compensateSignup hard-deletes a just-created account; profile and
// tokens cascade.
func (s *AuthService) compensateSignup(ctx context.Context, userID string) {
	if err := s.Store.Users().DeleteUser(ctx, userID); err != nil {
		slogx.FromContext(ctx).Error("signup compensating delete failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}

// SignIn validates credentials and returns the account. An unknown email,
// a wrong password and an account that never set a password all produce
// the same ErrInvalidCredentials; suspension gets its own error since the
// account's existence is already implied by reaching that check.
func (s *AuthService) SignIn(ctx context.Context, email, password, clientIP string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	// 1. Rate limit before the credential check, so a correct password on
	// the attempt after the limit still fails.
	if res := s.LoginLimiter.Check(clientIP); !res.Success {
		l.Warn("signin rate limited", slog.String("client_ip", clientIP))
		s.Metrics.RecordRateLimited("login")
		s.Metrics.RecordSignin("rate_limited")
		return domain.User{}, ErrRateLimited
	}

	// 2. Look the account up; absent and passwordless collapse into the
	// generic credential error.
	user, err := s.Store.Users().GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		s.Metrics.RecordSignin("invalid_credentials")
		return domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		s.Metrics.RecordSignin("invalid_credentials")
		return domain.User{}, ErrInvalidCredentials
	}

	// 3. Verify the password.
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		s.Metrics.RecordSignin("invalid_credentials")
		return domain.User{}, ErrInvalidCredentials
	}

	// 4. Suspension check after credentials, so suspension status leaks
	// only to someone holding the password.
	if user.Suspended {
		l.Warn("suspended account signin attempt", slog.String("user_id", user.ID))
		s.Metrics.RecordSignin("suspended")
		return domain.User{}, ErrAccountSuspended
	}

	s.Metrics.RecordSignin("ok")
	l.Info("user signed in", slog.String("user_id", user.ID))
	return user, nil
}

// RequestPasswordReset issues a reset token and emails the link. An
// unknown email is a silent no-op so the endpoint cannot be used to
// enumerate accounts. A delivery failure deletes the just-issued token
// and surfaces ErrEmailDelivery.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, clientIP string) error {
	l := slogx.FromContext(ctx)

	// 1. Rate limit.
	if res := s.ResetLimiter.Check(clientIP); !res.Success {
		l.Warn("password reset rate limited", slog.String("client_ip", clientIP))
		s.Metrics.RecordRateLimited("password_reset")
		return ErrRateLimited
	}

	// 2. Silent no-op for unknown accounts.
	user, err := s.Store.Users().GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	// 3. Issue and email the token.
	raw, record, err := s.Tokens.Issue(ctx, user.ID, domain.PurposePasswordReset)
	if err != nil {
		return err
	}

	if err := s.Mailer.SendPasswordResetEmail(ctx, user.Email, user.Name, s.link("/reset-password", raw)); err != nil {
		l.Error("password reset email failed, deleting token",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		s.Metrics.RecordEmailSent("password_reset", "fail")
		// The token row is referenced by nothing else, so this is a true
		// rollback rather than a compensating best effort.
		if err := s.Tokens.Consume(ctx, record.ID); err != nil {
			l.Warn("failed to delete orphaned reset token",
				slog.String("token_id", record.ID),
				slog.Any("error", err),
			)
		}
		return ErrEmailDelivery
	}
	s.Metrics.RecordEmailSent("password_reset", "ok")

	l.Info("password reset requested", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword completes a reset: validates the token, stores the new
// hash, then consumes the token. A failure between the update and the
// consume leaves the token live, which only permits re-running the same
// reset.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	l := slogx.FromContext(ctx)

	// 1. Validate the token first so an expired link reports as such even
	// when the new password is also bad.
	record, err := s.Tokens.Verify(ctx, rawToken, domain.PurposePasswordReset)
	if err != nil {
		return err
	}

	// 2. Validate and hash the new password.
	if err := checkPasswordStrength(newPassword); err != nil {
		return err
	}
	passHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		l.Error("failed to hash password", slog.Any("error", err))
		return err
	}

	// 3. Update the credential.
	if err := s.Store.Users().UpdatePasswordHash(ctx, record.UserID, passHash); err != nil {
		l.Error("failed to update password",
			slog.String("user_id", record.UserID),
			slog.Any("error", err),
		)
		return err
	}

	// 4. Consume the token.
	if err := s.Tokens.Consume(ctx, record.ID); err != nil {
		l.Warn("failed to consume reset token",
			slog.String("token_id", record.ID),
			slog.Any("error", err),
		)
	}

	l.Info("password reset completed", slog.String("user_id", record.UserID))
	return nil
}

// VerifyEmail marks the account verified and consumes the token. The
// welcome email afterwards is best effort; verification already
// succeeded, so its failure is logged and swallowed.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	// 1. Validate the token.
	record, err := s.Tokens.Verify(ctx, rawToken, domain.PurposeVerification)
	if err != nil {
		return domain.User{}, err
	}

	// 2. Mark verified.
	if err := s.Store.Users().MarkEmailVerified(ctx, record.UserID, time.Now().UTC()); err != nil {
		l.Error("failed to mark email verified",
			slog.String("user_id", record.UserID),
			slog.Any("error", err),
		)
		return domain.User{}, err
	}

	// 3. Consume the token.
	if err := s.Tokens.Consume(ctx, record.ID); err != nil {
		l.Warn("failed to consume verification token",
			slog.String("token_id", record.ID),
			slog.Any("error", err),
		)
	}

	user, err := s.Store.Users().GetUserByID(ctx, record.UserID)
	if err != nil {
		return domain.User{}, err
	}

	// 4. Best-effort welcome email.
	if err := s.Mailer.SendWelcomeEmail(ctx, user.Email, user.Name); err != nil {
		l.Warn("welcome email failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		s.Metrics.RecordEmailSent("welcome", "fail")
	} else {
		s.Metrics.RecordEmailSent("welcome", "ok")
	}

	l.Info("email verified", slog.String("user_id", user.ID))
	return user, nil
}

// ResendVerificationEmail issues a fresh verification token for an
// unverified account and emails it. Unknown or already-verified accounts
// are silent no-ops. Rate limited by the target email rather than the
// caller's IP.
func (s *AuthService) ResendVerificationEmail(ctx context.Context, email string) error {
	l := slogx.FromContext(ctx)

	addr := strings.ToLower(strings.TrimSpace(email))

	// 1. Rate limit keyed by email.
	if res := s.ResendLimiter.Check(addr); !res.Success {
		l.Warn("verification resend rate limited", slog.String("email", addr))
		s.Metrics.RecordRateLimited("resend")
		return ErrRateLimited
	}

	// 2. No-op for unknown or already-verified accounts.
	user, err := s.Store.Users().GetUserByEmail(ctx, addr)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.Verified() {
		return nil
	}

	// 3. Issue a fresh token; the previous one is invalidated by issuance.
	raw, _, err := s.Tokens.Issue(ctx, user.ID, domain.PurposeVerification)
	if err != nil {
		return err
	}

	// 4. Send. No rollback on failure: the token simply expires unused and
	// the user can retry.
	if err := s.Mailer.SendVerificationEmail(ctx, user.Email, user.Name, s.link("/verify-email", raw)); err != nil {
		l.Error("verification resend failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		s.Metrics.RecordEmailSent("verification", "fail")
		return ErrEmailDelivery
	}
	s.Metrics.RecordEmailSent("verification", "ok")

	l.Info("verification email resent", slog.String("user_id", user.ID))
	return nil
}

// link builds an emailed link like BASE_URL/verify-email?token=...
func (s *AuthService) link(path, rawToken string) string {
	return fmt.Sprintf("%s%s?token=%s", s.BaseURL, path, url.QueryEscape(rawToken))
}

// normalizeEmail validates and canonicalizes a submitted address.
func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidInput
	}
	return strings.ToLower(addr.Address), nil
}

// checkPasswordStrength enforces the signup/reset password policy:
// minimum length plus at least one letter and one digit.
func checkPasswordStrength(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			hasLetter = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}

// checkDomainPolicy enforces the per-role email-domain restrictions.
// Organizations register from any domain; their gate is coordinator
// approval, not email provenance.
func checkDomainPolicy(role domain.Role, email string, cfg domain.Settings) error {
	domainOf := func(addr string) string {
		_, d, _ := strings.Cut(addr, "@")
		return d
	}

	switch role {
	case domain.RoleStudent:
		if cfg.StudentEmailDomain != "" && !strings.EqualFold(domainOf(email), cfg.StudentEmailDomain) {
			return ErrDomainNotAllowed
		}
	case domain.RoleCoordinator:
		if cfg.StaffEmailDomain != "" && !strings.EqualFold(domainOf(email), cfg.StaffEmailDomain) {
			return ErrDomainNotAllowed
		}
	}
	return nil
}
