// Package mailer sends the platform's transactional email. The Mailer
// interface keeps services testable; the SMTP implementation is the only
// real transport.
package mailer

import "context"

// Mailer delivers transactional mail. Implementations must respect the
// context deadline; callers decide whether a delivery failure is fatal
// (signup verification) or best-effort (welcome, admin notices).
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, name, link string) error
	SendPasswordResetEmail(ctx context.Context, to, name, link string) error
	SendWelcomeEmail(ctx context.Context, to, name string) error
	SendAccountSuspended(ctx context.Context, to, name string) error
	SendOrganizationApproved(ctx context.Context, to, name string) error
	SendOrganizationRejected(ctx context.Context, to, name, reason string) error
}
