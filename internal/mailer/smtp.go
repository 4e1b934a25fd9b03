package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// dialTimeout caps how long a single delivery may block the caller;
// signup holds a rolled-back-on-failure transaction boundary behind it.
const dialTimeout = 10 * time.Second

// SMTPConfig carries the SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Platform string
}

// SMTP is the production Mailer. One client is shared across sends; the
// go-mail client dials per DialAndSend call, so it is safe for
// concurrent use.
type SMTP struct {
	client *mail.Client
	from   string
	name   string
}

// NewSMTP builds the SMTP mailer. Authentication is enabled only when a
// username is configured, so a local relay without auth still works.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(dialTimeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailer: client: %w", err)
	}

	return &SMTP{client: client, from: cfg.From, name: cfg.Platform}, nil
}

func (s *SMTP) SendVerificationEmail(ctx context.Context, to, name, link string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to %s. Please confirm your email address by opening the link below:\n\n%s\n\nThe link is valid for 24 hours. If you did not create this account you can ignore this message.\n",
		name, s.name, link)
	return s.send(ctx, to, "Verify your email address", body)
}

func (s *SMTP) SendPasswordResetEmail(ctx context.Context, to, name, link string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nA password reset was requested for your %s account. Open the link below to choose a new password:\n\n%s\n\nThe link is valid for 1 hour. If you did not request this, no action is needed and your password is unchanged.\n",
		name, s.name, link)
	return s.send(ctx, to, "Reset your password", body)
}

func (s *SMTP) SendWelcomeEmail(ctx context.Context, to, name string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour email address is confirmed and your %s account is ready to use.\n",
		name, s.name)
	return s.send(ctx, to, fmt.Sprintf("Welcome to %s", s.name), body)
}

func (s *SMTP) SendAccountSuspended(ctx context.Context, to, name string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour %s account has been suspended by an administrator. If you believe this is a mistake, please contact support.\n",
		name, s.name)
	return s.send(ctx, to, "Your account has been suspended", body)
}

func (s *SMTP) SendOrganizationApproved(ctx context.Context, to, name string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour organization has been approved on %s. You can now publish placements and review applications.\n",
		name, s.name)
	return s.send(ctx, to, "Your organization has been approved", body)
}

func (s *SMTP) SendOrganizationRejected(ctx context.Context, to, name, reason string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour organization registration on %s was not approved.\n\nReason: %s\n\nYou may contact support for further detail.\n",
		name, s.name, reason)
	return s.send(ctx, to, "Your organization registration was declined", body)
}

func (s *SMTP) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("mailer: from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mailer: to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}
