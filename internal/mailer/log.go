package mailer

import (
	"context"
	"log/slog"
)

// Log is a development Mailer that writes deliveries to the log instead
// of an SMTP relay, keeping verification and reset links reachable when
// no mail server is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger.With(slog.String("component", "mailer"))}
}

func (l *Log) SendVerificationEmail(_ context.Context, to, name, link string) error {
	l.logger.Info("verification email", "to", to, "name", name, "link", link)
	return nil
}

func (l *Log) SendPasswordResetEmail(_ context.Context, to, name, link string) error {
	l.logger.Info("password reset email", "to", to, "name", name, "link", link)
	return nil
}

func (l *Log) SendWelcomeEmail(_ context.Context, to, name string) error {
	l.logger.Info("welcome email", "to", to, "name", name)
	return nil
}

func (l *Log) SendAccountSuspended(_ context.Context, to, name string) error {
	l.logger.Info("account suspended email", "to", to, "name", name)
	return nil
}

func (l *Log) SendOrganizationApproved(_ context.Context, to, name string) error {
	l.logger.Info("organization approved email", "to", to, "name", name)
	return nil
}

func (l *Log) SendOrganizationRejected(_ context.Context, to, name, reason string) error {
	l.logger.Info("organization rejected email", "to", to, "name", name, "reason", reason)
	return nil
}
