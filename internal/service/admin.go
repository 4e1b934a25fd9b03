package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/placemate/placemate/internal/domain"
	"github.com/placemate/placemate/internal/mailer"
	"github.com/placemate/placemate/internal/metrics"
	"github.com/placemate/placemate/internal/store"
	"github.com/placemate/placemate/pkg/slogx"
)

// AdminService covers the administrative account actions: suspension and
// organization approval. The notification emails are best effort; the
// state change is the operation, the email just reports it.
type AdminService struct {
	Store   store.Store
	Mailer  mailer.Mailer
	Metrics metrics.Collector
}

func NewAdminService(st store.Store, m mailer.Mailer, collector metrics.Collector) *AdminService {
	return &AdminService{Store: st, Mailer: m, Metrics: collector}
}

// SuspendUser flags the account suspended and notifies the owner. The
// flag takes effect on the next signin; an existing session keeps its
// stale snapshot until it expires or is refreshed.
func (s *AdminService) SuspendUser(ctx context.Context, userID string) error {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := s.Store.Users().SetSuspended(ctx, userID, true); err != nil {
		l.Error("failed to suspend user",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return err
	}

	if err := s.Mailer.SendAccountSuspended(ctx, user.Email, user.Name); err != nil {
		l.Warn("suspension email failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		s.Metrics.RecordEmailSent("suspended", "fail")
	} else {
		s.Metrics.RecordEmailSent("suspended", "ok")
	}

	l.Info("user suspended", slog.String("user_id", userID))
	return nil
}

// ReinstateUser clears the suspension flag. No email; the admin tells the
// user out of band.
func (s *AdminService) ReinstateUser(ctx context.Context, userID string) error {
	err := s.Store.Users().SetSuspended(ctx, userID, false)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("user reinstated", slog.String("user_id", userID))
	return nil
}

// ApproveOrganization moves an organization profile to approved and
// notifies the account.
func (s *AdminService) ApproveOrganization(ctx context.Context, userID string) error {
	return s.setOrganizationStatus(ctx, userID, domain.OrganizationApproved, "")
}

// RejectOrganization moves an organization profile to rejected; the
// reason is included in the notification email.
func (s *AdminService) RejectOrganization(ctx context.Context, userID, reason string) error {
	return s.setOrganizationStatus(ctx, userID, domain.OrganizationRejected, reason)
}

func (s *AdminService) setOrganizationStatus(ctx context.Context, userID string, status domain.OrganizationStatus, reason string) error {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if user.Role != domain.RoleOrganization {
		return ErrInvalidRole
	}

	if err := s.Store.Profiles().SetOrganizationStatus(ctx, userID, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		l.Error("failed to update organization status",
			slog.String("user_id", userID),
			slog.String("status", string(status)),
			slog.Any("error", err),
		)
		return err
	}

	var mailErr error
	var kind string
	switch status {
	case domain.OrganizationApproved:
		kind = "org_approved"
		mailErr = s.Mailer.SendOrganizationApproved(ctx, user.Email, user.Name)
	case domain.OrganizationRejected:
		kind = "org_rejected"
		mailErr = s.Mailer.SendOrganizationRejected(ctx, user.Email, user.Name, reason)
	}
	if mailErr != nil {
		l.Warn("organization status email failed",
			slog.String("user_id", userID),
			slog.Any("error", mailErr),
		)
		s.Metrics.RecordEmailSent(kind, "fail")
	} else if kind != "" {
		s.Metrics.RecordEmailSent(kind, "ok")
	}

	l.Info("organization status updated",
		slog.String("user_id", userID),
		slog.String("status", string(status)),
	)
	return nil
}
