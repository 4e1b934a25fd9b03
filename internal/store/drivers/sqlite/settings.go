package sqlite

import (
	"context"
	"time"

	"github.com/placemate/placemate/internal/domain"
)

type settingsRepo struct {
	db dbtx
}

// The settings table holds at most one row, pinned to id 1.

func (r *settingsRepo) GetSettings(ctx context.Context) (domain.Settings, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT platform_name, allow_public_registration, student_email_domain,
		       staff_email_domain, support_email, created_at, updated_at
		FROM settings WHERE id = 1`)

	var s domain.Settings
	err := row.Scan(
		&s.PlatformName, &s.AllowPublicRegistration, &s.StudentEmailDomain,
		&s.StaffEmailDomain, &s.SupportEmail, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return domain.Settings{}, mapNotFound(err)
	}
	return s, nil
}

func (r *settingsRepo) CreateSettings(ctx context.Context, s domain.Settings) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (id, platform_name, allow_public_registration, student_email_domain,
		                      staff_email_domain, support_email, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)`,
		s.PlatformName, s.AllowPublicRegistration, s.StudentEmailDomain,
		s.StaffEmailDomain, s.SupportEmail, now, now,
	)
	return mapConflict(err)
}

func (r *settingsRepo) UpdateSettings(ctx context.Context, s domain.Settings) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE settings SET platform_name = ?, allow_public_registration = ?,
		       student_email_domain = ?, staff_email_domain = ?, support_email = ?, updated_at = ?
		WHERE id = 1`,
		s.PlatformName, s.AllowPublicRegistration, s.StudentEmailDomain,
		s.StaffEmailDomain, s.SupportEmail, time.Now().UTC(),
	)
	return requireRow(res, err)
}
