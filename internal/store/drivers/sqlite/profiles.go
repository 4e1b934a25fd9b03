package sqlite

import (
	"context"
	"time"

	"github.com/placemate/placemate/internal/domain"
)

type profilesRepo struct {
	db dbtx
}

func (r *profilesRepo) CreateProfile(ctx context.Context, p domain.Profile) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, role, program, department, website, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, string(p.Role), p.Program, p.Department, p.Website, string(p.Status), now, now,
	)
	return mapConflict(err)
}

func (r *profilesRepo) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, role, program, department, website, status, created_at, updated_at
		FROM profiles WHERE user_id = ?`, userID)

	var p domain.Profile
	var role, status string
	err := row.Scan(&p.UserID, &role, &p.Program, &p.Department, &p.Website, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Profile{}, mapNotFound(err)
	}
	p.Role = domain.Role(role)
	p.Status = domain.OrganizationStatus(status)
	return p, nil
}

func (r *profilesRepo) SetOrganizationStatus(ctx context.Context, userID string, status domain.OrganizationStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET status = ?, updated_at = ? WHERE user_id = ? AND role = ?`,
		string(status), time.Now().UTC(), userID, string(domain.RoleOrganization))
	return requireRow(res, err)
}
