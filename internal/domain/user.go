package domain

import "time"

// Role is a user's platform role. Exactly one role per user, assigned at
// creation and never changed afterwards.
type Role string

const (
	RoleStudent       Role = "STUDENT"
	RoleCoordinator   Role = "COORDINATOR"
	RoleOrganization  Role = "ORGANIZATION"
	RoleAdministrator Role = "ADMINISTRATOR"
)

// ParseRole validates a role string submitted at signup.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleStudent, RoleCoordinator, RoleOrganization, RoleAdministrator:
		return Role(s), true
	default:
		return "", false
	}
}

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string     // argon2 encoded; empty for accounts that never set a password
	Role         Role
	VerifiedAt   *time.Time // nil means email not verified yet
	Suspended    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Verified reports whether the user's email address has been confirmed.
func (u User) Verified() bool { return u.VerifiedAt != nil }

// OrganizationStatus tracks the coordinator approval of an organization account.
type OrganizationStatus string

const (
	OrganizationPending  OrganizationStatus = "pending"
	OrganizationApproved OrganizationStatus = "approved"
	OrganizationRejected OrganizationStatus = "rejected"
)

// Profile is the role-specific row created alongside the base identity.
// The fields populated depend on the role.
type Profile struct {
	UserID     string
	Role       Role
	Program    string             // students
	Department string             // coordinators
	Website    string             // organizations
	Status     OrganizationStatus // organizations
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
