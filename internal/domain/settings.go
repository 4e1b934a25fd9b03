package domain

import "time"

// Settings is the platform configuration record. Its absence means the
// platform has not been set up yet, which the request gate turns into a
// global redirect to /setup.
type Settings struct {
	PlatformName            string
	AllowPublicRegistration bool   // bypasses all domain policy checks when set
	StudentEmailDomain      string // e.g. "uni.edu"; empty disables the check
	StaffEmailDomain        string // applies to coordinator signups
	SupportEmail            string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}
