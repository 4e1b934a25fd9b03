package service

import "errors"

// Typed errors the HTTP layer maps to user-facing responses. Credential
// mismatches always surface as ErrInvalidCredentials regardless of whether
// the email, the password, or a never-set password was at fault, so error
// content cannot be used to enumerate accounts.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrWeakPassword       = errors.New("password does not meet requirements")
	ErrInvalidRole        = errors.New("invalid role")
	ErrDomainNotAllowed   = errors.New("email domain not allowed for this role")
	ErrEmailTaken         = errors.New("email already registered")
	ErrRateLimited        = errors.New("too many attempts, try again later")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenExpired       = errors.New("token expired")
	ErrEmailDelivery      = errors.New("email delivery failed")
	ErrAlreadyConfigured  = errors.New("platform already configured")
	ErrNotFound           = errors.New("not found")
)
