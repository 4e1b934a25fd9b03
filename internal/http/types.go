package http

import "github.com/placemate/placemate/internal/domain"

// userResponse is the identity payload returned by signup, signin, setup
// and verify-email. The password hash never leaves the service layer.
type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Verified bool   `json:"verified"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     string(u.Role),
		Verified: u.Verified(),
	}
}

// messageResponse is a generic acknowledgement body.
type messageResponse struct {
	Message string `json:"message"`
}

// healthResponse is the body for /livez and /readyz.
type healthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *healthChecks `json:"checks,omitempty"`
}

type healthChecks struct {
	Database string `json:"database"`
}
