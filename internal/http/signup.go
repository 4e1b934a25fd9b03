package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/placemate/placemate/internal/service"
	"github.com/placemate/placemate/pkg/httpx"
)

type SignUpHandler struct {
	AuthService *service.AuthService
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`

	Program    string `json:"program,omitempty"`
	Department string `json:"department,omitempty"`
	Website    string `json:"website,omitempty"`
}

type signUpResponse struct {
	User              userResponse `json:"user"`
	NeedsVerification bool         `json:"needs_verification"`
}

// ServeHTTP registers a new account. Signup does not establish a session;
// the client is expected to direct the user to the verification-pending
// page.
func (h *SignUpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	user, err := h.AuthService.SignUp(r.Context(), service.SignUpRequest{
		Name:       strings.TrimSpace(req.Name),
		Email:      req.Email,
		Password:   req.Password,
		Role:       req.Role,
		Program:    strings.TrimSpace(req.Program),
		Department: strings.TrimSpace(req.Department),
		Website:    strings.TrimSpace(req.Website),
		ClientIP:   httpx.ClientIP(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRateLimited):
			httpx.WriteError(w, http.StatusTooManyRequests,
				"rate_limited", "Too many signup attempts. Please try again later.")
		case errors.Is(err, service.ErrInvalidInput):
			httpx.WriteError(w, http.StatusBadRequest,
				"invalid_request", "Name and a valid email address are required")
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteError(w, http.StatusBadRequest,
				"weak_password", "Password must be at least 8 characters and contain a letter and a digit")
		case errors.Is(err, service.ErrInvalidRole):
			httpx.WriteError(w, http.StatusBadRequest,
				"invalid_role", "Role must be STUDENT, COORDINATOR or ORGANIZATION")
		case errors.Is(err, service.ErrDomainNotAllowed):
			httpx.WriteError(w, http.StatusForbidden,
				"domain_not_allowed", "This email domain is not allowed for the selected role")
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteError(w, http.StatusConflict,
				"email_taken", "An account with this email already exists")
		case errors.Is(err, service.ErrEmailDelivery):
			httpx.WriteError(w, http.StatusBadGateway,
				"email_delivery_failed", "We could not send the verification email. Please try again.")
		default:
			httpx.WriteError(w, http.StatusInternalServerError,
				"server_error", "An internal error occurred")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, signUpResponse{
		User:              toUserResponse(user),
		NeedsVerification: true,
	})
}
