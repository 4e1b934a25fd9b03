package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/placemate/placemate/internal/service"
	"github.com/placemate/placemate/internal/session"
	"github.com/placemate/placemate/pkg/httpx"
	"github.com/placemate/placemate/pkg/slogx"
)

type SignInHandler struct {
	AuthService *service.AuthService
	Sessions    *session.Manager
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ServeHTTP validates credentials and establishes the session cookie.
func (h *SignInHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	user, err := h.AuthService.SignIn(r.Context(), req.Email, req.Password, httpx.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRateLimited):
			httpx.WriteError(w, http.StatusTooManyRequests,
				"rate_limited", "Too many signin attempts. Please try again later.")
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized,
				"invalid_credentials", "Invalid email or password")
		case errors.Is(err, service.ErrAccountSuspended):
			httpx.WriteError(w, http.StatusForbidden,
				"account_suspended", "This account has been suspended")
		default:
			httpx.WriteError(w, http.StatusInternalServerError,
				"server_error", "An internal error occurred")
		}
		return
	}

	if _, err := h.Sessions.Create(w, user); err != nil {
		slogx.FromContext(r.Context()).Error("failed to create session",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		httpx.WriteError(w, http.StatusInternalServerError,
			"server_error", "An internal error occurred")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}
