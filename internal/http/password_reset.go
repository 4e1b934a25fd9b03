package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/placemate/placemate/internal/service"
	"github.com/placemate/placemate/pkg/httpx"
)

type ForgotPasswordHandler struct {
	AuthService *service.AuthService
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ServeHTTP requests a password reset link. The response for an unknown
// email is indistinguishable from a successful request.
func (h *ForgotPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	err := h.AuthService.RequestPasswordReset(r.Context(), req.Email, httpx.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRateLimited):
			httpx.WriteError(w, http.StatusTooManyRequests,
				"rate_limited", "Too many reset requests. Please try again later.")
		case errors.Is(err, service.ErrEmailDelivery):
			httpx.WriteError(w, http.StatusBadGateway,
				"email_delivery_failed", "We could not send the reset email. Please try again.")
		default:
			httpx.WriteError(w, http.StatusInternalServerError,
				"server_error", "An internal error occurred")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, messageResponse{
		Message: "If an account with that email exists, a reset link has been sent.",
	})
}

type ResetPasswordHandler struct {
	AuthService *service.AuthService
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ServeHTTP completes a password reset with an emailed token.
func (h *ResetPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	err := h.AuthService.ResetPassword(r.Context(), req.Token, req.Password)
	if err != nil {
		switch {
		// Invalid and expired are distinguished so the UI can offer
		// "request a new link" only when a new link would help.
		case errors.Is(err, service.ErrTokenExpired):
			httpx.WriteError(w, http.StatusGone,
				"token_expired", "This reset link has expired. Please request a new one.")
		case errors.Is(err, service.ErrTokenInvalid):
			httpx.WriteError(w, http.StatusBadRequest,
				"token_invalid", "This reset link is not valid. Please check the link in your email.")
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteError(w, http.StatusBadRequest,
				"weak_password", "Password must be at least 8 characters and contain a letter and a digit")
		default:
			httpx.WriteError(w, http.StatusInternalServerError,
				"server_error", "An internal error occurred")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
