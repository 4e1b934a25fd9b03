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

type VerifyEmailHandler struct {
	AuthService *service.AuthService
	Sessions    *session.Manager
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

// ServeHTTP confirms an email address with an emailed token. When the
// verified account is also the one currently signed in, the session
// snapshot is re-issued so the gate sees the verified flag immediately.
func (h *VerifyEmailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	user, err := h.AuthService.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenExpired):
			httpx.WriteError(w, http.StatusGone,
				"token_expired", "This verification link has expired. Please request a new one.")
		case errors.Is(err, service.ErrTokenInvalid):
			httpx.WriteError(w, http.StatusBadRequest,
				"token_invalid", "This verification link is not valid. Please check the link in your email.")
		default:
			httpx.WriteError(w, http.StatusInternalServerError,
				"server_error", "An internal error occurred")
		}
		return
	}

	if current := h.Sessions.Read(w, r); current != nil && current.ID == user.ID {
		if _, err := h.Sessions.Create(w, user); err != nil {
			slogx.FromContext(r.Context()).Warn("failed to refresh session after verification",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
		}
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

type ResendVerificationHandler struct {
	AuthService *service.AuthService
}

type resendVerificationRequest struct {
	Email string `json:"email"`
}

// ServeHTTP re-sends the verification link. Unknown and already-verified
// accounts are acknowledged the same way as real resends.
func (h *ResendVerificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req resendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	err := h.AuthService.ResendVerificationEmail(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRateLimited):
			httpx.WriteError(w, http.StatusTooManyRequests,
				"rate_limited", "Too many resend requests. Please try again later.")
		case errors.Is(err, service.ErrEmailDelivery):
			httpx.WriteError(w, http.StatusBadGateway,
				"email_delivery_failed", "We could not send the verification email. Please try again.")
		default:
			httpx.WriteError(w, http.StatusInternalServerError,
				"server_error", "An internal error occurred")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, messageResponse{
		Message: "If an unverified account with that email exists, a new link has been sent.",
	})
}
