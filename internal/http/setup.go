package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/placemate/placemate/internal/service"
	"github.com/placemate/placemate/internal/session"
	"github.com/placemate/placemate/pkg/httpx"
	"github.com/placemate/placemate/pkg/slogx"
)

type SetupHandler struct {
	SettingsService *service.SettingsService
	Sessions        *session.Manager
}

type setupRequest struct {
	PlatformName            string `json:"platform_name"`
	AllowPublicRegistration bool   `json:"allow_public_registration"`
	StudentEmailDomain      string `json:"student_email_domain"`
	StaffEmailDomain        string `json:"staff_email_domain"`
	SupportEmail            string `json:"support_email"`

	AdminName     string `json:"admin_name"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
}

// ServeHTTP performs the one-time platform setup and signs the first
// administrator in.
func (h *SetupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	admin, err := h.SettingsService.Setup(r.Context(), service.SetupRequest{
		PlatformName:            strings.TrimSpace(req.PlatformName),
		AllowPublicRegistration: req.AllowPublicRegistration,
		StudentEmailDomain:      strings.TrimSpace(req.StudentEmailDomain),
		StaffEmailDomain:        strings.TrimSpace(req.StaffEmailDomain),
		SupportEmail:            strings.TrimSpace(req.SupportEmail),
		AdminName:               strings.TrimSpace(req.AdminName),
		AdminEmail:              req.AdminEmail,
		AdminPassword:           req.AdminPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyConfigured):
			httpx.WriteError(w, http.StatusConflict,
				"already_configured", "The platform has already been set up")
		case errors.Is(err, service.ErrInvalidInput):
			httpx.WriteError(w, http.StatusBadRequest,
				"invalid_request", "Platform name, admin name and a valid admin email are required")
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteError(w, http.StatusBadRequest,
				"weak_password", "Password must be at least 8 characters and contain a letter and a digit")
		default:
			httpx.WriteError(w, http.StatusInternalServerError,
				"server_error", "An internal error occurred")
		}
		return
	}

	if _, err := h.Sessions.Create(w, admin); err != nil {
		slogx.FromContext(r.Context()).Error("failed to create admin session",
			slog.String("user_id", admin.ID),
			slog.Any("error", err),
		)
	}

	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(admin))
}
