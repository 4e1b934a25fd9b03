package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/placemate/placemate/internal/domain"
	"github.com/placemate/placemate/internal/service"
	"github.com/placemate/placemate/pkg/httpx"
)

// RequireAdmin guards the admin API: a live session with the
// ADMINISTRATOR role, or 401/403 JSON. The page-level admin namespace is
// guarded separately by the gate's redirects.
func (r *Router) RequireAdmin() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			user := r.Sessions.Read(w, req)
			if user == nil {
				httpx.WriteError(w, http.StatusUnauthorized,
					"unauthorized", "Authentication required")
				return
			}
			if user.Role != domain.RoleAdministrator {
				httpx.WriteError(w, http.StatusForbidden,
					"forbidden", "Administrator role required")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

type AdminHandler struct {
	AdminService *service.AdminService
}

func (h *AdminHandler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.AdminService.SuspendUser(r.Context(), r.PathValue("id")))
}

func (h *AdminHandler) HandleReinstate(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.AdminService.ReinstateUser(r.Context(), r.PathValue("id")))
}

func (h *AdminHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.AdminService.ApproveOrganization(r.Context(), r.PathValue("id")))
}

type rejectOrganizationRequest struct {
	Reason string `json:"reason"`
}

func (h *AdminHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	var req rejectOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	h.respond(w, h.AdminService.RejectOrganization(r.Context(), r.PathValue("id"), req.Reason))
}

func (h *AdminHandler) respond(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "No such user")
	case errors.Is(err, service.ErrInvalidRole):
		httpx.WriteError(w, http.StatusConflict, "invalid_role", "User is not an organization account")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An internal error occurred")
	}
}
