package http

import (
	"net/http"

	"github.com/placemate/placemate/internal/session"
)

type SignOutHandler struct {
	Sessions *session.Manager
}

// ServeHTTP clears the session cookie. Idempotent; signing out while
// signed out still answers 204.
func (h *SignOutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Destroy(w)
	w.WriteHeader(http.StatusNoContent)
}
