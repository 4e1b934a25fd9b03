package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/placemate/placemate/internal/gate"
	"github.com/placemate/placemate/pkg/httpx"
	"github.com/placemate/placemate/pkg/slogx"
)

// GateMiddleware runs the routing policy in front of every page request.
// Redirects are 303 so a redirected POST is retried as a GET. The session
// is only peeked here; lazy logout of expired cookies happens when a
// handler calls Sessions.Read.
func (r *Router) GateMiddleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			configured, err := r.SettingsService.IsConfigured(req.Context())
			if err != nil {
				slogx.FromContext(req.Context()).Error("gate: failed to load settings",
					slog.Any("error", err),
				)
				httpx.WriteError(w, http.StatusInternalServerError,
					"server_error", "An internal error occurred")
				return
			}

			sess := r.Sessions.Peek(req)
			decision := gate.Evaluate(req.URL.Path, sess, configured, time.Now())

			if !decision.Allow {
				// Label on the path only; the query would blow up cardinality.
				target, _, _ := strings.Cut(decision.RedirectTo, "?")
				r.Metrics.RecordGateRedirect(target)
				http.Redirect(w, req, decision.RedirectTo, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, req)
		})
	}
}
