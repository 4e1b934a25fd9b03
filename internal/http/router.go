// Package http wires the auth endpoints, the admin endpoints, the system
// probes and the request gate onto one mux.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/placemate/placemate/internal/metrics"
	"github.com/placemate/placemate/internal/service"
	"github.com/placemate/placemate/internal/session"
	"github.com/placemate/placemate/internal/store"
	"github.com/placemate/placemate/pkg/httpx"
	"github.com/placemate/placemate/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	Sessions *session.Manager

	AuthService     *service.AuthService
	SettingsService *service.SettingsService
	AdminService    *service.AdminService

	Metrics  metrics.Collector
	Gatherer prometheus.Gatherer

	// Pages serves everything the gate allows through: the UI layer. The
	// default stub answers 200 so the gate is exercisable without a
	// frontend build.
	Pages http.Handler
}

func NewRouter(
	buildVersion string,
	st store.Store,
	sessions *session.Manager,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		Sessions:     sessions,
		logger:       logger,
		Metrics:      metrics.Nop{},
		Pages:        defaultPageHandler(),
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSetup()
	r.registerAdmin()
	r.registerSystem()
	r.registerPages()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	signup := &SignUpHandler{AuthService: r.AuthService}
	signin := &SignInHandler{AuthService: r.AuthService, Sessions: r.Sessions}
	signout := &SignOutHandler{Sessions: r.Sessions}
	forgot := &ForgotPasswordHandler{AuthService: r.AuthService}
	reset := &ResetPasswordHandler{AuthService: r.AuthService}
	verify := &VerifyEmailHandler{AuthService: r.AuthService, Sessions: r.Sessions}
	resend := &ResendVerificationHandler{AuthService: r.AuthService}

	// The service layer runs its own fixed-window limiters per category;
	// the transport buckets here just blunt raw request floods.
	r.Mux.Handle("POST /auth/signup",
		httpx.Chain(signup, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /auth/signin",
		httpx.Chain(signin, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /auth/signout",
		httpx.Chain(signout, httpx.RateLimitByIP(httpx.ModerateLimit)))
	r.Mux.Handle("POST /auth/forgot-password",
		httpx.Chain(forgot, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /auth/reset-password",
		httpx.Chain(reset, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /auth/verify-email",
		httpx.Chain(verify, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /auth/resend-verification",
		httpx.Chain(resend, httpx.RateLimitByIP(httpx.StrictLimit)))
}

func (r *Router) registerSetup() {
	h := &SetupHandler{SettingsService: r.SettingsService, Sessions: r.Sessions}
	r.Mux.Handle("POST /setup",
		httpx.Chain(h, httpx.RateLimitByIP(httpx.StrictLimit)))
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{AdminService: r.AdminService}

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			r.RequireAdmin(),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /admin/users/{id}/suspend", secured(h.HandleSuspend))
	r.Mux.Handle("POST /admin/users/{id}/reinstate", secured(h.HandleReinstate))
	r.Mux.Handle("POST /admin/organizations/{id}/approve", secured(h.HandleApprove))
	r.Mux.Handle("POST /admin/organizations/{id}/reject", secured(h.HandleReject))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	if r.Gatherer != nil {
		r.Mux.Handle("GET /metrics",
			httpx.Chain(metrics.Handler(r.Gatherer),
				httpx.RateLimitByIP(httpx.PublicLimit),
			),
		)
	}
}

// registerPages routes every remaining path through the request gate and
// into the page layer.
func (r *Router) registerPages() {
	r.Mux.Handle("/", httpx.Chain(r.Pages, r.GateMiddleware()))
}

func defaultPageHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	})
}
