// Package metrics collects and exposes Prometheus counters for the auth
// surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is what the service layer records against; the Prometheus
// implementation is Registry. Outcome labels are low-cardinality strings
// such as "ok", "invalid_credentials", "rate_limited".
type Collector interface {
	RecordSignup(outcome string)
	RecordSignin(outcome string)
	RecordRateLimited(category string)
	RecordEmailSent(kind, outcome string)
	RecordGateRedirect(target string)
}

// Registry is the Prometheus-backed Collector.
type Registry struct {
	signups       *prometheus.CounterVec
	signins       *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
	emails        *prometheus.CounterVec
	gateRedirects *prometheus.CounterVec
}

// NewRegistry creates the collector and registers its metrics on reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "placemate_signups_total",
			Help: "Signup attempts by outcome.",
		}, []string{"outcome"}),
		signins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "placemate_signins_total",
			Help: "Signin attempts by outcome.",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "placemate_rate_limited_total",
			Help: "Requests rejected by the auth rate limiter, by category.",
		}, []string{"category"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "placemate_emails_total",
			Help: "Transactional emails by kind and outcome.",
		}, []string{"kind", "outcome"}),
		gateRedirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "placemate_gate_redirects_total",
			Help: "Gate redirects by target path.",
		}, []string{"target"}),
	}

	reg.MustRegister(
		r.signups,
		r.signins,
		r.rateLimited,
		r.emails,
		r.gateRedirects,
	)

	return r
}

func (r *Registry) RecordSignup(outcome string) {
	r.signups.WithLabelValues(outcome).Inc()
}

func (r *Registry) RecordSignin(outcome string) {
	r.signins.WithLabelValues(outcome).Inc()
}

func (r *Registry) RecordRateLimited(category string) {
	r.rateLimited.WithLabelValues(category).Inc()
}

func (r *Registry) RecordEmailSent(kind, outcome string) {
	r.emails.WithLabelValues(kind, outcome).Inc()
}

func (r *Registry) RecordGateRedirect(target string) {
	r.gateRedirects.WithLabelValues(target).Inc()
}

// Nop discards every observation; used by tests and by callers that do
// not wire a registry.
type Nop struct{}

func (Nop) RecordSignup(string)            {}
func (Nop) RecordSignin(string)            {}
func (Nop) RecordRateLimited(string)       {}
func (Nop) RecordEmailSent(string, string) {}
func (Nop) RecordGateRedirect(string)      {}

// Handler returns the scrape endpoint for the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
