// Package obs holds the Prometheus instrumentation for the engine.
package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics carries the engine's counters. Registered on a private registry
// so tests can create instances freely.
type Metrics struct {
	registry *prometheus.Registry

	LoginAttempts    *prometheus.CounterVec
	MFAVerifications *prometheus.CounterVec
	TokensIssued     prometheus.Counter
	TokensRefreshed  prometheus.Counter
	RequestDuration  *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Credential checks by outcome.",
		}, []string{"result"}),
		MFAVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mfa_verifications_total",
			Help: "MFA code verifications by outcome.",
		}, []string{"result"}),
		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "token_pairs_issued_total",
			Help: "Access/refresh pairs minted after completed logins.",
		}),
		TokensRefreshed: factory.NewCounter(prometheus.CounterOpts{
			Name: "access_tokens_refreshed_total",
			Help: "Access tokens minted through the refresh grant.",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
