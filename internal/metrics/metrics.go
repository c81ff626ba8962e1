// Package metrics holds the Prometheus collectors for the identity
// front-end: authorization backend latency, flow outcomes and session
// checks. Collectors are registered on an explicit registry so the server
// and each test get their own set.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the flow counters.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeSkipped  = "skipped"
	OutcomeTrusted  = "trusted"
	OutcomeRendered = "rendered"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Metrics holds every collector the application records to.
type Metrics struct {
	registry *prometheus.Registry

	BackendRequestDuration *prometheus.HistogramVec
	FlowOutcomes           *prometheus.CounterVec
	SessionChecks          *prometheus.CounterVec
	EmailsSent             *prometheus.CounterVec
}

// New creates a registry with the Go and process collectors plus the
// application metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		BackendRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "identity_backend_request_duration_seconds",
			Help:    "Latency of authorization backend admin API calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation", "outcome"}),
		FlowOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_flow_outcomes_total",
			Help: "Login, consent and logout flow results",
		}, []string{"flow", "outcome"}),
		SessionChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_session_checks_total",
			Help: "Session cookie verifications by result",
		}, []string{"result"}),
		EmailsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_emails_sent_total",
			Help: "Outgoing e-mails by kind and result",
		}, []string{"kind", "result"}),
	}
}

// ObserveBackend records one backend call. A nil receiver is a no-op so
// callers that run without metrics (CLI, tests) need no guard.
func (m *Metrics) ObserveBackend(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.BackendRequestDuration.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())
}

// Flow counts one flow result.
func (m *Metrics) Flow(flow, outcome string) {
	if m == nil {
		return
	}
	m.FlowOutcomes.WithLabelValues(flow, outcome).Inc()
}

// Session counts one session cookie verification.
func (m *Metrics) Session(result string) {
	if m == nil {
		return
	}
	m.SessionChecks.WithLabelValues(result).Inc()
}

// Email counts one outgoing e-mail.
func (m *Metrics) Email(kind string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.EmailsSent.WithLabelValues(kind, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
