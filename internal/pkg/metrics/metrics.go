// Package metrics provides Prometheus metrics for the PowerDesk gateway (RED + auth + audit).
// Runbooks and dashboards can rely on these names.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "powerdesk"

var (
	// HTTPRequestTotal counts requests by method, path, status (RED: rate).
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, path, and status.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDurationSeconds is request latency histogram (RED: duration).
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10), // 1ms to ~9.3s
		},
		[]string{"method", "path"},
	)

	// AuthAttemptsTotal counts authentication calls by method (password, token) and outcome.
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Total number of authentication attempts by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	// AccessDecisionsTotal counts guard decisions by resource kind and decision.
	AccessDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_decisions_total",
			Help:      "Total number of authorization decisions by kind and decision.",
		},
		[]string{"kind", "decision"},
	)

	// ActiveSessions is the number of stored login sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of login sessions currently stored.",
		},
	)

	// SessionsSweptTotal counts sessions removed by the expiry sweeper.
	SessionsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Total number of expired sessions removed by the sweeper.",
		},
	)

	// AuditEventsTotal counts recorded audit events by type.
	AuditEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_total",
			Help:      "Total number of audit events by event type.",
		},
		[]string{"event_type"},
	)

	// AuditSinkErrorsTotal counts failed sink writes.
	AuditSinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_sink_errors_total",
			Help:      "Total number of audit sink write failures by sink.",
		},
		[]string{"sink"},
	)

	// LoginRateLimitedTotal counts login requests rejected by the per-IP limiter.
	LoginRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_rate_limited_total",
			Help:      "Total number of login requests rejected by rate limiting.",
		},
	)

	// UpstreamRequestsTotal counts proxied device API calls by status.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of requests forwarded to the device API by status.",
		},
		[]string{"status"},
	)
)
