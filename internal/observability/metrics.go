package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	adminRequestsTotal   *prometheus.CounterVec
	adminLatencySeconds  *prometheus.HistogramVec
	adminErrorsTotal     *prometheus.CounterVec
	reviewDecisionsTotal *prometheus.CounterVec
	reviewConflictsTotal *prometheus.CounterVec
	chatConnectionsTotal prometheus.Counter
	chatMessagesTotal    *prometheus.CounterVec
	assistantRequests    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apex_admin_requests_total",
			Help: "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "apex_admin_latency_seconds",
			Help:    "Latency distribution for admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apex_admin_errors_total",
			Help: "Total number of error responses returned by admin endpoints.",
		}, []string{"method", "route", "status"})

		reviewDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apex_review_decisions_total",
			Help: "Total number of committed submission review decisions.",
		}, []string{"kind", "status"})

		reviewConflictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apex_review_conflicts_total",
			Help: "Total number of review updates rejected by the status guard.",
		}, []string{"kind"})

		chatConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apex_chat_connections_total",
			Help: "Total number of accepted chat websocket connections.",
		})

		chatMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apex_chat_messages_sent_total",
			Help: "Total number of chat messages broadcast to rooms.",
		}, []string{"type"})

		assistantRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apex_assistant_requests_total",
			Help: "Total number of assistant questions grouped by gate outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			adminRequestsTotal,
			adminLatencySeconds,
			adminErrorsTotal,
			reviewDecisionsTotal,
			reviewConflictsTotal,
			chatConnectionsTotal,
			chatMessagesTotal,
			assistantRequests,
		)
	})
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for admin error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}

// ReviewDecisions exposes the counter for accepted and rejected reviews.
func ReviewDecisions() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewDecisionsTotal
}

// ReviewConflicts exposes the counter for reviews lost to a concurrent
// decision on the same submission.
func ReviewConflicts() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewConflictsTotal
}

// ChatConnections exposes the counter for websocket connections.
func ChatConnections() prometheus.Counter {
	RegisterMetrics()
	return chatConnectionsTotal
}

// ChatMessagesSent exposes the counter for broadcast chat messages.
func ChatMessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesTotal
}

// AssistantRequests exposes the counter for assistant gate outcomes.
func AssistantRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return assistantRequests
}
