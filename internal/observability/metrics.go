package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spec-kit/ticket-router/internal/domain"
)

// Metrics exposes prometheus collectors for routing, assignment, ingestion and HTTP.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	routing         *prometheus.CounterVec
	assignments     *prometheus.CounterVec
	ingestMessages  *prometheus.CounterVec
	ingestPolls     *prometheus.CounterVec
}

// NewMetrics registers collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP error responses by code.",
		}, []string{"path", "method", "code"}),
		routing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "routing_decisions_total",
			Help: "Routing decisions by cascade path.",
		}, []string{"path"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assignments_total",
			Help: "Assignment engine outcomes by strategy.",
		}, []string{"strategy", "outcome"}),
		ingestMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestion_messages_total",
			Help: "Inbound email messages by outcome.",
		}, []string{"outcome"}),
		ingestPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestion_polls_total",
			Help: "Mailbox poll cycles by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.requestDuration, m.errors, m.routing, m.assignments, m.ingestMessages, m.ingestPolls)
	}
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordRouting counts a routing decision.
func (m *Metrics) RecordRouting(path domain.RoutingPath) {
	if m == nil {
		return
	}
	m.routing.WithLabelValues(string(path)).Inc()
}

// RecordAssignment counts an assignment attempt; outcome is "assigned" or "unassigned".
func (m *Metrics) RecordAssignment(strategy domain.AssignmentType, assigned bool) {
	if m == nil {
		return
	}
	outcome := "unassigned"
	if assigned {
		outcome = "assigned"
	}
	m.assignments.WithLabelValues(string(strategy), outcome).Inc()
}

// RecordIngestedMessage counts one processed inbound message.
func (m *Metrics) RecordIngestedMessage(outcome string) {
	if m == nil {
		return
	}
	m.ingestMessages.WithLabelValues(outcome).Inc()
}

// RecordPoll counts one poll cycle.
func (m *Metrics) RecordPoll(outcome string) {
	if m == nil {
		return
	}
	m.ingestPolls.WithLabelValues(outcome).Inc()
}
