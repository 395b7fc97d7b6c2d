package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-router/internal/domain"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRouting(domain.RoutingPathTriage)
	m.RecordRouting(domain.RoutingPathTriage)
	m.RecordAssignment(domain.AssignmentRoundRobin, true)
	m.RecordIngestedMessage("created")
	m.RecordPoll("skipped")
	m.RecordRequest("/api/v1/tickets", "POST", 201, time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.routing.WithLabelValues("triage")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.assignments.WithLabelValues("round_robin", "assigned")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ingestMessages.WithLabelValues("created")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ingestPolls.WithLabelValues("skipped")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/v1/tickets", "POST", "201")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRouting(domain.RoutingPathCategory)
	m.RecordAssignment(domain.AssignmentManual, false)
	m.RecordIngestedMessage("failed")
	m.RecordPoll("ok")
	m.RecordError("/", "GET", "NOT_FOUND")
}
