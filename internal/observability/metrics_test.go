package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordSubmission()
	m.RecordSubmission()
	m.RecordDecision("approve", "ok")
	m.RecordDecision("approve", "INVALID_TRANSITION")
	m.RecordDelivery("listing_approved", false)
	m.RecordRequest("/chat/events", "POST", 200, 15*time.Millisecond)
	m.SetIntakeSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("approve", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("approve", "INVALID_TRANSITION")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("listing_approved", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/chat/events", "POST", "200")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.intakeSessions))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSubmission()
		m.RecordDecision("reject", "ok")
		m.RecordDelivery("new_submission", true)
		m.RecordError("/x", "GET", "NOT_FOUND")
		m.SetIntakeSessions(1)
		m.RecordIntakeRejected("awaiting_quantity")
	})
}
