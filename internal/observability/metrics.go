package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	errors         *prometheus.CounterVec
	submissions    prometheus.Counter
	decisions      *prometheus.CounterVec
	deliveries     *prometheus.CounterVec
	intakeSessions prometheus.Gauge
	intakeRejected *prometheus.CounterVec
}

// NewMetrics registers collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketplace_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_http_errors_total",
			Help: "HTTP errors by route, method and error code.",
		}, []string{"route", "method", "code"}),
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_listings_submitted_total",
			Help: "Listings submitted for moderation.",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_moderation_decisions_total",
			Help: "Moderation decisions by outcome.",
		}, []string{"decision", "result"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_notification_deliveries_total",
			Help: "Notification deliveries by event type and result.",
		}, []string{"event_type", "result"}),
		intakeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "marketplace_intake_sessions_active",
			Help: "In-flight intake sessions held in memory.",
		}),
		intakeRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_intake_inputs_rejected_total",
			Help: "Intake inputs that failed validation, by state.",
		}, []string{"state"}),
	}

	reg.MustRegister(
		m.requests,
		m.requestLatency,
		m.errors,
		m.submissions,
		m.decisions,
		m.deliveries,
		m.intakeSessions,
		m.intakeRejected,
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordSubmission counts a committed submission.
func (m *Metrics) RecordSubmission() {
	if m == nil {
		return
	}
	m.submissions.Inc()
}

// RecordDecision counts an approve/reject attempt; result is "ok" or an error code.
func (m *Metrics) RecordDecision(decision, result string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision, result).Inc()
}

// RecordDelivery counts one notification delivery attempt.
func (m *Metrics) RecordDelivery(eventType string, ok bool) {
	if m == nil {
		return
	}
	result := "delivered"
	if !ok {
		result = "failed"
	}
	m.deliveries.WithLabelValues(eventType, result).Inc()
}

// SetIntakeSessions reports the current number of in-memory sessions.
func (m *Metrics) SetIntakeSessions(n int) {
	if m == nil {
		return
	}
	m.intakeSessions.Set(float64(n))
}

// RecordIntakeRejected counts an input that was re-prompted.
func (m *Metrics) RecordIntakeRejected(state string) {
	if m == nil {
		return
	}
	m.intakeRejected.WithLabelValues(state).Inc()
}
