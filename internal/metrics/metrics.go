// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Placements           *prometheus.CounterVec
	OperationErrors      *prometheus.CounterVec
	StatusUpdateFailures prometheus.Counter
	ScanCaptures         *prometheus.CounterVec
	ScanSessions         prometheus.Gauge
	FeedSubscribers      prometheus.Gauge
	Notifications        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccstock_placements_total",
			Help: "Placement events appended to the log, by kind (place or deliver).",
		}, []string{"kind"}),
		OperationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccstock_operation_errors_total",
			Help: "Failed orchestrator operations, by operation and error kind.",
		}, []string{"op", "kind"}),
		StatusUpdateFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ccstock_status_update_failures_total",
			Help: "Best-effort machine status updates that failed after a placement was recorded.",
		}),
		ScanCaptures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccstock_scan_captures_total",
			Help: "Scanned codes, by side (location or machine) and result (pending, paired, rejected).",
		}, []string{"side", "result"}),
		ScanSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ccstock_scan_sessions",
			Help: "Open scan pairing sessions.",
		}),
		FeedSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ccstock_feed_subscribers",
			Help: "Connected live event stream clients.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccstock_notifications_total",
			Help: "Web push deliveries, by result (sent, failed, expired).",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ccstock_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"method", "route", "status"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Placements,
			m.OperationErrors,
			m.StatusUpdateFailures,
			m.ScanCaptures,
			m.ScanSessions,
			m.FeedSubscribers,
			m.Notifications,
			m.RequestDuration,
		)
	}
	return m
}

func (m *Metrics) PlacementRecorded(kind string) {
	if m == nil {
		return
	}
	m.Placements.WithLabelValues(kind).Inc()
}

func (m *Metrics) OperationFailed(op, kind string) {
	if m == nil {
		return
	}
	m.OperationErrors.WithLabelValues(op, kind).Inc()
}

func (m *Metrics) StatusUpdateFailed() {
	if m == nil {
		return
	}
	m.StatusUpdateFailures.Inc()
}

func (m *Metrics) ScanCaptured(side, result string) {
	if m == nil {
		return
	}
	m.ScanCaptures.WithLabelValues(side, result).Inc()
}

func (m *Metrics) SetScanSessions(n int) {
	if m == nil {
		return
	}
	m.ScanSessions.Set(float64(n))
}

func (m *Metrics) SubscriberAdded() {
	if m == nil {
		return
	}
	m.FeedSubscribers.Inc()
}

func (m *Metrics) SubscriberRemoved() {
	if m == nil {
		return
	}
	m.FeedSubscribers.Dec()
}

func (m *Metrics) NotificationResult(result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(result).Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
