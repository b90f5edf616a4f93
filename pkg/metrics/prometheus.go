package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the call service
type Metrics struct {
	// HTTP Request Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Gateway (WebSocket) Metrics
	gatewayConnections   prometheus.Gauge
	gatewayMessagesTotal *prometheus.CounterVec

	// Signal Relay Metrics
	signalsRelayedTotal *prometheus.CounterVec

	// Call Metrics
	callsTotal  *prometheus.CounterVec
	callsActive prometheus.Gauge

	// Notification Metrics
	notificationsTotal *prometheus.CounterVec
	pushSentTotal      *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: labels,
			},
		),
		gatewayConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "gateway_connections",
				Help:        "Number of live gateway WebSocket connections",
				ConstLabels: labels,
			},
		),
		gatewayMessagesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "gateway_messages_total",
				Help:        "Total gateway messages by event and direction",
				ConstLabels: labels,
			},
			[]string{"event", "direction"},
		),
		signalsRelayedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "signals_relayed_total",
				Help:        "Total WebRTC signals relayed by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		callsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calls_total",
				Help:        "Total call lifecycle transitions by event",
				ConstLabels: labels,
			},
			[]string{"event"},
		),
		callsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "calls_active",
				Help:        "Number of calls currently in the active state",
				ConstLabels: labels,
			},
		),
		notificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "notifications_total",
				Help:        "Total live notifications by event and outcome",
				ConstLabels: labels,
			},
			[]string{"event", "outcome"},
		),
		pushSentTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "push_notifications_total",
				Help:        "Total push notifications by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
	}
}

// RecordHTTPRequest records an HTTP request with its duration
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// GatewayConnectionOpened increments the live connection gauge
func (m *Metrics) GatewayConnectionOpened() {
	m.gatewayConnections.Inc()
}

// GatewayConnectionClosed decrements the live connection gauge
func (m *Metrics) GatewayConnectionClosed() {
	m.gatewayConnections.Dec()
}

// RecordGatewayMessage records a gateway message ("inbound" or "outbound")
func (m *Metrics) RecordGatewayMessage(event, direction string) {
	m.gatewayMessagesTotal.WithLabelValues(event, direction).Inc()
}

// RecordSignalRelay records a relay attempt ("delivered" or "unreachable")
func (m *Metrics) RecordSignalRelay(outcome string) {
	m.signalsRelayedTotal.WithLabelValues(outcome).Inc()
}

// RecordCallEvent records a call lifecycle event (initiated, accepted, ...)
func (m *Metrics) RecordCallEvent(event string) {
	m.callsTotal.WithLabelValues(event).Inc()
}

// CallActivated increments the active-calls gauge
func (m *Metrics) CallActivated() {
	m.callsActive.Inc()
}

// CallDeactivated decrements the active-calls gauge
func (m *Metrics) CallDeactivated() {
	m.callsActive.Dec()
}

// RecordNotification records a live notification outcome
func (m *Metrics) RecordNotification(event, outcome string) {
	m.notificationsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordPush records a push notification outcome ("sent" or "failed")
func (m *Metrics) RecordPush(outcome string) {
	m.pushSentTotal.WithLabelValues(outcome).Inc()
}
