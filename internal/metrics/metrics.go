// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed Connection Metrics
	FeedConnectionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_connection_state",
			Help: "1 for the current connection status, 0 for all others",
		},
		[]string{"status"},
	)

	FeedTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_connection_transitions_total",
			Help: "Total number of connection status transitions",
		},
		[]string{"from", "to"},
	)

	FeedReconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_reconnect_attempts_total",
			Help: "Total number of scheduled reconnect attempts",
		},
	)

	FeedBackoffSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_reconnect_backoff_seconds",
			Help:    "Backoff delay before each reconnect attempt",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
		},
	)

	FeedHeartbeatTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_heartbeat_timeouts_total",
			Help: "Total number of sessions ended by a missing heartbeat_ack",
		},
	)

	FeedMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_messages_sent_total",
			Help: "Total number of messages sent to the feed",
		},
		[]string{"type"},
	)

	FeedCommandsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_commands_rejected_total",
			Help: "Total number of outbound commands rejected by the client-side rate limit",
		},
		[]string{"type"},
	)

	// Dispatcher Metrics
	FramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_frames_received_total",
			Help: "Total number of well-formed frames dispatched",
		},
		[]string{"type"},
	)

	ProtocolErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_protocol_errors_total",
			Help: "Total number of malformed frames dropped",
		},
	)

	HandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_handler_errors_total",
			Help: "Total number of subscriber failures (errors and panics)",
		},
		[]string{"type"},
	)

	DispatchSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_subscribers",
			Help: "Current number of registered frame subscribers",
		},
	)

	// Buffer Metrics
	BufferLines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "buffer_lines",
			Help: "Current number of production lines with buffered samples",
		},
	)

	BufferSamplesAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "buffer_samples_appended_total",
			Help: "Total number of production samples appended",
		},
	)

	BufferSamplesOverwritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "buffer_samples_overwritten_total",
			Help: "Total number of samples evicted by a full per-line window",
		},
	)

	BufferLineEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buffer_line_evictions_total",
			Help: "Total number of lines dropped from the buffer",
		},
		[]string{"reason"}, // capacity, expired
	)

	// Projector Metrics
	ProjectorPublishes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "projector_publishes_total",
			Help: "Total number of throttled latest-value publishes",
		},
	)

	ProjectorPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "projector_pending",
			Help: "Current number of lines with a deferred publish queued",
		},
	)

	// Alarm Metrics
	AlarmsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alarms_received_total",
			Help: "Total number of alarms received",
		},
		[]string{"severity"},
	)

	AlarmsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "alarms_active",
			Help: "Current number of tracked unacknowledged alarms",
		},
	)

	// WebSocket Hub Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of downstream WebSocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of messages sent to downstream clients",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Total number of messages dropped for slow downstream clients",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of downstream WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)
)

// knownFrameTypes bounds the label set of per-type frame metrics.
var knownFrameTypes = map[string]struct{}{
	"welcome":            {},
	"production_data":    {},
	"alarm":              {},
	"system_status":      {},
	"heartbeat":          {},
	"heartbeat_ack":      {},
	"request_data":       {},
	"acknowledge_alarm":  {},
	"alarm_acknowledged": {},
	"server_shutdown":    {},
}

// FrameTypeLabel maps a feed message type to a bounded label value.
func FrameTypeLabel(msgType string) string {
	if _, ok := knownFrameTypes[msgType]; ok {
		return msgType
	}
	return "other"
}

// RecordTransition records a connection status change.
func RecordTransition(from, to string) {
	FeedTransitions.WithLabelValues(from, to).Inc()
	SetConnectionState(to)
}

// connectionStatuses lists every status label so that SetConnectionState
// can zero the others.
var connectionStatuses = []string{"disconnected", "connecting", "connected", "reconnecting", "error"}

// SetConnectionState marks status as current.
func SetConnectionState(status string) {
	for _, s := range connectionStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		FeedConnectionState.WithLabelValues(s).Set(v)
	}
}

// RecordReconnectScheduled records a backoff delay before a reconnect.
func RecordReconnectScheduled(delay time.Duration) {
	FeedReconnectAttempts.Inc()
	FeedBackoffSeconds.Observe(delay.Seconds())
}

// RecordFrame records one dispatched frame.
func RecordFrame(msgType string) {
	FramesReceived.WithLabelValues(FrameTypeLabel(msgType)).Inc()
}

// RecordHandlerError records a failed subscriber.
func RecordHandlerError(msgType string) {
	HandlerErrors.WithLabelValues(FrameTypeLabel(msgType)).Inc()
}

// RecordAppend records one buffered sample.
func RecordAppend(overwrote bool) {
	BufferSamplesAppended.Inc()
	if overwrote {
		BufferSamplesOverwritten.Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
