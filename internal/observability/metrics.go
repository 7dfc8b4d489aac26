// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the application.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weave_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "weave_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// EventPublishFailures counts connection events that could not be
	// delivered to the pub/sub backend, by event type.
	EventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weave_event_publish_failures_total",
		Help: "Total number of connection events that failed to publish",
	}, []string{"event_type"})

	// ConnectionEventsTotal counts emitted connection events by type.
	ConnectionEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weave_connection_events_total",
		Help: "Total number of connection events emitted by type",
	}, []string{"event_type"})

	// SuggestionLatency records end-to-end suggestion computation latency.
	SuggestionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "weave_suggestion_latency_seconds",
		Help:    "Suggestion computation latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// SuggestionFallbacks counts suggestion requests served by the
	// whole-graph fallback instead of the second-degree walk.
	SuggestionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weave_suggestion_fallbacks_total",
		Help: "Total number of suggestion requests served by the fallback scan",
	})

	// WebSocketConnectionsTotal is the gauge of active WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weave_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to slow clients.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weave_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}

// ObserveSuggestion records the latency of one suggestion computation.
func ObserveSuggestion(start time.Time) {
	SuggestionLatency.Observe(time.Since(start).Seconds())
}
