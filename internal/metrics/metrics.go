// Package metrics holds the prometheus collectors of the server. They register with the default
// registry on import and are exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "boxwatch"

var (
	// ReadingsTotal counts telemetry frames by source (ws, rest) and result (ok, invalid, error).
	ReadingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_readings_total",
			Help:      "Sensor readings received, by source and result.",
		},
		[]string{"source", "result"},
	)

	// ReadingLatency observes device to server one-way latency.
	ReadingLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sensor_reading_latency_seconds",
			Help:      "One-way latency between the reading timestamp and ingestion.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	// ReadingPersistDuration observes the database write of one reading.
	ReadingPersistDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sensor_reading_persist_duration_seconds",
			Help:      "Duration of the sensor reading insert.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ActiveConnections is the number of open telemetry websockets.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "telemetry_connections_active",
			Help:      "Open telemetry websocket connections.",
		},
	)

	// EventsTotal counts appended events by type.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_appended_total",
			Help:      "Events appended to the event store, by type.",
		},
		[]string{"type"},
	)

	// FanoutErrorsTotal counts failed publishes by sink.
	FanoutErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_errors_total",
			Help:      "Failed fan-out publishes, by sink.",
		},
		[]string{"sink"},
	)
)

// Reading results.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// Reading sources.
const (
	SourceWebsocket = "ws"
	SourceREST      = "rest"
)
