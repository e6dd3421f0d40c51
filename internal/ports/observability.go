package ports

import (
	"time"
)

// MetricsCollector defines the interface for collecting operational metrics
// from batch operations. Implementations should integrate with observability
// platforms like Prometheus, OpenTelemetry, or custom monitoring solutions.
// The engine core calls collectors synchronously, so implementations must be
// cheap and safe for concurrent use.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking executed protocols, captured failures, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like choice-space size.
	RecordGauge(metric string, value float64, labels map[string]string)
}
