// Package middleware provides cross-cutting concerns for the multiverse
// engine, currently Prometheus-backed batch metrics.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-multiverse/internal/ports"
)

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It exposes batch execution volume, failure counts, choice
// space sizes, and batch latency for the exhauster and power simulator.
type PrometheusMetrics struct {
	protocolsExecuted *prometheus.CounterVec
	protocolFailures  *prometheus.CounterVec
	operationCounter  *prometheus.CounterVec
	choiceSpaceSize   *prometheus.GaugeVec
	systemGauges      *prometheus.GaugeVec
	batchLatency      *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and
// registers all required metrics with the given registerer. Pass
// prometheus.DefaultRegisterer for the global registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		protocolsExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multiverse_protocols_executed_total",
				Help: "Total number of protocols dispatched across all batch runs.",
			},
			[]string{"design", "operation"},
		),
		protocolFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multiverse_protocol_failures_total",
				Help: "Total number of protocols whose execution faulted inside a batch.",
			},
			[]string{"design", "operation"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multiverse_operations_total",
				Help: "Total number of engine operations by name.",
			},
			[]string{"metric", "design", "operation"},
		),
		choiceSpaceSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "multiverse_choice_space_size",
				Help: "Number of protocols in the most recently enumerated choice space.",
			},
			[]string{"design", "operation"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "multiverse_system_state",
				Help: "Current engine state values by metric name.",
			},
			[]string{"metric", "design", "operation"},
		),
		batchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "multiverse_batch_duration_seconds",
				Help:    "Wall-clock duration of batch operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "design"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// batch duration in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.batchLatency.WithLabelValues(operation, labels["design"]).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	design := labels["design"]
	operation := labels["operation"]

	switch metric {
	case "protocols_executed_total":
		pm.protocolsExecuted.WithLabelValues(design, operation).Add(value)
	case "protocol_failures_total":
		pm.protocolFailures.WithLabelValues(design, operation).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, design, operation).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	design := labels["design"]
	operation := labels["operation"]

	switch metric {
	case "choice_space_size":
		pm.choiceSpaceSize.WithLabelValues(design, operation).Set(value)
	default:
		pm.systemGauges.WithLabelValues(metric, design, operation).Set(value)
	}
}
