// Package middleware provides cross-cutting concerns for the question
// pipeline.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/prefpoll/prefpoll/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It tracks submission volume, ingestion outcomes, and
// operation latency for the pipeline.
type PrometheusMetrics struct {
	submittedLines   prometheus.Counter
	submittedBatches prometheus.Counter
	ingestedAnswers  prometheus.Counter
	skippedLines     prometheus.Counter
	operationCounter *prometheus.CounterVec
	executionLatency *prometheus.HistogramVec
}

// NewPrometheusMetrics registers the pipeline metrics in the global
// Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWith(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsWith registers the pipeline metrics against the
// given registerer. Tests pass a fresh registry to avoid duplicate
// registration panics.
func NewPrometheusMetricsWith(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		submittedLines: factory.NewCounter(prometheus.CounterOpts{
			Name: "prefpoll_submitted_lines_total",
			Help: "Total request lines uploaded to the batch service.",
		}),
		submittedBatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "prefpoll_submitted_batches_total",
			Help: "Total batches created at the batch service.",
		}),
		ingestedAnswers: factory.NewCounter(prometheus.CounterOpts{
			Name: "prefpoll_ingested_answers_total",
			Help: "Total answers created from batch output lines.",
		}),
		skippedLines: factory.NewCounter(prometheus.CounterOpts{
			Name: "prefpoll_skipped_lines_total",
			Help: "Total malformed or unresolvable output lines skipped.",
		}),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prefpoll_operations_total",
				Help: "Counts of pipeline operations not covered by a dedicated metric.",
			},
			[]string{"operation"},
		),
		executionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prefpoll_operation_duration_seconds",
				Help:    "Execution time of pipeline operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// operation latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string, duration time.Duration, _ map[string]string,
) {
	pm.executionLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters. Metrics without a dedicated counter fall through to
// the generic operation counter.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, _ map[string]string,
) {
	switch metric {
	case "submitted_lines_total":
		pm.submittedLines.Add(value)
	case "submitted_batches_total":
		pm.submittedBatches.Add(value)
	case "ingested_answers_total":
		pm.ingestedAnswers.Add(value)
	case "skipped_lines_total":
		pm.skippedLines.Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric).Add(value)
	}
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
