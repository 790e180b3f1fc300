// Package middleware provides cross-cutting concerns for the ranking engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/majority/internal/ports"
)

// Metric names with dedicated collectors. Anything else is routed to the
// generic operation, state, and distribution vectors.
const (
	MetricQuestionsRanked = "questions_ranked"
	MetricRepairSwaps     = "repair_swaps"
	MetricOptions         = "options_per_question"
	MetricRespondents     = "respondents_per_question"
)

// PrometheusMetrics implements ports.MetricsCollector using Prometheus.
// It tracks ranking throughput, repair activity, and step latency.
type PrometheusMetrics struct {
	executionLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	questionsRanked  *prometheus.CounterVec
	repairSwaps      *prometheus.CounterVec
	distribution     *prometheus.HistogramVec
	stateGauges      *prometheus.GaugeVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
// A nil reg registers with the default Prometheus registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		executionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "majority_execution_duration_seconds",
				Help:    "Execution time of ranking operations.",
				Buckets: prometheus.ExponentialBuckets(0.00005, 4, 10),
			},
			[]string{"operation", "unit"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "majority_operations_total",
				Help: "Total number of ranking operations by outcome.",
			},
			[]string{"operation", "status", "unit"},
		),
		questionsRanked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "majority_questions_ranked_total",
				Help: "Total number of questions ranked.",
			},
			[]string{"exact"},
		),
		repairSwaps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "majority_repair_swaps_total",
				Help: "Adjacent inversions corrected by the consistency repair.",
			},
			[]string{"unit"},
		),
		distribution: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "majority_question_size",
				Help:    "Distribution of per-question sizes.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"metric"},
		),
		stateGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "majority_engine_state",
				Help: "Current engine state values.",
			},
			[]string{"metric", "unit"},
		),
	}
}

// RecordLatency records execution latency in seconds.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.executionLatency.WithLabelValues(operation, unitLabel(labels)).Observe(duration.Seconds())
}

// RecordCounter increments the counter named by metric.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricQuestionsRanked:
		exact := labels["exact"]
		if exact == "" {
			exact = "false"
		}
		pm.questionsRanked.WithLabelValues(exact).Add(value)
	case MetricRepairSwaps:
		pm.repairSwaps.WithLabelValues(unitLabel(labels)).Add(value)
	default:
		status := labels["status"]
		if status == "" {
			status = "success"
		}
		pm.operationCounter.WithLabelValues(metric, status, unitLabel(labels)).Add(value)
	}
}

// RecordGauge sets the gauge named by metric.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.stateGauges.WithLabelValues(metric, unitLabel(labels)).Set(value)
}

// RecordHistogram observes value in the size distribution for metric.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	pm.distribution.WithLabelValues(metric).Observe(value)
}

func unitLabel(labels map[string]string) string {
	if unit := labels["unit"]; unit != "" {
		return unit
	}
	return "unknown"
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
