package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/majority/internal/ports"
)

func newTestMetrics(t *testing.T) (*PrometheusMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusMetrics(reg), reg
}

func TestNewPrometheusMetrics(t *testing.T) {
	pm, _ := newTestMetrics(t)

	assert.NotNil(t, pm.executionLatency)
	assert.NotNil(t, pm.operationCounter)
	assert.NotNil(t, pm.questionsRanked)
	assert.NotNil(t, pm.repairSwaps)
	assert.NotNil(t, pm.distribution)
	assert.NotNil(t, pm.stateGauges)

	var _ ports.MetricsCollector = pm
}

func TestNewPrometheusMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPrometheusMetrics(prometheus.NewRegistry())
		NewPrometheusMetrics(prometheus.NewRegistry())
	}, "independent registries should not collide")
}

func TestPrometheusMetrics_RecordCounter(t *testing.T) {
	tests := []struct {
		name      string
		metric    string
		labels    map[string]string
		collector func(pm *PrometheusMetrics) prometheus.Collector
	}{
		{
			name:   "questions ranked",
			metric: MetricQuestionsRanked,
			labels: map[string]string{"exact": "true"},
			collector: func(pm *PrometheusMetrics) prometheus.Collector {
				return pm.questionsRanked.WithLabelValues("true")
			},
		},
		{
			name:   "questions ranked defaults to inexact",
			metric: MetricQuestionsRanked,
			labels: nil,
			collector: func(pm *PrometheusMetrics) prometheus.Collector {
				return pm.questionsRanked.WithLabelValues("false")
			},
		},
		{
			name:   "repair swaps",
			metric: MetricRepairSwaps,
			labels: map[string]string{"unit": "repair"},
			collector: func(pm *PrometheusMetrics) prometheus.Collector {
				return pm.repairSwaps.WithLabelValues("repair")
			},
		},
		{
			name:   "generic operation with status",
			metric: "unit_execute",
			labels: map[string]string{"unit": "rank", "status": "error"},
			collector: func(pm *PrometheusMetrics) prometheus.Collector {
				return pm.operationCounter.WithLabelValues("unit_execute", "error", "rank")
			},
		},
		{
			name:   "generic operation defaults",
			metric: "unit_execute",
			labels: map[string]string{},
			collector: func(pm *PrometheusMetrics) prometheus.Collector {
				return pm.operationCounter.WithLabelValues("unit_execute", "success", "unknown")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm, _ := newTestMetrics(t)

			pm.RecordCounter(tt.metric, 2, tt.labels)
			pm.RecordCounter(tt.metric, 1, tt.labels)

			assert.Equal(t, 3.0, testutil.ToFloat64(tt.collector(pm)))
		})
	}
}

func TestPrometheusMetrics_RecordGauge(t *testing.T) {
	pm, _ := newTestMetrics(t)

	pm.RecordGauge("workers", 4, map[string]string{"unit": "engine"})
	pm.RecordGauge("workers", 8, map[string]string{"unit": "engine"})

	assert.Equal(t, 8.0, testutil.ToFloat64(pm.stateGauges.WithLabelValues("workers", "engine")))
}

func TestPrometheusMetrics_Histograms(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordLatency("unit_execute", 3*time.Millisecond, map[string]string{"unit": "rank"})
	pm.RecordLatency("unit_execute", time.Millisecond, nil)
	pm.RecordHistogram(MetricOptions, 5, nil)

	count, err := testutil.GatherAndCount(reg, "majority_execution_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per unit label")

	count, err = testutil.GatherAndCount(reg, "majority_question_size")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
