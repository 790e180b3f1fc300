package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ahrav/majority/internal/domain"
)

// stubUnit writes fixed values into state or fails.
type stubUnit struct {
	name    string
	ranking *domain.RankedResult
	report  *domain.RepairReport
	err     error
}

func (s *stubUnit) Name() string    { return s.name }
func (s *stubUnit) Validate() error { return nil }

func (s *stubUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	if s.err != nil {
		return state, s.err
	}
	if s.ranking != nil {
		state = domain.With(state, domain.KeyRanking, *s.ranking)
	}
	if s.report != nil {
		state = domain.With(state, domain.KeyRepair, s.report)
	}
	return state, nil
}

// recordingMetrics captures calls for assertions.
type recordingMetrics struct {
	mu        sync.Mutex
	latencies []string
	counters  map[string]float64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counters: make(map[string]float64)}
}

func (m *recordingMetrics) RecordLatency(op string, _ time.Duration, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies = append(m.latencies, op)
}

func (m *recordingMetrics) RecordCounter(metric string, v float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[metric+"/"+labels["status"]] += v
}

func (m *recordingMetrics) RecordGauge(string, float64, map[string]string)     {}
func (m *recordingMetrics) RecordHistogram(string, float64, map[string]string) {}

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder, tp
}

func questionState() domain.State {
	return domain.NewQuestionState("exec-1", domain.MustGradeScale("Bad", "Good"), domain.Question{
		ID:      "Food",
		Options: []domain.Option{{Name: "A", Ranks: []int{0, 1}}},
	})
}

func TestInstrumentedUnit_Success(t *testing.T) {
	recorder, tp := newRecorder(t)
	metrics := newRecordingMetrics()
	next := &stubUnit{
		name:    "repair",
		ranking: &domain.RankedResult{Question: "Food", Threshold: 50, Exact: true, Scores: []domain.OptionScore{{Name: "A"}}},
		report: &domain.RepairReport{
			Supported:  true,
			Swaps:      1,
			Inversions: []domain.Inversion{{Upper: "B", Lower: "A"}},
		},
	}
	iu := Instrument(next, metrics, WithTracerProvider(tp))

	assert.Equal(t, "repair", iu.Name())
	assert.NoError(t, iu.Validate())
	assert.Same(t, next, iu.Unwrap())

	out, err := iu.Execute(context.Background(), questionState())
	require.NoError(t, err)

	ranking, ok := domain.Get(out, domain.KeyRanking)
	require.True(t, ok)
	assert.True(t, ranking.Exact)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "Unit.Execute", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)

	attrs := map[string]any{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "repair", attrs["unit.name"])
	assert.Equal(t, "Food", attrs["question"])
	assert.Equal(t, "exec-1", attrs["execution.id"])
	assert.Equal(t, int64(1), attrs["repair.swaps"])
	assert.Equal(t, true, attrs["ranking.exact"])

	require.Len(t, span.Events(), 1)
	assert.Equal(t, "repair.inversion", span.Events()[0].Name)

	assert.Equal(t, []string{"unit_execute"}, metrics.latencies)
	assert.Equal(t, 1.0, metrics.counters["unit_execute/"])
	assert.Equal(t, 1.0, metrics.counters[MetricRepairSwaps+"/"])
}

func TestInstrumentedUnit_RepairCountedOnce(t *testing.T) {
	_, tp := newRecorder(t)
	metrics := newRecordingMetrics()

	state := domain.With(questionState(), domain.KeyRepair, &domain.RepairReport{Supported: true, Swaps: 2})
	iu := Instrument(&stubUnit{name: "shares"}, metrics, WithTracerProvider(tp))

	_, err := iu.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Zero(t, metrics.counters[MetricRepairSwaps+"/"], "a report from an earlier step should not be counted again")
}

func TestInstrumentedUnit_Error(t *testing.T) {
	recorder, tp := newRecorder(t)
	metrics := newRecordingMetrics()
	boom := errors.New("boom")

	iu := Instrument(&stubUnit{name: "rank", err: boom}, metrics, WithTracerProvider(tp))

	_, err := iu.Execute(context.Background(), questionState())
	assert.ErrorIs(t, err, boom)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
	assert.Equal(t, 1.0, metrics.counters["unit_execute/error"])
}

func TestInstrument_Defaults(t *testing.T) {
	iu := Instrument(&stubUnit{name: "rank"}, nil)

	_, err := iu.Execute(context.Background(), questionState())
	assert.NoError(t, err)

	assert.Panics(t, func() { Instrument(nil, nil) })
}
