package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/majority/internal/domain"
	"github.com/ahrav/majority/internal/ports"
)

// TracerName is the instrumentation scope of unit spans.
const TracerName = "github.com/ahrav/majority/units"

var _ ports.Unit = (*InstrumentedUnit)(nil)

// InstrumentedUnit decorates a ranking unit with an OpenTelemetry span and
// latency, outcome, and repair metrics. It never changes the wrapped
// unit's result.
type InstrumentedUnit struct {
	next    ports.Unit
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// InstrumentOption customizes an InstrumentedUnit.
type InstrumentOption func(*InstrumentedUnit)

// WithTracerProvider sets the provider spans are created from. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) InstrumentOption {
	return func(iu *InstrumentedUnit) {
		if tp != nil {
			iu.tracer = tp.Tracer(TracerName)
		}
	}
}

// Instrument wraps next. A nil metrics collector disables metrics.
func Instrument(next ports.Unit, metrics ports.MetricsCollector, opts ...InstrumentOption) *InstrumentedUnit {
	if next == nil {
		panic("instrumented unit: next unit is required")
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	iu := &InstrumentedUnit{
		next:    next,
		metrics: metrics,
		tracer:  otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(iu)
	}
	return iu
}

// Name returns the wrapped unit's name.
func (iu *InstrumentedUnit) Name() string { return iu.next.Name() }

// Validate delegates to the wrapped unit.
func (iu *InstrumentedUnit) Validate() error { return iu.next.Validate() }

// Unwrap returns the wrapped unit.
func (iu *InstrumentedUnit) Unwrap() ports.Unit { return iu.next }

// Execute runs the wrapped unit inside a span named after it.
func (iu *InstrumentedUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	ctx, span := iu.tracer.Start(ctx, "Unit.Execute",
		trace.WithAttributes(attribute.String("unit.name", iu.next.Name())))
	defer span.End()

	if question, ok := domain.Get(state, domain.KeyQuestion); ok {
		span.SetAttributes(attribute.String("question", question))
	}
	if execID, ok := domain.Get(state, domain.KeyExecutionID); ok {
		span.SetAttributes(attribute.String("execution.id", execID))
	}

	labels := map[string]string{"unit": iu.next.Name()}
	start := time.Now()
	out, err := iu.next.Execute(ctx, state)
	iu.metrics.RecordLatency("unit_execute", time.Since(start), labels)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		iu.metrics.RecordCounter("unit_execute", 1, map[string]string{"unit": iu.next.Name(), "status": "error"})
		return out, err
	}
	iu.metrics.RecordCounter("unit_execute", 1, labels)

	iu.annotate(span, state, out)
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// annotate records what the unit produced as span attributes and events.
// Repair details are only recorded by the unit that added the report.
func (iu *InstrumentedUnit) annotate(span trace.Span, in, out domain.State) {
	if ranking, ok := domain.Get(out, domain.KeyRanking); ok {
		span.SetAttributes(
			attribute.Int("ranking.options", ranking.Len()),
			attribute.Float64("ranking.threshold", ranking.Threshold),
			attribute.Bool("ranking.exact", ranking.Exact),
		)
	}

	if _, had := domain.Get(in, domain.KeyRepair); had {
		return
	}
	report, ok := domain.Get(out, domain.KeyRepair)
	if !ok || report == nil {
		return
	}
	span.SetAttributes(
		attribute.Bool("repair.supported", report.Supported),
		attribute.Int("repair.swaps", report.Swaps),
	)
	for _, inv := range report.Inversions {
		span.AddEvent("repair.inversion", trace.WithAttributes(
			attribute.String("upper", inv.Upper),
			attribute.String("lower", inv.Lower),
		))
	}
	if report.Swaps > 0 {
		iu.metrics.RecordCounter(MetricRepairSwaps, float64(report.Swaps), map[string]string{"unit": iu.next.Name()})
	}
}
