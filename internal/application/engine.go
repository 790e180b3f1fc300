package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/majority/infrastructure/middleware"
	"github.com/ahrav/majority/infrastructure/units"
	"github.com/ahrav/majority/internal/domain"
	"github.com/ahrav/majority/internal/ports"
)

// Engine ranks the options of every question in an evaluation store.
// It is immutable after construction and safe for concurrent use.
type Engine struct {
	config   EngineConfig
	scale    domain.GradeScale
	pipeline *Pipeline
	logger   *slog.Logger
	metrics  ports.MetricsCollector
	registry ports.UnitRegistry
	tracerTP trace.TracerProvider
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine and unit logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics ports.MetricsCollector) EngineOption {
	return func(e *Engine) {
		if metrics != nil {
			e.metrics = metrics
		}
	}
}

// WithTracerProvider sets the provider unit spans are created from.
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(e *Engine) { e.tracerTP = tp }
}

// WithRegistry replaces the unit registry used to build the chain.
func WithRegistry(registry ports.UnitRegistry) EngineOption {
	return func(e *Engine) {
		if registry != nil {
			e.registry = registry
		}
	}
}

// NewEngine validates cfg and assembles the unit chain.
//
// Error Conditions:
//   - domain.ErrInvalidConfiguration for any configuration problem
//   - unit creation errors from the registry
func NewEngine(cfg EngineConfig, opts ...EngineOption) (*Engine, error) {
	loader, err := NewConfigLoader()
	if err != nil {
		return nil, err
	}
	if err := loader.Validate(cfg); err != nil {
		return nil, err
	}
	scale, err := cfg.GradeScale()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}

	e := &Engine{
		config:  cloneConfig(cfg),
		scale:   scale,
		logger:  slog.Default(),
		metrics: ports.NopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewDefaultUnitRegistry(e.logger)
	}

	pipeline, err := e.buildPipeline()
	if err != nil {
		return nil, err
	}
	e.pipeline = pipeline
	return e, nil
}

// buildPipeline creates the configured units and chains them.
func (e *Engine) buildPipeline() (*Pipeline, error) {
	specs, err := e.unitSpecs()
	if err != nil {
		return nil, err
	}

	var instrumentOpts []middleware.InstrumentOption
	if e.tracerTP != nil {
		instrumentOpts = append(instrumentOpts, middleware.WithTracerProvider(e.tracerTP))
	}

	pipeline := NewPipeline("ranking")
	for _, spec := range specs {
		unit, err := e.registry.CreateUnit(spec.unitType, spec.id, spec.params)
		if err != nil {
			return nil, err
		}
		if err := unit.Validate(); err != nil {
			return nil, fmt.Errorf("unit %s: %w", spec.id, err)
		}
		step := NewUnitAdapter(middleware.Instrument(unit, e.metrics, instrumentOpts...), spec.id)
		if err := pipeline.Add(step); err != nil {
			return nil, err
		}
	}
	return pipeline, nil
}

type unitSpec struct {
	id       string
	unitType string
	params   map[string]any
}

// unitSpecs resolves the unit chain: the configured units, or the default
// rank, repair, shares chain. Percentile units inherit the engine threshold
// unless their parameters set one.
func (e *Engine) unitSpecs() ([]unitSpec, error) {
	threshold := e.config.Threshold

	if len(e.config.Units) == 0 {
		specs := []unitSpec{{
			id:       units.TypePercentileRank,
			unitType: units.TypePercentileRank,
			params:   map[string]any{"threshold": threshold},
		}}
		if e.config.Repair {
			specs = append(specs, unitSpec{
				id:       units.TypeConsistencyRepair,
				unitType: units.TypeConsistencyRepair,
				params:   map[string]any{},
			})
		}
		return append(specs, unitSpec{
			id:       units.TypeShareTable,
			unitType: units.TypeShareTable,
			params:   map[string]any{},
		}), nil
	}

	specs := make([]unitSpec, 0, len(e.config.Units))
	for _, u := range e.config.Units {
		params := map[string]any{}
		if u.Parameters.Kind != 0 {
			if err := u.Parameters.Decode(&params); err != nil {
				return nil, fmt.Errorf("unit %s: failed to decode parameters: %w", u.ID, err)
			}
		}
		if _, ok := params["threshold"]; !ok && u.Type == units.TypePercentileRank {
			params["threshold"] = threshold
		}
		specs = append(specs, unitSpec{id: u.ID, unitType: u.Type, params: params})
	}
	return specs, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() EngineConfig { return cloneConfig(e.config) }

// Scale returns the engine's grade scale.
func (e *Engine) Scale() domain.GradeScale { return e.scale }

// Steps returns the IDs of the unit chain in execution order.
func (e *Engine) Steps() []string {
	steps := e.pipeline.Executables()
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID()
	}
	return ids
}

// RankQuestion validates q against the engine's scale and ranks it under a
// fresh execution ID.
func (e *Engine) RankQuestion(ctx context.Context, q domain.Question) (domain.QuestionReport, error) {
	store := domain.NewEvaluationStore(e.scale)
	if err := store.Add(q); err != nil {
		return domain.QuestionReport{}, err
	}
	validated, err := store.Question(q.ID)
	if err != nil {
		return domain.QuestionReport{}, err
	}
	return e.rankQuestion(ctx, uuid.NewString(), validated)
}

// RankAll ranks every question in store. Questions run concurrently, at
// most WorkerCount at a time, and share one execution ID. Reports are
// ordered by question ID. The first failure cancels the remaining work.
func (e *Engine) RankAll(ctx context.Context, store *domain.EvaluationStore) ([]domain.QuestionReport, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil evaluation store", domain.ErrInvalidConfiguration)
	}
	if store.Scale().String() != e.scale.String() {
		return nil, fmt.Errorf("%w: store scale %q does not match engine scale %q",
			domain.ErrInvalidGradeScale, store.Scale(), e.scale)
	}

	executionID := uuid.NewString()
	ids := store.Questions()
	workers := e.config.WorkerCount()

	logger := e.logger.With(slog.String("execution_id", executionID))
	logger.Info("ranking started",
		slog.Int("questions", len(ids)),
		slog.Int("workers", workers),
		slog.Float64("threshold", e.config.Threshold),
	)
	e.metrics.RecordGauge("workers", float64(workers), map[string]string{"unit": "engine"})

	start := time.Now()
	reports := make([]domain.QuestionReport, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range ids {
		g.Go(func() error {
			q, err := store.Question(id)
			if err != nil {
				return err
			}
			report, err := e.rankQuestion(gctx, executionID, q)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("ranking failed", slog.Any("error", err))
		return nil, err
	}

	logger.Info("ranking finished",
		slog.Int("questions", len(ids)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return reports, nil
}

// rankQuestion runs the unit chain for one validated question.
func (e *Engine) rankQuestion(ctx context.Context, executionID string, q domain.Question) (domain.QuestionReport, error) {
	start := time.Now()
	state := domain.NewQuestionState(executionID, e.scale, q)

	out, err := e.pipeline.Execute(ctx, state)
	if err != nil {
		e.metrics.RecordCounter("rank_question", 1, map[string]string{"unit": "engine", "status": "error"})
		return domain.QuestionReport{}, fmt.Errorf("question %q: %w", q.ID, err)
	}

	ranking, err := domain.MustGet(out, domain.KeyRanking)
	if err != nil {
		return domain.QuestionReport{}, fmt.Errorf("question %q: %w", q.ID, err)
	}
	shares, _ := domain.Get(out, domain.KeyShares)
	repair, _ := domain.Get(out, domain.KeyRepair)

	e.metrics.RecordLatency("rank_question", time.Since(start), map[string]string{"unit": "engine"})
	e.metrics.RecordCounter(middleware.MetricQuestionsRanked, 1, map[string]string{"exact": strconv.FormatBool(ranking.Exact)})
	e.metrics.RecordHistogram(middleware.MetricOptions, float64(len(q.Options)), nil)
	e.metrics.RecordHistogram(middleware.MetricRespondents, float64(q.Respondents()), nil)

	e.logRanking(executionID, ranking)

	return domain.QuestionReport{
		ExecutionID: executionID,
		Question:    q.ID,
		Ranking:     ranking,
		Shares:      shares,
		Repair:      repair,
	}, nil
}

// logRanking writes the final order. In verbose mode every option's grade
// is logged at info level; otherwise a debug summary is written.
func (e *Engine) logRanking(executionID string, ranking domain.RankedResult) {
	if !e.config.Verbose {
		e.logger.Debug("question ranked",
			slog.String("execution_id", executionID),
			slog.String("question", ranking.Question),
			slog.Any("order", ranking.Names()),
			slog.Bool("exact", ranking.Exact),
		)
		return
	}
	for pos, s := range ranking.Scores {
		e.logger.Info("ranked option",
			slog.String("execution_id", executionID),
			slog.String("question", ranking.Question),
			slog.Int("position", pos+1),
			slog.String("option", s.Name),
			slog.String("grade", s.Grade()),
			slog.Float64("p", s.P),
			slog.Float64("q", s.Q),
		)
	}
}
