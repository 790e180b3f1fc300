package units

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ahrav/majority/internal/domain"
	"github.com/ahrav/majority/internal/ports"
)

var _ ports.Unit = (*ConsistencyRepairUnit)(nil)

// ConsistencyRepairUnit reconciles an approximate ranking with the exact
// comparator. Whenever an adjacent pair is ranked the wrong way round it
// swaps the pair and rescans from the top, until a full scan is clean.
//
// Repair is only defined at the median threshold. Rankings computed at any
// other threshold are returned unchanged with a warning and a report whose
// Supported field is false; the order may then contain unresolved ties.
//
// Concurrency: The unit is stateless and thread-safe for concurrent execution.
type ConsistencyRepairUnit struct {
	name       string
	config     ConsistencyRepairConfig
	comparator domain.Comparator
	logger     *slog.Logger
}

// ConsistencyRepairConfig defines the configuration of the ConsistencyRepairUnit.
type ConsistencyRepairConfig struct {
	// MaxSwaps caps the number of swaps. Zero uses n*(n-1)/2, the largest
	// number of inversions n options can have.
	MaxSwaps int `yaml:"max_swaps" json:"max_swaps" validate:"min=0"`
}

// RepairOption customizes a ConsistencyRepairUnit.
type RepairOption func(*ConsistencyRepairUnit)

// WithComparator replaces the exact comparator. It is meant for tests and
// for experimenting with alternative tie-break rules.
func WithComparator(c domain.Comparator) RepairOption {
	return func(u *ConsistencyRepairUnit) {
		if c != nil {
			u.comparator = c
		}
	}
}

// NewConsistencyRepairUnit creates a ConsistencyRepairUnit using the
// LexicographicComparator. A nil logger falls back to slog.Default.
func NewConsistencyRepairUnit(
	name string,
	config ConsistencyRepairConfig,
	logger *slog.Logger,
	opts ...RepairOption,
) (*ConsistencyRepairUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	u := &ConsistencyRepairUnit{
		name:       name,
		config:     config,
		comparator: LexicographicComparator{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Name returns the unique identifier for this unit instance.
func (u *ConsistencyRepairUnit) Name() string { return u.name }

// Execute repairs the ranking in state.
//
// State Requirements:
//   - domain.KeyRanking: domain.RankedResult
//   - domain.KeyOptions: []domain.Option
//
// State Updates:
//   - domain.KeyRanking: the repaired (or untouched) ranking
//   - domain.KeyRepair: *domain.RepairReport
func (u *ConsistencyRepairUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	ranking, err := domain.MustGet(state, domain.KeyRanking)
	if err != nil {
		return state, err
	}
	options, err := domain.MustGet(state, domain.KeyOptions)
	if err != nil {
		return state, err
	}

	repaired, report, err := u.Repair(ranking, options)
	if err != nil {
		return state, fmt.Errorf("consistency repair failed: %w", err)
	}

	return state.WithMultiple(map[string]any{
		domain.KeyRanking.Name(): repaired,
		domain.KeyRepair.Name():  report,
	}), nil
}

// Repair returns ranking with every adjacent inversion against the exact
// comparator removed. The input ranking is not modified.
//
// Error Conditions:
//   - ErrUnknownOption when the ranking names an option missing from options
//   - domain.ErrMismatchedSequenceLength from the comparator
//   - ErrRepairDidNotConverge when the swap bound is exceeded
func (u *ConsistencyRepairUnit) Repair(
	ranking domain.RankedResult,
	options []domain.Option,
) (domain.RankedResult, *domain.RepairReport, error) {
	out := ranking
	out.Scores = append([]domain.OptionScore(nil), ranking.Scores...)

	if ranking.Threshold != MedianThreshold {
		u.logger.Warn(domain.ErrUnsupportedThresholdRepair.Error(),
			slog.String("question", ranking.Question),
			slog.Float64("threshold", ranking.Threshold),
		)
		return out, &domain.RepairReport{Supported: false}, nil
	}

	ranks := ranksByName(options)
	for _, s := range out.Scores {
		if _, ok := ranks[s.Name]; !ok {
			return ranking, nil, fmt.Errorf("%w: %q", ErrUnknownOption, s.Name)
		}
	}

	n := len(out.Scores)
	limit := u.config.MaxSwaps
	if limit == 0 {
		limit = n * (n - 1) / 2
	}

	report := &domain.RepairReport{Supported: true}
	i := 0
	for i < n-1 {
		upper, lower := out.Scores[i], out.Scores[i+1]
		c, err := u.comparator.Compare(ranks[upper.Name], ranks[lower.Name])
		if err != nil {
			return ranking, nil, fmt.Errorf("compare %q with %q: %w", upper.Name, lower.Name, err)
		}
		if c >= 0 {
			i++
			continue
		}

		if report.Swaps == limit {
			return ranking, nil, fmt.Errorf("%w: question %q after %d swaps",
				ErrRepairDidNotConverge, ranking.Question, report.Swaps)
		}

		u.logger.Info("adjacent inversion repaired",
			slog.String("question", ranking.Question),
			slog.String("upper", lower.Name),
			slog.String("lower", upper.Name),
		)
		out.Scores[i], out.Scores[i+1] = lower, upper
		report.Swaps++
		report.Inversions = append(report.Inversions, domain.Inversion{Upper: lower.Name, Lower: upper.Name})
		i = 0
	}

	out.Exact = true
	return out, report, nil
}

// Validate checks if the unit is properly configured and ready for execution.
func (u *ConsistencyRepairUnit) Validate() error {
	if u.comparator == nil {
		return fmt.Errorf("comparator is required")
	}
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// NewConsistencyRepairFromConfig creates a ConsistencyRepairUnit from a
// configuration map.
func NewConsistencyRepairFromConfig(id string, config map[string]any) (ports.Unit, error) {
	logger := takeLogger(config)

	var cfg ConsistencyRepairConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return NewConsistencyRepairUnit(id, cfg, logger)
}
