package units

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/majority/internal/domain"
	"github.com/ahrav/majority/internal/ports"
)

var _ ports.Unit = (*PercentileRankUnit)(nil)

// PercentileRankUnit computes each option's majority grade at the
// configured threshold and sorts the options by the fast approximate key
// (percVal desc, suffix desc, comp asc).
//
// The resulting order is exact only when no two options tie on
// (percVal, suffix, comp). ConsistencyRepairUnit reconciles the remaining
// cases at the median threshold.
//
// Concurrency: The unit is stateless and thread-safe for concurrent execution.
//
// Example:
//
//	unit, err := NewPercentileRankUnit("rank", PercentileRankConfig{Threshold: 50}, slog.Default())
//	ranking, err := unit.Rank("Food", scale, options)
type PercentileRankUnit struct {
	name   string
	config PercentileRankConfig
	logger *slog.Logger
}

// PercentileRankConfig defines the configuration of the PercentileRankUnit.
type PercentileRankConfig struct {
	// Threshold is the percentage of respondents that must agree on at
	// least the majority grade. 50 is the classic median.
	//
	// Range: (0, 100]
	// Default: 50
	Threshold float64 `yaml:"threshold" json:"threshold" validate:"gt=0,lte=100"`
}

// DefaultPercentileRankConfig returns the median configuration.
func DefaultPercentileRankConfig() PercentileRankConfig {
	return PercentileRankConfig{Threshold: MedianThreshold}
}

// NewPercentileRankUnit creates a PercentileRankUnit. A nil logger falls
// back to slog.Default.
func NewPercentileRankUnit(name string, config PercentileRankConfig, logger *slog.Logger) (*PercentileRankUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PercentileRankUnit{name: name, config: config, logger: logger}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *PercentileRankUnit) Name() string { return u.name }

// Threshold returns the configured threshold.
func (u *PercentileRankUnit) Threshold() float64 { return u.config.Threshold }

// Execute ranks the options in state.
//
// State Requirements:
//   - domain.KeyQuestion: string
//   - domain.KeyScale: domain.GradeScale
//   - domain.KeyOptions: []domain.Option
//
// State Updates:
//   - domain.KeyRanking: domain.RankedResult (approximate order)
func (u *PercentileRankUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	question, err := domain.MustGet(state, domain.KeyQuestion)
	if err != nil {
		return state, err
	}
	scale, err := domain.MustGet(state, domain.KeyScale)
	if err != nil {
		return state, err
	}
	options, err := domain.MustGet(state, domain.KeyOptions)
	if err != nil {
		return state, err
	}

	ranking, err := u.Rank(question, scale, options)
	if err != nil {
		return state, fmt.Errorf("percentile ranking failed: %w", err)
	}
	return domain.With(state, domain.KeyRanking, ranking), nil
}

// Rank scores every option and returns them in approximate ranking order.
// Options with identical sort keys keep their input order.
func (u *PercentileRankUnit) Rank(
	question string,
	scale domain.GradeScale,
	options []domain.Option,
) (domain.RankedResult, error) {
	if len(options) == 0 {
		return domain.RankedResult{}, fmt.Errorf("%w: question %q", ErrNoOptions, question)
	}

	scores := make([]domain.OptionScore, 0, len(options))
	for _, o := range options {
		s, err := ScoreOption(o, scale, u.config.Threshold)
		if err != nil {
			return domain.RankedResult{}, fmt.Errorf("question %q: %w", question, err)
		}
		u.logger.Debug("option score",
			slog.String("question", question),
			slog.String("option", s.Name),
			slog.String("score", s.String()),
			slog.Float64("perc_val", s.PercVal),
		)
		scores = append(scores, s)
	}

	SortApproximate(scores)

	return domain.RankedResult{
		Question:  question,
		Threshold: u.config.Threshold,
		Scores:    scores,
	}, nil
}

// ScoreOption computes the majority grade and the approximate sort key of
// one option at threshold t (percent):
//
//  1. percVal is the (100-t)-th percentile of the ranks
//  2. p and q are the shares strictly above and below percVal
//  3. suffix is plus iff p/z > q/(1-z), with z = t/100
//  4. comp is q for a minus suffix, -p otherwise
func ScoreOption(o domain.Option, scale domain.GradeScale, t float64) (domain.OptionScore, error) {
	n := len(o.Ranks)
	if n == 0 {
		return domain.OptionScore{}, fmt.Errorf("%w: option %q", domain.ErrNoRespondents, o.Name)
	}

	percVal := Percentile(o.Ranks, 100-t)

	var above, below int
	for _, r := range o.Ranks {
		switch {
		case float64(r) > percVal:
			above++
		case float64(r) < percVal:
			below++
		}
	}
	p := float64(above) / float64(n)
	q := float64(below) / float64(n)

	z := t / 100
	suffix := domain.SuffixMinus
	if p/z > belowWeight(q, z) {
		suffix = domain.SuffixPlus
	}

	comp := q
	if suffix == domain.SuffixPlus {
		comp = -p
	}

	label, err := scale.Label(int(math.Floor(percVal)))
	if err != nil {
		return domain.OptionScore{}, fmt.Errorf("option %q: %w", o.Name, err)
	}

	return domain.OptionScore{
		Name:      o.Name,
		PercVal:   percVal,
		PercLabel: label,
		P:         p,
		Q:         q,
		Suffix:    suffix,
		Comp:      comp,
	}, nil
}

// belowWeight returns q/(1-z). At z = 1 it is +Inf when q > 0 and 0 when
// q = 0, so an option with ratings above its grade still takes the plus
// suffix under unanimity.
func belowWeight(q, z float64) float64 {
	if z >= 1 {
		if q > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return q / (1 - z)
}

// SortApproximate stably orders scores by percVal descending, suffix
// descending, then comp ascending.
func SortApproximate(scores []domain.OptionScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.PercVal != b.PercVal {
			return a.PercVal > b.PercVal
		}
		if a.Suffix != b.Suffix {
			return a.Suffix > b.Suffix
		}
		return a.Comp < b.Comp
	})
}

// Percentile returns the pct-th percentile (0-100) of ranks using linear
// interpolation between the closest ranks: the value at fractional
// position (n-1)*pct/100 of the sorted sequence. The input is not modified.
//
// Edge Cases:
//   - Empty input returns 0 (callers validate before calling)
//   - pct is clamped to [0, 100]
func Percentile(ranks []int, pct float64) float64 {
	n := len(ranks)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(ranks)
	slices.Sort(sorted)

	pct = math.Max(0, math.Min(100, pct))
	pos := float64(n-1) * pct / 100
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return float64(sorted[lo])
	}
	frac := pos - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[hi])-float64(sorted[lo]))*frac
}

// Validate checks if the unit is properly configured and ready for execution.
func (u *PercentileRankUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration parameters and
// replaces the unit's configuration.
//
// Example YAML:
//
//	threshold: 50
//
// Thread Safety: This method modifies unit state and is NOT thread-safe.
func (u *PercentileRankUnit) UnmarshalParameters(params yaml.Node) error {
	var config PercentileRankConfig
	if err := params.Decode(&config); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	u.config = config
	return nil
}

// NewPercentileRankFromConfig creates a PercentileRankUnit from a
// configuration map. This is the boundary adapter for YAML/JSON configuration.
func NewPercentileRankFromConfig(id string, config map[string]any) (ports.Unit, error) {
	logger := takeLogger(config)

	cfg := DefaultPercentileRankConfig()
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return NewPercentileRankUnit(id, cfg, logger)
}
