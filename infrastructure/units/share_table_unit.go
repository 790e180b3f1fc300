package units

import (
	"context"
	"fmt"

	"github.com/ahrav/majority/internal/domain"
	"github.com/ahrav/majority/internal/ports"
)

var _ ports.Unit = (*ShareTableUnit)(nil)

// ShareTableUnit computes, for every option and grade g, the fraction of
// respondents whose rank is at least g. Rows follow the ranking order when
// a ranking is present in state, and input order otherwise.
type ShareTableUnit struct {
	name string
}

// NewShareTableUnit creates a ShareTableUnit.
func NewShareTableUnit(name string) (*ShareTableUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	return &ShareTableUnit{name: name}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *ShareTableUnit) Name() string { return u.name }

// Execute builds the share table.
//
// State Requirements:
//   - domain.KeyQuestion, domain.KeyScale, domain.KeyOptions
//   - domain.KeyRanking (optional)
//
// State Updates:
//   - domain.KeyShares: domain.ShareTable
func (u *ShareTableUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
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

	order := make([]string, len(options))
	for i, o := range options {
		order[i] = o.Name
	}
	if ranking, ok := domain.Get(state, domain.KeyRanking); ok {
		order = ranking.Names()
	}

	table, err := BuildShareTable(question, scale, options, order)
	if err != nil {
		return state, fmt.Errorf("share table failed: %w", err)
	}
	return domain.With(state, domain.KeyShares, table), nil
}

// BuildShareTable computes the cumulative share table with rows in the
// given order.
func BuildShareTable(
	question string,
	scale domain.GradeScale,
	options []domain.Option,
	order []string,
) (domain.ShareTable, error) {
	ranks := ranksByName(options)
	table := domain.ShareTable{
		Question: question,
		Labels:   scale.Labels(),
		Rows:     make([]domain.ShareRow, 0, len(order)),
	}

	for _, name := range order {
		r, ok := ranks[name]
		if !ok {
			return domain.ShareTable{}, fmt.Errorf("%w: %q", ErrUnknownOption, name)
		}
		table.Rows = append(table.Rows, domain.ShareRow{Name: name, Shares: CumulativeShares(r, scale.Len())})
	}
	return table, nil
}

// CumulativeShares returns, for g in [0, grades), the fraction of ranks
// greater than or equal to g. The result is non-increasing and starts at 1
// for non-empty input.
func CumulativeShares(ranks []int, grades int) []float64 {
	shares := make([]float64, grades)
	if len(ranks) == 0 {
		return shares
	}

	counts := make([]int, grades)
	for _, r := range ranks {
		if r >= 0 && r < grades {
			counts[r]++
		}
	}

	atLeast := 0
	for g := grades - 1; g >= 0; g-- {
		atLeast += counts[g]
		shares[g] = float64(atLeast) / float64(len(ranks))
	}
	return shares
}

// Validate checks if the unit is properly configured and ready for execution.
func (u *ShareTableUnit) Validate() error { return nil }

// NewShareTableFromConfig creates a ShareTableUnit from a configuration map.
// The share table has no parameters.
func NewShareTableFromConfig(id string, config map[string]any) (ports.Unit, error) {
	return NewShareTableUnit(id)
}
