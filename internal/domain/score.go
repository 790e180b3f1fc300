package domain

import "fmt"

// Suffix values of an OptionScore.
const (
	// SuffixPlus reads the majority grade as "at least".
	SuffixPlus = 1
	// SuffixMinus reads the majority grade as "at most".
	SuffixMinus = -1
)

// OptionScore is the approximate sort key computed for one option by the
// percentile ranker.
type OptionScore struct {
	// Name identifies the option within its question.
	Name string `json:"name" yaml:"name"`

	// PercVal is the percentile of the option's ranks at the configured
	// threshold. It may be fractional.
	PercVal float64 `json:"perc_val" yaml:"perc_val"`

	// PercLabel is the grade label at floor(PercVal): the majority grade.
	PercLabel string `json:"perc_label" yaml:"perc_label"`

	// P is the fraction of respondents grading strictly above PercVal.
	P float64 `json:"p" yaml:"p"`

	// Q is the fraction of respondents grading strictly below PercVal.
	Q float64 `json:"q" yaml:"q"`

	// Suffix is SuffixPlus or SuffixMinus.
	Suffix int `json:"suffix" yaml:"suffix"`

	// Comp is a lossy scalar tie-breaker: Q when Suffix is minus, -P
	// otherwise. Equal Comp values do not imply equal options.
	Comp float64 `json:"comp" yaml:"comp"`
}

// Grade renders the majority grade with its suffix, e.g. "Good+".
func (s OptionScore) Grade() string {
	if s.Suffix == SuffixPlus {
		return s.PercLabel + "+"
	}
	return s.PercLabel + "-"
}

// String renders the score in the trace format "p=0.250, Good+, q=0.500".
func (s OptionScore) String() string {
	return fmt.Sprintf("p=%.3f, %s, q=%.3f", s.P, s.Grade(), s.Q)
}

// RankedResult is the ordered ranking of one question, best first.
type RankedResult struct {
	// Question identifies the ranked question.
	Question string `json:"question" yaml:"question"`

	// Threshold is the percentage used to compute the majority grade.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Scores are the option scores in ranking order.
	Scores []OptionScore `json:"scores" yaml:"scores"`

	// Exact is true once the order has been reconciled with the exact
	// comparator. Approximate orders may contain unresolved ties.
	Exact bool `json:"exact" yaml:"exact"`
}

// Len returns the number of ranked options.
func (r RankedResult) Len() int { return len(r.Scores) }

// Names returns the option names in ranking order.
func (r RankedResult) Names() []string {
	names := make([]string, len(r.Scores))
	for i, s := range r.Scores {
		names[i] = s.Name
	}
	return names
}

// ShareRow holds, for one option, the fraction of respondents with a rank
// greater than or equal to each grade.
type ShareRow struct {
	// Name identifies the option.
	Name string `json:"name" yaml:"name"`

	// Shares is indexed by grade rank; Shares[0] is always 1.
	Shares []float64 `json:"shares" yaml:"shares"`
}

// ShareTable is the cumulative share table handed to renderers.
type ShareTable struct {
	// Question identifies the question.
	Question string `json:"question" yaml:"question"`

	// Labels are the grade labels, worst first.
	Labels []string `json:"labels" yaml:"labels"`

	// Rows follow the ranking order of the question.
	Rows []ShareRow `json:"rows" yaml:"rows"`
}

// Share returns the share of option at grade rank g.
func (t ShareTable) Share(option string, g int) (float64, error) {
	for _, row := range t.Rows {
		if row.Name != option {
			continue
		}
		if g < 0 || g >= len(row.Shares) {
			return 0, fmt.Errorf("%w: grade %d", ErrRankOutOfRange, g)
		}
		return row.Shares[g], nil
	}
	return 0, fmt.Errorf("%w: %q", ErrOptionNotFound, option)
}

// Percent returns a copy of the table with shares scaled to 0-100.
func (t ShareTable) Percent() ShareTable {
	out := ShareTable{
		Question: t.Question,
		Labels:   append([]string(nil), t.Labels...),
		Rows:     make([]ShareRow, len(t.Rows)),
	}
	for i, row := range t.Rows {
		shares := make([]float64, len(row.Shares))
		for g, v := range row.Shares {
			shares[g] = v * 100
		}
		out.Rows[i] = ShareRow{Name: row.Name, Shares: shares}
	}
	return out
}

// Inversion records one adjacent pair the repair pass swapped: Lower had
// been placed directly above Upper although the exact comparator ranks
// Upper higher.
type Inversion struct {
	Upper string `json:"upper" yaml:"upper"`
	Lower string `json:"lower" yaml:"lower"`
}

// RepairReport describes what the consistency repair pass did.
type RepairReport struct {
	// Supported is false when the threshold is not 50 and the order was
	// returned untouched.
	Supported bool `json:"supported" yaml:"supported"`

	// Swaps counts adjacent swaps performed.
	Swaps int `json:"swaps" yaml:"swaps"`

	// Inversions lists the swapped pairs in the order they were fixed.
	Inversions []Inversion `json:"inversions,omitempty" yaml:"inversions,omitempty"`
}

// Err returns ErrUnsupportedThresholdRepair when the repair was skipped.
func (r *RepairReport) Err() error {
	if r != nil && !r.Supported {
		return ErrUnsupportedThresholdRepair
	}
	return nil
}

// QuestionReport is everything one ranking pass produced for a question.
type QuestionReport struct {
	// ExecutionID correlates the report with logs and traces.
	ExecutionID string `json:"execution_id" yaml:"execution_id"`

	// Question identifies the question.
	Question string `json:"question" yaml:"question"`

	// Ranking is the final order, best first.
	Ranking RankedResult `json:"ranking" yaml:"ranking"`

	// Shares is the cumulative share table in ranking order.
	Shares ShareTable `json:"shares" yaml:"shares"`

	// Repair is nil when repair was not requested.
	Repair *RepairReport `json:"repair,omitempty" yaml:"repair,omitempty"`
}
