package domain

import (
	"fmt"
	"strings"
)

// GradeScale is the ordered catalog of grade labels, worst first. A label's
// position is its numeric rank, so rank 0 is always the worst grade.
//
// A GradeScale is immutable after construction and safe for concurrent use.
type GradeScale struct {
	labels []string
	index  map[string]int
}

// NewGradeScale builds a scale from labels ordered low to high.
// It returns a *ValidationError wrapping ErrInvalidGradeScale when fewer
// than two labels are given, a label is blank, or a label is repeated.
func NewGradeScale(labels ...string) (GradeScale, error) {
	verr := NewValidationError("GradeScale", ErrInvalidGradeScale)
	if len(labels) < 2 {
		verr.AddError(fmt.Sprintf("need at least 2 labels, got %d", len(labels)))
	}

	index := make(map[string]int, len(labels))
	for i, label := range labels {
		if strings.TrimSpace(label) == "" {
			verr.AddError(fmt.Sprintf("label %d is empty", i))
			continue
		}
		if prev, dup := index[label]; dup {
			verr.AddError(fmt.Sprintf("label %q repeated at positions %d and %d", label, prev, i))
			continue
		}
		index[label] = i
	}
	if verr.HasErrors() {
		return GradeScale{}, verr
	}

	return GradeScale{
		labels: append([]string(nil), labels...),
		index:  index,
	}, nil
}

// MustGradeScale is like NewGradeScale but panics on an invalid scale.
// It is intended for package-level defaults and tests.
func MustGradeScale(labels ...string) GradeScale {
	s, err := NewGradeScale(labels...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of grades.
func (s GradeScale) Len() int { return len(s.labels) }

// Labels returns a copy of the labels, worst first.
func (s GradeScale) Labels() []string { return append([]string(nil), s.labels...) }

// Lowest returns the worst label, used to fill missing responses.
func (s GradeScale) Lowest() string {
	if len(s.labels) == 0 {
		return ""
	}
	return s.labels[0]
}

// Contains reports whether rank is a valid position in the scale.
func (s GradeScale) Contains(rank int) bool { return rank >= 0 && rank < len(s.labels) }

// Label returns the label at rank.
func (s GradeScale) Label(rank int) (string, error) {
	if !s.Contains(rank) {
		return "", fmt.Errorf("%w: %d not in [0, %d]", ErrRankOutOfRange, rank, len(s.labels)-1)
	}
	return s.labels[rank], nil
}

// Rank returns the numeric rank of label. Unknown labels yield a
// *GradeLabelError.
func (s GradeScale) Rank(label string) (int, error) {
	rank, ok := s.index[label]
	if !ok {
		return 0, &GradeLabelError{Value: label}
	}
	return rank, nil
}

// String renders the scale as "Bad < Ok < Good".
func (s GradeScale) String() string { return strings.Join(s.labels, " < ") }
