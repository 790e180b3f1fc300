// Package ingest converts wide-format survey tables into an evaluation
// store. Each grade column is named "question [option]" and each cell holds
// one respondent's grade label for that option.
package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/ahrav/majority/internal/domain"
)

// DefaultMaxSuggestionDistance is the largest edit distance at which a
// closest label is still offered as a suggestion.
const DefaultMaxSuggestionDistance = 2

// LabelMatcher maps raw survey cells to grade ranks.
// Cells and labels are compared after Unicode NFC normalization and
// whitespace trimming, and optionally after case folding.
//
// A LabelMatcher is not safe for concurrent use.
type LabelMatcher struct {
	scale         domain.GradeScale
	folder        cases.Caser
	caseSensitive bool
	maxDistance   int
	byKey         map[string]int
	keys          []string
}

// NewLabelMatcher builds a matcher for scale. A negative maxDistance
// disables suggestions.
func NewLabelMatcher(scale domain.GradeScale, caseSensitive bool, maxDistance int) *LabelMatcher {
	labels := scale.Labels()
	m := &LabelMatcher{
		scale:         scale,
		folder:        cases.Fold(),
		caseSensitive: caseSensitive,
		maxDistance:   maxDistance,
		byKey:         make(map[string]int, len(labels)),
		keys:          make([]string, len(labels)),
	}
	for rank, label := range labels {
		key := m.key(label)
		m.keys[rank] = key
		if _, taken := m.byKey[key]; !taken {
			m.byKey[key] = rank
		}
	}
	return m
}

// Normalize applies NFC normalization and trims surrounding whitespace.
func Normalize(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func (m *LabelMatcher) key(s string) string {
	s = Normalize(s)
	if !m.caseSensitive {
		s = m.folder.String(s)
	}
	return s
}

// Match returns the rank of raw and whether it names a grade.
func (m *LabelMatcher) Match(raw string) (int, bool) {
	rank, ok := m.byKey[m.key(raw)]
	return rank, ok
}

// Suggest returns the label closest to raw by Levenshtein distance, or ""
// when none is within the matcher's maximum distance. Ties go to the lower
// grade.
func (m *LabelMatcher) Suggest(raw string) string {
	if m.maxDistance < 0 {
		return ""
	}
	key := m.key(raw)
	if key == "" {
		return ""
	}

	best, bestDist := -1, m.maxDistance+1
	for rank, candidate := range m.keys {
		d := levenshtein.ComputeDistance(key, candidate)
		// A distance equal to the candidate's length means nothing matched.
		if d >= utf8.RuneCountInString(candidate) {
			continue
		}
		if d < bestDist {
			best, bestDist = rank, d
		}
	}
	if best < 0 {
		return ""
	}
	label, _ := m.scale.Label(best)
	return label
}
