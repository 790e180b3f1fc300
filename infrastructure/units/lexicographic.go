package units

import (
	"fmt"
	"slices"

	"github.com/ahrav/majority/internal/domain"
)

var _ domain.Comparator = LexicographicComparator{}

// LexicographicComparator is the exact majority judgment comparator. It
// repeatedly strips the shared lower-median grade from both sequences and
// compares the next one, so two options are equal only if they agree at
// every median-stripping level down to a single respondent.
//
// The zero value is ready to use and safe for concurrent use.
type LexicographicComparator struct{}

// Compare returns +1 when a ranks above b, -1 when below, 0 for a true tie.
//
// Algorithm:
//  1. Sort copies of both sequences ascending
//  2. Take the lower-median index m of the current length n
//  3. While n > 1 and a[m] == b[m], remove exactly one element at m from
//     each copy and recompute m
//  4. Return the sign of a[m] - b[m]
//
// Error Conditions:
//   - domain.ErrMismatchedSequenceLength when len(a) != len(b)
//   - domain.ErrNoRespondents when both are empty
func (LexicographicComparator) Compare(a, b []int) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", domain.ErrMismatchedSequenceLength, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, domain.ErrNoRespondents
	}

	left := slices.Clone(a)
	right := slices.Clone(b)
	slices.Sort(left)
	slices.Sort(right)

	n := len(left)
	m := LowerMedianIndex(n)
	for n > 1 && left[m] == right[m] {
		left = slices.Delete(left, m, m+1)
		right = slices.Delete(right, m, m+1)
		n--
		m = LowerMedianIndex(n)
	}

	switch {
	case left[m] > right[m]:
		return 1, nil
	case left[m] < right[m]:
		return -1, nil
	default:
		return 0, nil
	}
}

// Compare compares two rank sequences with the LexicographicComparator.
func Compare(a, b []int) (int, error) {
	return LexicographicComparator{}.Compare(a, b)
}

// LowerMedianIndex returns floor(n/2 - 1 + (n mod 2)/2): n/2-1 for even n
// and the middle index for odd n. It is -1 for n = 0.
func LowerMedianIndex(n int) int {
	if n <= 0 {
		return -1
	}
	return (n - 1) / 2
}
