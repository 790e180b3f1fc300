package domain

// Comparator defines an exact ordering between two options' rank
// sequences. Implementations must be a total preorder on sequences of equal
// length: Compare(a, a) == 0 and Compare(a, b) == -Compare(b, a).
type Comparator interface {
	// Compare returns +1 when a ranks above b, -1 when below, and 0 for a
	// true tie. Sequences of different length yield an error wrapping
	// ErrMismatchedSequenceLength. Inputs must not be modified.
	//
	// Example:
	//
	//	sign, err := cmp.Compare([]int{0, 0, 2, 2}, []int{0, 1, 1, 2})
	//	// sign == -1
	Compare(a, b []int) (int, error)
}

// ComparatorFunc adapts a function to the Comparator interface.
type ComparatorFunc func(a, b []int) (int, error)

// Compare calls f(a, b).
func (f ComparatorFunc) Compare(a, b []int) (int, error) { return f(a, b) }
