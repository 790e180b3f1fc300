package domain

import (
	"fmt"
	"sort"
)

// Option is one graded alternative of a question together with the rank
// every respondent gave it. Missing responses are already rank 0.
type Option struct {
	// Name identifies the option within its question.
	Name string `json:"name" yaml:"name"`

	// Ranks holds one grade rank per respondent, in respondent order.
	Ranks []int `json:"ranks" yaml:"ranks"`
}

// Question groups the options evaluated under one identifier.
// Options keep the order in which they were ingested.
type Question struct {
	// ID is the question text or identifier.
	ID string `json:"id" yaml:"id"`

	// Options are the graded alternatives.
	Options []Option `json:"options" yaml:"options"`
}

// Respondents returns the number of respondents N shared by all options,
// or 0 when the question has no options.
func (q Question) Respondents() int {
	if len(q.Options) == 0 {
		return 0
	}
	return len(q.Options[0].Ranks)
}

// Option looks up an option by name.
func (q Question) Option(name string) (Option, bool) {
	for _, o := range q.Options {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// clone returns a copy that shares no slices with q.
func (q Question) clone() Question {
	out := Question{ID: q.ID, Options: make([]Option, len(q.Options))}
	for i, o := range q.Options {
		out.Options[i] = Option{Name: o.Name, Ranks: append([]int(nil), o.Ranks...)}
	}
	return out
}

// EvaluationStore holds, per question, the full rank sequence of every
// option. It is filled once at the ingestion boundary and is read-only for
// the ranking pass that owns it.
type EvaluationStore struct {
	scale     GradeScale
	questions map[string]Question
}

// NewEvaluationStore creates an empty store for ranks expressed on scale.
func NewEvaluationStore(scale GradeScale) *EvaluationStore {
	return &EvaluationStore{
		scale:     scale,
		questions: make(map[string]Question),
	}
}

// Scale returns the grade scale of the stored ranks.
func (s *EvaluationStore) Scale() GradeScale { return s.scale }

// Add validates q and stores a private copy of it.
//
// Add rejects a duplicate question ID, a duplicate option name, an option
// without respondents, ranks outside the scale, and options whose
// respondent count differs from the first option of the question.
func (s *EvaluationStore) Add(q Question) error {
	if q.ID == "" {
		return fmt.Errorf("%w: empty question id", ErrInvalidConfiguration)
	}
	if _, exists := s.questions[q.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateQuestion, q.ID)
	}

	seen := make(map[string]struct{}, len(q.Options))
	n := q.Respondents()
	for _, o := range q.Options {
		if _, dup := seen[o.Name]; dup {
			return fmt.Errorf("%w: %q in question %q", ErrDuplicateOption, o.Name, q.ID)
		}
		seen[o.Name] = struct{}{}

		if len(o.Ranks) == 0 {
			return fmt.Errorf("%w: option %q in question %q", ErrNoRespondents, o.Name, q.ID)
		}
		if len(o.Ranks) != n {
			return fmt.Errorf("%w: option %q in question %q has %d respondents, want %d",
				ErrMismatchedSequenceLength, o.Name, q.ID, len(o.Ranks), n)
		}
		for i, r := range o.Ranks {
			if !s.scale.Contains(r) {
				return fmt.Errorf("%w: option %q in question %q, respondent %d has rank %d",
					ErrRankOutOfRange, o.Name, q.ID, i, r)
			}
		}
	}

	s.questions[q.ID] = q.clone()
	return nil
}

// Questions returns the stored question IDs in sorted order.
func (s *EvaluationStore) Questions() []string {
	ids := make([]string, 0, len(s.questions))
	for id := range s.questions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Question returns a copy of the question with the given ID.
func (s *EvaluationStore) Question(id string) (Question, error) {
	q, ok := s.questions[id]
	if !ok {
		return Question{}, fmt.Errorf("%w: %q", ErrQuestionNotFound, id)
	}
	return q.clone(), nil
}

// Ranks returns a copy of the rank sequence of option under question.
func (s *EvaluationStore) Ranks(question, option string) ([]int, error) {
	q, ok := s.questions[question]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrQuestionNotFound, question)
	}
	o, ok := q.Option(option)
	if !ok {
		return nil, fmt.Errorf("%w: %q in question %q", ErrOptionNotFound, option, question)
	}
	return append([]int(nil), o.Ranks...), nil
}

// Len returns the number of stored questions.
func (s *EvaluationStore) Len() int { return len(s.questions) }
