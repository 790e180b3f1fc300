package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/ahrav/majority/internal/domain"
)

// Errors returned while reading wide-format tables.
var (
	// ErrNoHeader is returned for an empty input.
	ErrNoHeader = errors.New("missing header row")

	// ErrNoGradeColumns is returned when no header matches "question [option]".
	ErrNoGradeColumns = errors.New("no grade columns found")
)

var columnPattern = regexp.MustCompile(`^(.+?)\s+\[(.+)\]$`)

// ParseColumn splits a "question [option]" header into its parts. At least
// one space must separate the question from the bracket.
// Both parts are normalized. ok is false for any other column.
func ParseColumn(header string) (question, option string, ok bool) {
	m := columnPattern.FindStringSubmatch(Normalize(header))
	if m == nil {
		return "", "", false
	}
	question, option = Normalize(m[1]), Normalize(m[2])
	if question == "" || option == "" {
		return "", "", false
	}
	return question, option, true
}

// Options controls ReadWide.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// CaseSensitive disables case folding when matching grade labels.
	CaseSensitive bool
	// MaxSuggestionDistance bounds label suggestions on errors. Zero means
	// DefaultMaxSuggestionDistance; negative disables suggestions.
	MaxSuggestionDistance int
}

// DefaultOptions returns comma-separated, case-insensitive options.
func DefaultOptions() Options {
	return Options{Comma: ',', MaxSuggestionDistance: DefaultMaxSuggestionDistance}
}

type gradeColumn struct {
	index    int
	header   string
	question string
	option   string
}

// ReadWide reads a wide-format survey table into an evaluation store.
//
// Columns that do not follow the "question [option]" convention, such as
// timestamps, are ignored. Questions and options keep their column order.
// An empty cell is a missing response and becomes rank 0, the lowest grade.
//
// Error Conditions:
//   - ErrNoHeader for empty input, ErrNoGradeColumns without grade columns
//   - *domain.GradeLabelError for a cell that is not a grade label
//   - store validation errors such as domain.ErrDuplicateOption
func ReadWide(r io.Reader, scale domain.GradeScale, opts Options) (*domain.EvaluationStore, error) {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns, questionOrder := gradeColumns(header)
	if len(columns) == 0 {
		return nil, ErrNoGradeColumns
	}

	maxDistance := opts.MaxSuggestionDistance
	if maxDistance == 0 {
		maxDistance = DefaultMaxSuggestionDistance
	}
	matcher := NewLabelMatcher(scale, opts.CaseSensitive, maxDistance)

	ranks := make([][]int, len(columns))
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}

		for i, col := range columns {
			rank, err := parseCell(matcher, record[col.index], col.header, row)
			if err != nil {
				return nil, err
			}
			ranks[i] = append(ranks[i], rank)
		}
	}

	questions := make(map[string]*domain.Question, len(questionOrder))
	for _, id := range questionOrder {
		questions[id] = &domain.Question{ID: id}
	}
	for i, col := range columns {
		q := questions[col.question]
		q.Options = append(q.Options, domain.Option{Name: col.option, Ranks: ranks[i]})
	}

	store := domain.NewEvaluationStore(scale)
	for _, id := range questionOrder {
		if err := store.Add(*questions[id]); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// gradeColumns selects the grade columns of header and the questions in
// first-seen order.
func gradeColumns(header []string) ([]gradeColumn, []string) {
	var (
		columns []gradeColumn
		order   []string
		seen    = make(map[string]struct{})
	)
	for i, h := range header {
		question, option, ok := ParseColumn(h)
		if !ok {
			continue
		}
		if _, dup := seen[question]; !dup {
			seen[question] = struct{}{}
			order = append(order, question)
		}
		columns = append(columns, gradeColumn{index: i, header: h, question: question, option: option})
	}
	return columns, order
}

func parseCell(m *LabelMatcher, raw, column string, row int) (int, error) {
	if Normalize(raw) == "" {
		return 0, nil
	}
	rank, ok := m.Match(raw)
	if !ok {
		return 0, &domain.GradeLabelError{
			Value:      Normalize(raw),
			Column:     column,
			Row:        row,
			Suggestion: m.Suggest(raw),
		}
	}
	return rank, nil
}

// WriteWide writes store as a wide-format table, one grade column per
// option, in question ID order. Rank r is written as the scale's label r.
// Every question must have the same number of respondents, otherwise
// nothing is written and domain.ErrMismatchedSequenceLength is returned.
func WriteWide(w io.Writer, store *domain.EvaluationStore) error {
	scale := store.Scale()
	var (
		header []string
		cols   [][]int
	)
	for _, id := range store.Questions() {
		q, err := store.Question(id)
		if err != nil {
			return err
		}
		for _, o := range q.Options {
			header = append(header, fmt.Sprintf("%s [%s]", q.ID, o.Name))
			cols = append(cols, o.Ranks)
		}
	}

	rows := 0
	if len(cols) > 0 {
		rows = len(cols[0])
	}
	for c, ranks := range cols {
		if len(ranks) != rows {
			return fmt.Errorf("%w: column %q has %d respondents, want %d",
				domain.ErrMismatchedSequenceLength, header[c], len(ranks), rows)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(cols))
	for r := 0; r < rows; r++ {
		for c, ranks := range cols {
			label, err := scale.Label(ranks[r])
			if err != nil {
				return err
			}
			record[c] = label
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
