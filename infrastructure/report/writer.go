// Package report renders ranking results for people and for other tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/majority/internal/domain"
	"github.com/ahrav/majority/internal/ports"
)

// Format selects the output encoding of a Writer.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formats lists the supported formats.
func Formats() []Format { return []Format{FormatTable, FormatJSON, FormatYAML} }

// ParseFormat resolves a format name. The empty string means FormatTable.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ports.ErrUnsupportedFormat, s)
	}
}

// Grade is one entry of the scale legend.
type Grade struct {
	Label string `json:"label" yaml:"label"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// Document is the machine-readable report.
type Document struct {
	Scale     []Grade                 `json:"scale" yaml:"scale"`
	Questions []domain.QuestionReport `json:"questions" yaml:"questions"`
}

// Writer renders question reports in one format.
type Writer struct {
	format Format
	labels []string
	colors []string
}

// Option configures a Writer.
type Option func(*Writer)

// WithColors attaches one display color per grade label. The palette is
// ignored unless it has exactly one color per label.
func WithColors(colors []string) Option {
	return func(w *Writer) {
		w.colors = append([]string(nil), colors...)
	}
}

// NewWriter creates a writer for reports on scale.
func NewWriter(format Format, scale domain.GradeScale, opts ...Option) (*Writer, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatTable
	}
	w := &Writer{format: format, labels: scale.Labels()}
	for _, opt := range opts {
		opt(w)
	}
	if len(w.colors) != len(w.labels) {
		w.colors = nil
	}
	return w, nil
}

// Format returns the writer's format.
func (w *Writer) Format() Format { return w.format }

// Document builds the machine-readable form of reports.
func (w *Writer) Document(reports []domain.QuestionReport) Document {
	doc := Document{Scale: make([]Grade, len(w.labels)), Questions: reports}
	for i, label := range w.labels {
		doc.Scale[i] = Grade{Label: label, Color: w.color(i)}
	}
	if doc.Questions == nil {
		doc.Questions = []domain.QuestionReport{}
	}
	return doc
}

func (w *Writer) color(rank int) string {
	if w.colors == nil {
		return ""
	}
	return w.colors[rank]
}

// Write renders reports to out.
func (w *Writer) Write(out io.Writer, reports []domain.QuestionReport) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(w.Document(reports)); err != nil {
			return fmt.Errorf("failed to encode JSON report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(w.Document(reports)); err != nil {
			return fmt.Errorf("failed to encode YAML report: %w", err)
		}
		return enc.Close()
	default:
		return w.writeTable(out, reports)
	}
}

func (w *Writer) writeTable(out io.Writer, reports []domain.QuestionReport) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if w.colors != nil {
		legend := make([]string, len(w.labels))
		for i, label := range w.labels {
			legend[i] = fmt.Sprintf("%s=%s", label, w.colors[i])
		}
		fmt.Fprintf(tw, "Colors: %s\n\n", strings.Join(legend, ", "))
	}

	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		w.writeQuestion(tw, r)
	}
	return tw.Flush()
}

func (w *Writer) writeQuestion(tw io.Writer, r domain.QuestionReport) {
	order := "approximate"
	if r.Ranking.Exact {
		order = "exact"
	}
	fmt.Fprintf(tw, "%s\n", r.Question)
	fmt.Fprintf(tw, "threshold %g, %s order\n", r.Ranking.Threshold, order)

	header := []string{"#", "OPTION", "GRADE", "P", "Q"}
	for _, label := range r.Shares.Labels {
		header = append(header, "≥"+label)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	shares := make(map[string][]float64, len(r.Shares.Rows))
	for _, row := range r.Shares.Percent().Rows {
		shares[row.Name] = row.Shares
	}

	for pos, s := range r.Ranking.Scores {
		cols := []string{
			fmt.Sprintf("%d", pos+1),
			s.Name,
			s.Grade(),
			fmt.Sprintf("%.3f", s.P),
			fmt.Sprintf("%.3f", s.Q),
		}
		for _, v := range shares[s.Name] {
			cols = append(cols, fmt.Sprintf("%.1f%%", v))
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}

	switch {
	case r.Repair == nil:
	case !r.Repair.Supported:
		fmt.Fprintf(tw, "repair: skipped (%v)\n", domain.ErrUnsupportedThresholdRepair)
	case r.Repair.Swaps == 0:
		fmt.Fprintln(tw, "repair: order already consistent")
	default:
		fixed := make([]string, len(r.Repair.Inversions))
		for i, inv := range r.Repair.Inversions {
			fixed[i] = fmt.Sprintf("%s over %s", inv.Upper, inv.Lower)
		}
		fmt.Fprintf(tw, "repair: %d swap(s): %s\n", r.Repair.Swaps, strings.Join(fixed, "; "))
	}
}
