package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/majority/internal/domain"
	"github.com/ahrav/majority/internal/ports"
)

func scale() domain.GradeScale { return domain.MustGradeScale("Bad", "Ok", "Good") }

func sampleReport() domain.QuestionReport {
	return domain.QuestionReport{
		ExecutionID: "run-1",
		Question:    "Lunch",
		Ranking: domain.RankedResult{
			Question:  "Lunch",
			Threshold: 50,
			Exact:     true,
			Scores: []domain.OptionScore{
				{Name: "B", PercVal: 1, PercLabel: "Ok", P: 0.25, Q: 0, Suffix: domain.SuffixPlus, Comp: -0.25},
				{Name: "A", PercVal: 1, PercLabel: "Ok", P: 0, Q: 0.25, Suffix: domain.SuffixMinus, Comp: 0.25},
			},
		},
		Shares: domain.ShareTable{
			Question: "Lunch",
			Labels:   []string{"Bad", "Ok", "Good"},
			Rows: []domain.ShareRow{
				{Name: "B", Shares: []float64{1, 1, 0.25}},
				{Name: "A", Shares: []float64{1, 0.75, 0}},
			},
		},
		Repair: &domain.RepairReport{
			Supported:  true,
			Swaps:      1,
			Inversions: []domain.Inversion{{Upper: "B", Lower: "A"}},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatTable},
		{in: "table", want: FormatTable},
		{in: " JSON ", want: FormatJSON},
		{in: "yaml", want: FormatYAML},
		{in: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ports.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewWriter(t *testing.T) {
	_, err := NewWriter("xml", scale())
	assert.ErrorIs(t, err, ports.ErrUnsupportedFormat)

	w, err := NewWriter("", scale())
	require.NoError(t, err)
	assert.Equal(t, FormatTable, w.Format())
}

func TestWriter_Document(t *testing.T) {
	tests := []struct {
		name   string
		colors []string
		want   []Grade
	}{
		{
			name:   "with colors",
			colors: []string{"red", "yellow", "green"},
			want:   []Grade{{"Bad", "red"}, {"Ok", "yellow"}, {"Good", "green"}},
		},
		{
			name: "without colors",
			want: []Grade{{Label: "Bad"}, {Label: "Ok"}, {Label: "Good"}},
		},
		{
			name:   "palette of wrong length is dropped",
			colors: []string{"red"},
			want:   []Grade{{Label: "Bad"}, {Label: "Ok"}, {Label: "Good"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWriter(FormatJSON, scale(), WithColors(tt.colors))
			require.NoError(t, err)

			doc := w.Document(nil)
			assert.Equal(t, tt.want, doc.Scale)
			assert.NotNil(t, doc.Questions)
		})
	}
}

func TestWriter_JSON(t *testing.T) {
	w, err := NewWriter(FormatJSON, scale(), WithColors([]string{"red", "yellow", "green"}))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf, []domain.QuestionReport{sampleReport()}))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "green", doc.Scale[2].Color)
	require.Len(t, doc.Questions, 1)
	assert.Equal(t, sampleReport(), doc.Questions[0])
	assert.Contains(t, buf.String(), `"perc_label": "Ok"`)
}

func TestWriter_YAML(t *testing.T) {
	w, err := NewWriter(FormatYAML, scale())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf, []domain.QuestionReport{sampleReport()}))

	var doc Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Questions, 1)
	assert.Equal(t, []string{"B", "A"}, doc.Questions[0].Ranking.Names())
	assert.Equal(t, 1, doc.Questions[0].Repair.Swaps)
}

func TestWriter_Table(t *testing.T) {
	w, err := NewWriter(FormatTable, scale(), WithColors([]string{"red", "yellow", "green"}))
	require.NoError(t, err)

	unsupported := sampleReport()
	unsupported.Question = "Dinner"
	unsupported.Ranking.Exact = false
	unsupported.Ranking.Threshold = 70
	unsupported.Repair = &domain.RepairReport{}

	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf, []domain.QuestionReport{sampleReport(), unsupported}))
	out := buf.String()

	assert.Contains(t, out, "Colors: Bad=red, Ok=yellow, Good=green")
	assert.Contains(t, out, "threshold 50, exact order")
	assert.Contains(t, out, "threshold 70, approximate order")
	assert.Contains(t, out, "repair: 1 swap(s): B over A")
	assert.Contains(t, out, "repair: skipped")

	lines := strings.Split(out, "\n")
	var rows []string
	for _, l := range lines {
		if strings.HasPrefix(l, "1 ") || strings.HasPrefix(l, "2 ") {
			rows = append(rows, strings.Join(strings.Fields(l), " "))
		}
	}
	require.Len(t, rows, 4)
	assert.Equal(t, "1 B Ok+ 0.250 0.000 100.0% 100.0% 25.0%", rows[0])
	assert.Equal(t, "2 A Ok- 0.000 0.250 100.0% 75.0% 0.0%", rows[1])
}

func TestWriter_TableRepairStates(t *testing.T) {
	tests := []struct {
		name   string
		repair *domain.RepairReport
		want   string
		absent string
	}{
		{name: "no repair", repair: nil, absent: "repair:"},
		{name: "consistent", repair: &domain.RepairReport{Supported: true}, want: "repair: order already consistent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWriter(FormatTable, scale())
			require.NoError(t, err)

			r := sampleReport()
			r.Repair = tt.repair

			var buf bytes.Buffer
			require.NoError(t, w.Write(&buf, []domain.QuestionReport{r}))
			if tt.want != "" {
				assert.Contains(t, buf.String(), tt.want)
			}
			if tt.absent != "" {
				assert.NotContains(t, buf.String(), tt.absent)
			}
			assert.NotContains(t, buf.String(), "Colors:")
		})
	}
}
