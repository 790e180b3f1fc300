package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/majority/infrastructure/report"
	"github.com/ahrav/majority/internal/domain"
	"github.com/ahrav/majority/internal/ports"
)

const testConfig = `scale:
  labels: [Bad, Ok, Good]
  colors: [red, yellow, green]
threshold: 50
repair: true
workers: 2
`

const testSurvey = `Timestamp,Lunch [A],Lunch [B]
t1,Bad,Bad
t2,Bad,Ok
t3,Good,Ok
t4,Good,Good
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRank_JSON(t *testing.T) {
	cfg := writeFile(t, "config.yaml", testConfig)
	survey := writeFile(t, "survey.csv", testSurvey)

	out, _, err := execute(t, "", "rank", "--config", cfg, "--format", "json", survey)
	require.NoError(t, err)

	var doc report.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, report.Grade{Label: "Good", Color: "green"}, doc.Scale[2])
	require.Len(t, doc.Questions, 1)
	assert.Equal(t, []string{"B", "A"}, doc.Questions[0].Ranking.Names())
	assert.True(t, doc.Questions[0].Ranking.Exact)
	assert.NotEmpty(t, doc.Questions[0].ExecutionID)
}

func TestRank_TableFromStdin(t *testing.T) {
	cfg := writeFile(t, "config.yaml", testConfig)

	out, _, err := execute(t, testSurvey, "rank", "-c", cfg, "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Lunch")
	assert.Contains(t, out, "Colors: Bad=red, Ok=yellow, Good=green")
	assert.Contains(t, out, "threshold 50, exact order")
}

func TestRank_FlagOverrides(t *testing.T) {
	cfg := writeFile(t, "config.yaml", testConfig)
	survey := writeFile(t, "survey.csv", testSurvey)

	out, stderr, err := execute(t, "", "rank", "-c", cfg, "--threshold", "70", "--verbose", "-f", "yaml", survey)
	require.NoError(t, err)
	assert.Contains(t, out, "threshold: 70")
	assert.Contains(t, stderr, "ranked option")
	assert.Contains(t, stderr, "level=WARN", "repair is skipped away from the median")
}

func TestRank_MetricsServer(t *testing.T) {
	cfg := writeFile(t, "config.yaml", testConfig)
	survey := writeFile(t, "survey.csv", testSurvey)

	_, stderr, err := execute(t, "", "rank", "-c", cfg, "--metrics-addr", "127.0.0.1:0", survey)
	require.NoError(t, err)
	assert.Contains(t, stderr, "serving metrics")
}

func TestRank_Errors(t *testing.T) {
	cfg := writeFile(t, "config.yaml", testConfig)
	survey := writeFile(t, "survey.csv", testSurvey)
	typo := writeFile(t, "typo.csv", "Q [A],Q [B]\nGood,Godo\n")

	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{name: "unknown format", args: []string{"rank", "-c", cfg, "-f", "xml", survey}, wantErr: ports.ErrUnsupportedFormat},
		{name: "invalid threshold", args: []string{"rank", "-c", cfg, "-t", "0", survey}, wantErr: domain.ErrInvalidConfiguration},
		{name: "missing config", args: []string{"rank", "-c", filepath.Join(t.TempDir(), "none.yaml"), survey}, wantErr: ports.ErrConfigNotFound},
		{name: "missing survey", args: []string{"rank", "-c", cfg, filepath.Join(t.TempDir(), "none.csv")}, wantMsg: "failed to open survey"},
		{name: "unknown label", args: []string{"rank", "-c", cfg, typo}, wantErr: domain.ErrInvalidGradeLabel, wantMsg: `did you mean "Good"?`},
		{name: "bad delimiter", args: []string{"rank", "-c", cfg, "--delimiter", ";;", survey}, wantMsg: "single character"},
		{name: "too many args", args: []string{"rank", survey, survey}, wantMsg: "accepts at most 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name    string
		a, b    string
		want    string
		wantErr string
	}{
		{name: "below", a: "0,0,2,2", b: "0,1,1,2", want: "a < b (-1)"},
		{name: "above", a: "0,0,2", b: "0,0,1", want: "a > b (1)"},
		{name: "tie", a: "2, 1, 0", b: "0,1,2", want: "a = b (0)"},
		{name: "mismatched", a: "0,1", b: "0", wantErr: "mismatched sequence length"},
		{name: "not a number", a: "x", b: "0", wantErr: "--a: invalid rank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "", "compare", "--a", tt.a, "--b", tt.b)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestParseRanks(t *testing.T) {
	got, err := parseRanks(" 3,1, ,2 ")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2}, got)

	_, err = parseRanks("1,-2")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "majority version dev")

	out, _, err = execute(t, "", "--version")
	require.NoError(t, err)
	assert.Equal(t, "majority version dev\n", out)
}
