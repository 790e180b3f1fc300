package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/majority/internal/domain"
	"github.com/ahrav/majority/internal/testutils"
)

func TestGenerateSurveyCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "survey.csv")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"--output", path,
		"--questions", "4",
		"--options", "3",
		"--respondents", "20",
		"--seed", "99",
		"--labels", "Bad,Ok,Good",
	})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "- Seed: 99")
	assert.Contains(t, out.String(), "- Scale: Bad < Ok < Good")
	assert.Contains(t, out.String(), "- Respondents: [20]")

	store, err := testutils.LoadSurvey(path, domain.MustGradeScale("Bad", "Ok", "Good"))
	require.NoError(t, err)
	assert.Equal(t, 4, store.Len())
}

func TestGenerateSurveyCommand_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "one label", args: []string{"--labels", "Only"}},
		{name: "one option", args: []string{"--options", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetArgs(append(tt.args, "--output", filepath.Join(t.TempDir(), "s.csv")))
			assert.Error(t, cmd.Execute())
		})
	}
}
