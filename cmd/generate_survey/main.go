// Command generate_survey writes a synthetic wide-format survey table for
// demos and benchmarks.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahrav/majority/internal/application"
	"github.com/ahrav/majority/internal/domain"
	"github.com/ahrav/majority/internal/testutils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := testutils.DefaultSurveyConfig()
	var (
		outputPath string
		labels     []string
	)

	cmd := &cobra.Command{
		Use:           "generate_survey",
		Short:         "Generate a synthetic wide-format survey CSV",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("seed") {
				cfg.Seed = time.Now().UnixNano()
			}
			scale, err := domain.NewGradeScale(labels...)
			if err != nil {
				return err
			}

			store, err := testutils.GenerateSurvey(scale, cfg)
			if err != nil {
				return err
			}
			if err := testutils.SaveSurvey(store, outputPath); err != nil {
				return err
			}

			stats, err := testutils.ComputeSurveyStatistics(store)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), outputPath, scale, cfg, stats)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&outputPath, "output", "o", "testdata/survey/sample_survey.csv", "output file path")
	f.IntVar(&cfg.Questions, "questions", cfg.Questions, "number of questions")
	f.IntVar(&cfg.Options, "options", cfg.Options, "options per question")
	f.IntVar(&cfg.Respondents, "respondents", cfg.Respondents, "number of respondents")
	f.Float64Var(&cfg.Spread, "spread", cfg.Spread, "grade noise around each option's quality, in grades")
	f.Float64Var(&cfg.MissingRate, "missing", cfg.MissingRate, "probability of a blank response")
	f.Int64Var(&cfg.Seed, "seed", 0, "random seed (default: time based)")
	f.StringSliceVar(&labels, "labels", application.DefaultGradeLabels, "grade labels from worst to best")
	return cmd
}

func printSummary(w io.Writer, path string, scale domain.GradeScale, cfg testutils.SurveyConfig, stats *testutils.SurveyStatistics) {
	fmt.Fprintf(w, "Generated survey:\n")
	fmt.Fprintf(w, "- Path: %s\n", path)
	fmt.Fprintf(w, "- Seed: %d\n", cfg.Seed)
	fmt.Fprintf(w, "- Scale: %s\n", scale)
	fmt.Fprintf(w, "- Questions: %d\n", stats.TotalQuestions)
	fmt.Fprintf(w, "- Options per question: %.2f\n", stats.AvgOptionsPerQuestion)

	respondents := make([]int, 0, len(stats.Respondents))
	for n := range stats.Respondents {
		respondents = append(respondents, n)
	}
	sort.Ints(respondents)
	fmt.Fprintf(w, "- Respondents: %v\n", respondents)

	fmt.Fprintf(w, "- Responses per grade:\n")
	for _, label := range scale.Labels() {
		fmt.Fprintf(w, "    %s: %d\n", label, stats.GradeCounts[label])
	}
}
