package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahrav/majority/infrastructure/units"
)

func newCompareCmd() *cobra.Command {
	var a, b string

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two rank sequences with the exact majority comparator",
		Long: `compare applies the exact median-based comparator to two sequences of
numeric grade ranks of equal length, e.g.

  majority compare --a 0,1,2,2 --b 1,1,1,2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ra, err := parseRanks(a)
			if err != nil {
				return fmt.Errorf("--a: %w", err)
			}
			rb, err := parseRanks(b)
			if err != nil {
				return fmt.Errorf("--b: %w", err)
			}

			result, err := units.Compare(ra, rb)
			if err != nil {
				return err
			}

			relation := "="
			switch result {
			case 1:
				relation = ">"
			case -1:
				relation = "<"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "a %s b (%d)\n", relation, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&a, "a", "", "comma-separated ranks of the first option")
	cmd.Flags().StringVar(&b, "b", "", "comma-separated ranks of the second option")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")
	return cmd
}

func parseRanks(s string) ([]int, error) {
	fields := strings.Split(s, ",")
	ranks := make([]int, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		r, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid rank %q: %w", f, err)
		}
		if r < 0 {
			return nil, fmt.Errorf("invalid rank %d: must not be negative", r)
		}
		ranks = append(ranks, r)
	}
	return ranks, nil
}
