package testutils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ahrav/majority/infrastructure/ingest"
	"github.com/ahrav/majority/internal/domain"
)

// SurveyStatistics summarizes a survey store.
type SurveyStatistics struct {
	// TotalQuestions is the number of questions in the store.
	TotalQuestions int

	// TotalOptions is the number of options across all questions.
	TotalOptions int

	// Respondents maps each respondent count to how many questions have it.
	Respondents map[int]int

	// GradeCounts counts responses per grade label.
	GradeCounts map[string]int

	// AvgOptionsPerQuestion is the mean number of options per question.
	AvgOptionsPerQuestion float64
}

// ComputeSurveyStatistics analyzes a store and returns summary statistics.
func ComputeSurveyStatistics(store *domain.EvaluationStore) (*SurveyStatistics, error) {
	stats := &SurveyStatistics{
		TotalQuestions: store.Len(),
		Respondents:    make(map[int]int),
		GradeCounts:    make(map[string]int),
	}

	labels := store.Scale().Labels()
	for _, id := range store.Questions() {
		q, err := store.Question(id)
		if err != nil {
			return nil, err
		}
		stats.TotalOptions += len(q.Options)
		stats.Respondents[q.Respondents()]++
		for _, o := range q.Options {
			for _, r := range o.Ranks {
				stats.GradeCounts[labels[r]]++
			}
		}
	}

	if stats.TotalQuestions > 0 {
		stats.AvgOptionsPerQuestion = float64(stats.TotalOptions) / float64(stats.TotalQuestions)
	}
	return stats, nil
}

// SaveSurvey writes store to path as a wide-format CSV table.
func SaveSurvey(store *domain.EvaluationStore, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create survey file: %w", err)
	}
	if err := ingest.WriteWide(f, store); err != nil {
		f.Close()
		return fmt.Errorf("failed to write survey: %w", err)
	}
	return f.Close()
}

// LoadSurvey reads a wide-format CSV survey from path.
func LoadSurvey(path string, scale domain.GradeScale) (*domain.EvaluationStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open survey file: %w", err)
	}
	defer f.Close()

	store, err := ingest.ReadWide(f, scale, ingest.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to parse survey: %w", err)
	}
	return store, nil
}
