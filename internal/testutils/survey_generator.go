// Package testutils provides synthetic survey data for tests, benchmarks,
// and demos. These helpers are intended for internal use and are not part
// of the public API.
package testutils

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/majority/internal/domain"
)

var validate = validator.New()

// SurveyConfig shapes a generated survey.
type SurveyConfig struct {
	// Questions is the number of questions.
	Questions int `json:"questions" validate:"min=1"`

	// Options is the number of options per question.
	Options int `json:"options" validate:"min=2"`

	// Respondents is the number of respondents grading every option.
	Respondents int `json:"respondents" validate:"min=1"`

	// Spread is the standard deviation of grades around an option's
	// latent quality, in grades.
	Spread float64 `json:"spread" validate:"gte=0"`

	// MissingRate is the probability that a response is left blank.
	// Blank responses are stored as rank 0.
	MissingRate float64 `json:"missing_rate" validate:"gte=0,lt=1"`

	// Seed controls randomization. Use a fixed value for reproducible data.
	Seed int64 `json:"seed"`
}

// DefaultSurveyConfig returns a mixed-opinion survey with a time-based seed.
func DefaultSurveyConfig() SurveyConfig {
	return SurveyConfig{
		Questions:   DefaultQuestionCount,
		Options:     DefaultOptionCount,
		Respondents: DefaultRespondentCount,
		Spread:      SpreadMixed,
		MissingRate: 0.05,
		Seed:        time.Now().UnixNano(),
	}
}

// GenerateSurvey creates a store of synthetic responses on scale.
//
// Each option gets a latent quality drawn uniformly over the scale and each
// respondent grades it at that quality plus Gaussian noise, clamped to the
// scale. The same config and scale always produce the same store.
func GenerateSurvey(scale domain.GradeScale, cfg SurveyConfig) (*domain.EvaluationStore, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid survey config: %w", err)
	}
	if scale.Len() < 2 {
		return nil, domain.ErrInvalidGradeScale
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	store := domain.NewEvaluationStore(scale)
	for i := range cfg.Questions {
		q := domain.Question{ID: QuestionName(i), Options: make([]domain.Option, cfg.Options)}
		for j := range cfg.Options {
			quality := rng.Float64() * float64(scale.Len()-1)
			q.Options[j] = domain.Option{
				Name:  OptionName(j),
				Ranks: GenerateRanks(rng, scale.Len(), cfg.Respondents, quality, cfg.Spread, cfg.MissingRate),
			}
		}
		if err := store.Add(q); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// GenerateRanks draws n ranks on a scale of grades labels centered on
// quality. A response is blank, rank 0, with probability missing.
func GenerateRanks(rng *rand.Rand, grades, n int, quality, spread, missing float64) []int {
	ranks := make([]int, n)
	top := float64(grades - 1)
	for i := range ranks {
		if rng.Float64() < missing {
			continue
		}
		v := math.Round(quality + rng.NormFloat64()*spread)
		ranks[i] = int(math.Max(0, math.Min(top, v)))
	}
	return ranks
}

// RandomRanks draws n ranks uniformly over a scale of grades labels.
func RandomRanks(rng *rand.Rand, grades, n int) []int {
	ranks := make([]int, n)
	for i := range ranks {
		ranks[i] = rng.Intn(grades)
	}
	return ranks
}

// QuestionName returns the name of the i-th generated question. Names sort
// in generation order.
func QuestionName(i int) string {
	return fmt.Sprintf("Q%03d %s", i+1, Topics[i%len(Topics)])
}

// OptionName returns the name of the j-th option of a generated question.
func OptionName(j int) string {
	if j < len(OptionNames) {
		return OptionNames[j]
	}
	return fmt.Sprintf("%s %d", OptionNames[j%len(OptionNames)], j/len(OptionNames)+1)
}
