package testutils

// Survey size defaults used by GenerateSurvey and cmd/generate_survey.
const (
	// DefaultQuestionCount is the number of questions in a generated survey.
	DefaultQuestionCount = 10

	// DefaultOptionCount is the number of options per question.
	DefaultOptionCount = 5

	// DefaultRespondentCount is the number of respondents.
	DefaultRespondentCount = 200

	// MinimumOptionCount is the smallest number of options worth ranking.
	MinimumOptionCount = 2
)

// Response noise presets. Spread is the standard deviation of a
// respondent's grade around the option's latent quality, in grades.
const (
	SpreadConsensus = 0.5
	SpreadMixed     = 1.2
	SpreadPolarized = 2.5
)

// Topics are the question stems used to name generated questions.
var Topics = []string{
	"Lunch menu",
	"Team offsite",
	"Release name",
	"Conference venue",
	"Office plant",
	"Logo draft",
	"Board game night",
	"Reading list",
	"Meetup city",
	"Coffee blend",
}

// OptionNames are the option names assigned in order within a question.
var OptionNames = []string{
	"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot", "Golf", "Hotel",
	"India", "Juliett", "Kilo", "Lima", "Mike", "November", "Oscar", "Papa",
}
