package application

import (
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/majority/infrastructure/units"
	"github.com/ahrav/majority/internal/domain"
)

// DefaultGradeLabels is the seven-grade scale used when a configuration
// does not name its own, ordered from worst to best.
var DefaultGradeLabels = []string{
	"Reject", "Insufficient", "Passable", "Fair", "Good", "Very Good", "Excellent",
}

// EngineConfig defines everything the ranking engine needs that stays
// fixed for its lifetime: the grade scale, the majority threshold, and the
// unit chain each question flows through.
type EngineConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning. Optional.
	Version string `yaml:"version,omitempty" json:"version,omitempty" validate:"omitempty,semver"`
	// Scale is the ordered grade catalog and its display colors.
	Scale ScaleConfig `yaml:"scale" json:"scale"`
	// Threshold is the percentage of respondents that must grant at least
	// the majority grade. 50 is the classic median.
	Threshold float64 `yaml:"threshold" json:"threshold" validate:"gt=0,lte=100"`
	// Repair enables the exact consistency repair after approximate
	// ranking. It only has an effect at threshold 50.
	Repair bool `yaml:"repair" json:"repair"`
	// Verbose turns on per-option diagnostic tracing. It has no effect on
	// the results.
	Verbose bool `yaml:"verbose" json:"verbose"`
	// Workers bounds how many questions are ranked concurrently. Zero
	// means runtime.NumCPU().
	Workers int `yaml:"workers" json:"workers" validate:"min=0,max=1024"`
	// Units optionally replaces the default unit chain. When empty the
	// chain is percentile_rank, then consistency_repair if Repair is set,
	// then share_table.
	Units []UnitConfig `yaml:"units,omitempty" json:"-" validate:"omitempty,dive"`
}

// ScaleConfig describes the grade scale, from worst to best.
type ScaleConfig struct {
	// Labels are the grade names. At least two, all distinct.
	Labels []string `yaml:"labels" json:"labels" validate:"required,min=2,unique,dive,gradelabel"`
	// Colors carries one opaque display identifier per grade. They are
	// passed through to reports untouched.
	Colors []string `yaml:"colors,omitempty" json:"colors,omitempty" validate:"omitempty,eqfield=Labels,dive,required"`
}

// UnitConfig declares one step of a custom unit chain.
type UnitConfig struct {
	// ID is the unique identifier for this unit within the chain.
	ID string `yaml:"id" validate:"required,unitid,min=1,max=100"`
	// Type selects the unit implementation.
	Type string `yaml:"type" validate:"required,oneof=percentile_rank consistency_repair share_table"`
	// Parameters contains type-specific configuration validated by
	// ValidateUnitParameters.
	Parameters yaml.Node `yaml:"parameters,omitempty"`
}

// DefaultEngineConfig returns a median configuration over
// DefaultGradeLabels with repair enabled.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Scale:     ScaleConfig{Labels: append([]string(nil), DefaultGradeLabels...)},
		Threshold: units.MedianThreshold,
		Repair:    true,
	}
}

// GradeScale builds the domain scale described by the configuration.
func (c EngineConfig) GradeScale() (domain.GradeScale, error) {
	return domain.NewGradeScale(c.Scale.Labels...)
}

// WorkerCount resolves Workers, substituting the CPU count for zero.
func (c EngineConfig) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// ColorFor returns the color configured for a grade label, or "" when no
// palette is set.
func (c EngineConfig) ColorFor(label string) string {
	if len(c.Scale.Colors) != len(c.Scale.Labels) {
		return ""
	}
	for i, l := range c.Scale.Labels {
		if l == label {
			return c.Scale.Colors[i]
		}
	}
	return ""
}
