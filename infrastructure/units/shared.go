// Package units provides the ranking steps of the majority judgment engine.
// Each step implements ports.Unit so the application layer can chain them
// into a pipeline.
package units

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/majority/internal/domain"
)

// Unit type names understood by the registry and the configuration file.
const (
	TypePercentileRank    = "percentile_rank"
	TypeConsistencyRepair = "consistency_repair"
	TypeShareTable        = "share_table"
)

// MedianThreshold is the only threshold at which the exact comparator
// defines the ranking.
const MedianThreshold = 50.0

// LoggerConfigKey is the factory config entry carrying a *slog.Logger.
// It is skipped when the remaining parameters are decoded.
const LoggerConfigKey = "logger"

// Common errors returned by ranking units.
var (
	// ErrEmptyUnitName is returned when attempting to create a unit with an empty name.
	ErrEmptyUnitName = errors.New("unit name cannot be empty")

	// ErrNoOptions is returned when a question has nothing to rank.
	ErrNoOptions = errors.New("no options to rank")

	// ErrRepairDidNotConverge is returned when the repair loop exceeds the
	// swap bound, which only happens with a comparator that is not a
	// total preorder.
	ErrRepairDidNotConverge = errors.New("consistency repair did not converge")

	// ErrUnknownOption is returned when a ranking names an option that has
	// no rank sequence.
	ErrUnknownOption = errors.New("ranking references unknown option")
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// takeLogger returns the injected logger, falling back to slog.Default.
func takeLogger(config map[string]any) *slog.Logger {
	if logger, ok := config[LoggerConfigKey].(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// decodeConfig overlays a factory parameter map onto dst through a yaml
// round trip, so the yaml tags of the config struct apply. Unknown keys are
// rejected.
func decodeConfig(config map[string]any, dst any) error {
	params := maps.Clone(config)
	delete(params, LoggerConfigKey)

	data, err := yaml.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ranksByName indexes option rank sequences by option name.
func ranksByName(options []domain.Option) map[string][]int {
	m := make(map[string][]int, len(options))
	for _, o := range options {
		m[o.Name] = o.Ranks
	}
	return m
}
