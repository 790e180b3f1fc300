package application

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/majority/infrastructure/units"
)

// paramValidator checks unit parameter structs, which use only built-in tags.
var paramValidator = validator.New()

var unitIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]*$`)

// ValidateUnitParameters validates the parameters for a specific unit type
// by decoding them strictly into the unit's configuration struct and
// running its validation tags.
// ValidateUnitParameters returns an error if decoding fails, if an
// unknown field is present, or if any validation rule is violated.
func ValidateUnitParameters(unitType string, params yaml.Node) error {
	switch unitType {
	case units.TypePercentileRank:
		cfg := units.DefaultPercentileRankConfig()
		return decodeAndValidate(params, &cfg)
	case units.TypeConsistencyRepair:
		var cfg units.ConsistencyRepairConfig
		return decodeAndValidate(params, &cfg)
	case units.TypeShareTable:
		if params.Kind == 0 {
			return nil
		}
		var paramMap map[string]any
		if err := params.Decode(&paramMap); err != nil {
			return fmt.Errorf("failed to decode parameters: %w", err)
		}
		if len(paramMap) > 0 {
			return fmt.Errorf("share_table takes no parameters")
		}
		return nil
	default:
		return fmt.Errorf("unknown unit type: %s", unitType)
	}
}

// decodeAndValidate decodes a parameter node into dst, rejecting unknown
// fields, then applies dst's validation tags. An empty node leaves dst at
// its defaults.
func decodeAndValidate(params yaml.Node, dst any) error {
	if params.Kind != 0 {
		data, err := yaml.Marshal(&params)
		if err != nil {
			return fmt.Errorf("failed to encode parameters: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(dst); err != nil {
			return fmt.Errorf("failed to decode parameters: %w", err)
		}
	}
	if err := paramValidator.Struct(dst); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	return nil
}

// RegisterEngineValidators registers custom validation functions with the
// validator instance for use in engine configuration validation.
// RegisterEngineValidators returns an error if any registration fails.
func RegisterEngineValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}
	if err := v.RegisterValidation("gradelabel", validateGradeLabel); err != nil {
		return fmt.Errorf("failed to register gradelabel validator: %w", err)
	}
	if err := v.RegisterValidation("unitid", validateUnitID); err != nil {
		return fmt.Errorf("failed to register unitid validator: %w", err)
	}
	return nil
}

// validateSemver validates that a string follows semantic versioning
// format (X.Y.Z where X, Y, Z are non-negative integers).
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	n, err := fmt.Sscanf(value, "%d.%d.%d", &major, &minor, &patch)
	return err == nil && n == 3 && major >= 0 && minor >= 0 && patch >= 0
}

// validateGradeLabel rejects blank labels and labels with surrounding
// whitespace, which would never match a normalized survey cell.
func validateGradeLabel(fl validator.FieldLevel) bool {
	label := fl.Field().String()
	return label != "" && strings.TrimSpace(label) == label
}

// validateUnitID accepts identifiers made of letters, digits, '_' and '-'
// that start with a letter or digit.
func validateUnitID(fl validator.FieldLevel) bool {
	return unitIDPattern.MatchString(fl.Field().String())
}
