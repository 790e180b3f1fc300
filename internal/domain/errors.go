package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during ranking operations.
var (
	// ErrInvalidGradeLabel indicates that a raw value is not a member of the
	// grade scale. It signals malformed input data and is never recovered.
	ErrInvalidGradeLabel = errors.New("invalid grade label")

	// ErrMismatchedSequenceLength indicates that two rank sequences compared
	// (or stored under one question) have a different respondent count.
	ErrMismatchedSequenceLength = errors.New("mismatched sequence length")

	// ErrUnsupportedThresholdRepair indicates that consistency repair was
	// requested for a threshold other than 50. It is reported, not raised.
	ErrUnsupportedThresholdRepair = errors.New("repair not implemented for sub/supramajority")

	// ErrInvalidGradeScale indicates that a grade scale has fewer than two
	// labels, an empty label, or duplicated labels.
	ErrInvalidGradeScale = errors.New("invalid grade scale")

	// ErrRankOutOfRange indicates a numeric rank outside the grade scale.
	ErrRankOutOfRange = errors.New("rank out of range")

	// ErrNoRespondents indicates an empty rank sequence.
	ErrNoRespondents = errors.New("no respondents")

	// ErrQuestionNotFound indicates that a question is not in the store.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrOptionNotFound indicates that an option is not part of a question.
	ErrOptionNotFound = errors.New("option not found")

	// ErrDuplicateQuestion indicates that a question ID is already stored.
	ErrDuplicateQuestion = errors.New("duplicate question")

	// ErrDuplicateOption indicates that an option name is repeated within
	// a question.
	ErrDuplicateOption = errors.New("duplicate option")

	// ErrKeyNotFound indicates that a requested state key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrTypeMismatch indicates that a value's type doesn't match the expected type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// StateError represents an error that occurred during State operations.
// It provides context about which key and operation caused the error.
type StateError struct {
	// Key is the state key that was involved in the failed operation.
	Key string

	// Operation describes what operation was being performed when the error occurred.
	Operation string

	// Err is the underlying error that caused the operation to fail.
	Err error
}

// Error implements the error interface for StateError.
func (e *StateError) Error() string {
	return fmt.Sprintf("state error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *StateError) Unwrap() error { return e.Err }

// NewStateError creates a new StateError with the given details.
func NewStateError(key string, operation string, err error) *StateError {
	return &StateError{
		Key:       key,
		Operation: operation,
		Err:       err,
	}
}

// GradeLabelError reports a raw response that does not belong to the grade
// scale, with its location in the source data when known.
type GradeLabelError struct {
	// Value is the offending raw value.
	Value string

	// Column is the source column, empty when not read from a table.
	Column string

	// Row is the 1-based data row, 0 when unknown.
	Row int

	// Suggestion is the closest valid label, if one is close enough.
	Suggestion string
}

// Error implements the error interface for GradeLabelError.
func (e *GradeLabelError) Error() string {
	msg := fmt.Sprintf("%v: %q", ErrInvalidGradeLabel, e.Value)
	if e.Column != "" {
		msg += fmt.Sprintf(" in column %q", e.Column)
	}
	if e.Row > 0 {
		msg += fmt.Sprintf(" at row %d", e.Row)
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// Unwrap returns ErrInvalidGradeLabel so callers can match with errors.Is.
func (e *GradeLabelError) Unwrap() error { return ErrInvalidGradeLabel }

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string

	// Cause is matched by errors.Is; it is optional.
	Cause error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap returns the sentinel cause, if any.
func (e *ValidationError) Unwrap() error { return e.Cause }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string, cause error) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
		Cause:  cause,
	}
}
