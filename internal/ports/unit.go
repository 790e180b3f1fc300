// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/ahrav/majority/internal/domain"
)

// Unit represents one step of a ranking pass. Each Unit reads what it needs
// from the State and returns a new State carrying its results.
// Units should be stateless and safe for concurrent execution.
type Unit interface {
	// Name returns a unique identifier for this unit.
	// The name is used for logging, tracing, and metric labels.
	Name() string

	// Execute performs the unit's transformation on the provided State.
	// The original State must not be modified. Errors are returned rather
	// than panicking.
	//
	// Example:
	//
	//	newState, err := unit.Execute(ctx, state)
	//	if err != nil {
	//	    return state, fmt.Errorf("unit %s failed: %w", unit.Name(), err)
	//	}
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// Validate checks if the unit is properly configured and ready for execution.
	// Return nil if validation passes, or an error describing what is invalid.
	Validate() error
}

// UnitFactory builds a Unit of one type from its identifier and a decoded
// parameter map.
type UnitFactory func(id string, config map[string]any) (Unit, error)

// UnitRegistry resolves unit types to factories.
type UnitRegistry interface {
	// CreateUnit builds a unit of unitType named id.
	CreateUnit(unitType string, id string, config map[string]any) (Unit, error)

	// RegisterUnitFactory adds or replaces the factory for unitType.
	RegisterUnitFactory(unitType string, factory UnitFactory) error

	// GetSupportedTypes lists the registered unit types.
	GetSupportedTypes() []string
}
