package ports

import (
	"context"

	"github.com/ahrav/majority/internal/domain"
)

// Executable defines the contract for components that can be chained into
// an execution pipeline.
type Executable interface {
	// Execute processes the given state and returns the updated state.
	// The input state is immutable and MUST NOT be modified; use
	// domain.With or State.WithMultiple to derive a new one.
	// Execute must be safe for concurrent use when called on different states.
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// ID returns the unique string identifier for this executable.
	ID() string
}

// Pipeline defines a sequential execution container that runs multiple
// executables in strict order, where each executable's output becomes
// the input for the next executable in the sequence.
type Pipeline interface {
	Executable

	// Add appends an executable to the end of this pipeline.
	// Add returns an error if the executable is nil or its ID is taken.
	Add(exec Executable) error

	// Executables returns the ordered list of executables in this pipeline.
	Executables() []Executable
}
