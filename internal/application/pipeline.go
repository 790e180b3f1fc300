package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/ahrav/majority/internal/domain"
	"github.com/ahrav/majority/internal/ports"
)

var _ ports.Pipeline = (*Pipeline)(nil)

// Pipeline runs the ranking steps of one question in order, feeding each
// step's output state into the next.
// A Pipeline is built once and then executed concurrently for many
// questions; each execution works on its own immutable state.
type Pipeline struct {
	id string
	// steps is the ordered chain. It is only appended to while the engine
	// is being assembled.
	steps []ports.Executable
	// ids tracks step IDs for duplicate detection.
	ids map[string]struct{}
	mu  sync.RWMutex
}

// NewPipeline creates an empty pipeline with the given identifier.
func NewPipeline(id string) *Pipeline {
	return &Pipeline{
		id:    id,
		steps: make([]ports.Executable, 0, 3),
		ids:   make(map[string]struct{}),
	}
}

// Execute runs every step in order. Cancellation is observed between
// steps; a running step is never interrupted.
// Execute returns the state reached so far together with an error naming
// the failing step.
func (p *Pipeline) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	steps := p.Executables()

	current := state
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return current, err
		}
		next, err := step.Execute(ctx, current)
		if err != nil {
			return current, fmt.Errorf("pipeline %s: step %s failed: %w", p.id, step.ID(), err)
		}
		current = next
	}
	return current, nil
}

// ID returns the pipeline identifier.
func (p *Pipeline) ID() string { return p.id }

// Add appends a step. It fails for a nil step or a duplicate ID.
func (p *Pipeline) Add(step ports.Executable) error {
	if step == nil {
		return fmt.Errorf("cannot add nil executable to pipeline")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := step.ID()
	if _, exists := p.ids[id]; exists {
		return fmt.Errorf("executable with ID %s already exists in pipeline", id)
	}
	p.steps = append(p.steps, step)
	p.ids[id] = struct{}{}
	return nil
}

// Executables returns a copy of the ordered steps.
func (p *Pipeline) Executables() []ports.Executable {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return append([]ports.Executable(nil), p.steps...)
}

// Len reports the number of steps.
func (p *Pipeline) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.steps)
}
