package application

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/ahrav/majority/infrastructure/units"
	"github.com/ahrav/majority/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.UnitRegistry = (*DefaultUnitRegistry)(nil)

// DefaultUnitRegistry creates ranking units by type name. It comes with the
// built-in percentile_rank, consistency_repair and share_table factories
// and accepts additional factories at runtime.
// Every factory receives the registry's logger under units.LoggerConfigKey.
type DefaultUnitRegistry struct {
	factories map[string]ports.UnitFactory
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewDefaultUnitRegistry creates a registry with the built-in unit types.
// A nil logger falls back to slog.Default.
func NewDefaultUnitRegistry(logger *slog.Logger) *DefaultUnitRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultUnitRegistry{
		factories: map[string]ports.UnitFactory{
			units.TypePercentileRank:    units.NewPercentileRankFromConfig,
			units.TypeConsistencyRepair: units.NewConsistencyRepairFromConfig,
			units.TypeShareTable:        units.NewShareTableFromConfig,
		},
		logger: logger,
	}
}

// CreateUnit creates a unit of the given type. The config map is not
// modified.
func (r *DefaultUnitRegistry) CreateUnit(
	unitType string,
	id string,
	config map[string]any,
) (ports.Unit, error) {
	r.mu.RLock()
	factory, exists := r.factories[unitType]
	logger := r.logger
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported unit type: %s", unitType)
	}
	if id == "" {
		return nil, fmt.Errorf("unit ID cannot be empty")
	}

	params := make(map[string]any, len(config)+1)
	maps.Copy(params, config)
	if _, ok := params[units.LoggerConfigKey]; !ok {
		params[units.LoggerConfigKey] = logger.With(slog.String("unit", id))
	}

	unit, err := factory(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit %s of type %s: %w", id, unitType, err)
	}
	return unit, nil
}

// RegisterUnitFactory registers or replaces the factory for a unit type.
func (r *DefaultUnitRegistry) RegisterUnitFactory(
	unitType string,
	factory ports.UnitFactory,
) error {
	if unitType == "" {
		return fmt.Errorf("unit type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[unitType] = factory
	return nil
}

// GetSupportedTypes returns the registered unit types in sorted order.
func (r *DefaultUnitRegistry) GetSupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.factories))
}

// SetLogger replaces the logger injected into units created afterwards.
func (r *DefaultUnitRegistry) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger = logger
}
