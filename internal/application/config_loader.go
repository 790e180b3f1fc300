package application

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/majority/infrastructure/units"
	"github.com/ahrav/majority/internal/domain"
	"github.com/ahrav/majority/internal/ports"
)

// ConfigLoader parses, validates, and caches engine configurations.
// Identical documents are validated once: results are indexed by the
// SHA256 of the normalized configuration and concurrent loads of the same
// document share one validation.
type ConfigLoader struct {
	validator *validator.Validate
	cache     map[string]EngineConfig
	cacheMu   sync.RWMutex
	sf        singleflight.Group
}

// NewConfigLoader creates a loader with the engine's custom validators
// registered.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New()
	if err := RegisterEngineValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &ConfigLoader{
		validator: v,
		cache:     make(map[string]EngineConfig),
	}, nil
}

// LoadFromFile loads a configuration from a YAML file.
func (cl *ConfigLoader) LoadFromFile(path string) (EngineConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return EngineConfig{}, ports.NewConfigError(path, fmt.Errorf("%w: %w", ports.ErrConfigNotFound, err))
		}
		return EngineConfig{}, fmt.Errorf("failed to read file: %w", err)
	}

	cfg, err := cl.load(data)
	if err != nil {
		return EngineConfig{}, ports.NewConfigError(path, err)
	}
	return cfg, nil
}

// LoadFromReader loads a configuration from r.
func (cl *ConfigLoader) LoadFromReader(r io.Reader) (EngineConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("failed to read data: %w", err)
	}
	return cl.load(data)
}

// Validate checks a configuration built in code with the same rules applied
// to loaded files.
func (cl *ConfigLoader) Validate(cfg EngineConfig) error {
	if err := cl.validator.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	if err := validateSemantics(cfg); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	return nil
}

func (cl *ConfigLoader) load(data []byte) (EngineConfig, error) {
	cfg, err := parseYAML(data)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	hash, err := configHash(cfg)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := cl.sf.Do(hash, func() (any, error) {
		if cached, ok := cl.cached(hash); ok {
			return cached, nil
		}
		if err := cl.Validate(cfg); err != nil {
			return nil, err
		}
		cl.store(hash, cfg)
		return cfg, nil
	})
	if err != nil {
		return EngineConfig{}, err
	}
	return cloneConfig(v.(EngineConfig)), nil
}

// parseYAML decodes data over DefaultEngineConfig, so omitted fields keep
// their defaults. Unknown fields are rejected.
func parseYAML(data []byte) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return EngineConfig{}, fmt.Errorf("YAML decode failed: %w", err)
	}
	return cfg, nil
}

// validateSemantics applies the rules struct tags cannot express: unit IDs
// are unique, parameters match their unit type, and a custom chain ranks
// before it repairs.
func validateSemantics(cfg EngineConfig) error {
	if _, err := cfg.GradeScale(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(cfg.Units))
	ranked := false
	for _, u := range cfg.Units {
		if _, dup := seen[u.ID]; dup {
			return fmt.Errorf("duplicate unit ID %q", u.ID)
		}
		seen[u.ID] = struct{}{}

		if err := ValidateUnitParameters(u.Type, u.Parameters); err != nil {
			return fmt.Errorf("unit %s parameter validation failed: %w", u.ID, err)
		}

		switch u.Type {
		case units.TypePercentileRank:
			ranked = true
		case units.TypeConsistencyRepair:
			if !ranked {
				return fmt.Errorf("unit %s: consistency_repair must follow a percentile_rank unit", u.ID)
			}
		}
	}
	if len(cfg.Units) > 0 && !ranked {
		return fmt.Errorf("unit chain has no percentile_rank unit")
	}
	return nil
}

// configHash hashes the re-encoded configuration so formatting and key
// order do not affect cache hits.
func configHash(cfg EngineConfig) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}
	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:]), nil
}

func (cl *ConfigLoader) cached(hash string) (EngineConfig, bool) {
	cl.cacheMu.RLock()
	defer cl.cacheMu.RUnlock()

	cfg, ok := cl.cache[hash]
	return cfg, ok
}

func (cl *ConfigLoader) store(hash string, cfg EngineConfig) {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()

	cl.cache[hash] = cfg
}

// CacheSize reports the number of cached configurations.
func (cl *ConfigLoader) CacheSize() int {
	cl.cacheMu.RLock()
	defer cl.cacheMu.RUnlock()

	return len(cl.cache)
}

// ClearCache drops every cached configuration.
func (cl *ConfigLoader) ClearCache() {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()

	cl.cache = make(map[string]EngineConfig)
}

// cloneConfig copies the slices of cfg so callers cannot alter cached
// entries.
func cloneConfig(cfg EngineConfig) EngineConfig {
	out := cfg
	out.Scale.Labels = append([]string(nil), cfg.Scale.Labels...)
	if cfg.Scale.Colors != nil {
		out.Scale.Colors = append([]string(nil), cfg.Scale.Colors...)
	}
	if cfg.Units != nil {
		out.Units = append([]UnitConfig(nil), cfg.Units...)
	}
	return out
}
