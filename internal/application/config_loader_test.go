package application

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/majority/internal/domain"
	"github.com/ahrav/majority/internal/ports"
)

const validConfigYAML = `
version: "1.0.0"
scale:
  labels: [Bad, Ok, Good]
  colors: ["#d7191c", "#ffffbf", "#1a9641"]
threshold: 50
repair: true
verbose: false
workers: 4
`

func newLoader(t *testing.T) *ConfigLoader {
	t.Helper()
	loader, err := NewConfigLoader()
	require.NoError(t, err)
	return loader
}

func TestConfigLoader_LoadFromReader(t *testing.T) {
	loader := newLoader(t)

	cfg, err := loader.LoadFromReader(strings.NewReader(validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", cfg.Version)
	assert.Equal(t, []string{"Bad", "Ok", "Good"}, cfg.Scale.Labels)
	assert.Equal(t, "#1a9641", cfg.ColorFor("Good"))
	assert.Equal(t, 50.0, cfg.Threshold)
	assert.True(t, cfg.Repair)
	assert.Equal(t, 4, cfg.WorkerCount())

	scale, err := cfg.GradeScale()
	require.NoError(t, err)
	assert.Equal(t, 3, scale.Len())
}

func TestConfigLoader_Defaults(t *testing.T) {
	loader := newLoader(t)

	cfg, err := loader.LoadFromReader(strings.NewReader("workers: 2\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultGradeLabels, cfg.Scale.Labels)
	assert.Equal(t, 50.0, cfg.Threshold)
	assert.True(t, cfg.Repair)
	assert.Empty(t, cfg.ColorFor("Good"))

	empty, err := loader.LoadFromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultEngineConfig().Scale.Labels, empty.Scale.Labels)
}

func TestConfigLoader_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown field", yaml: "threshhold: 50\n"},
		{name: "zero threshold", yaml: "threshold: 0\n"},
		{name: "threshold above 100", yaml: "threshold: 101\n"},
		{name: "single label", yaml: "scale:\n  labels: [Only]\n"},
		{name: "duplicate labels", yaml: "scale:\n  labels: [Bad, Bad]\n"},
		{name: "blank label", yaml: "scale:\n  labels: [Bad, \"\"]\n"},
		{name: "padded label", yaml: "scale:\n  labels: [Bad, \" Good\"]\n"},
		{name: "color count mismatch", yaml: "scale:\n  labels: [Bad, Good]\n  colors: [red]\n"},
		{name: "negative workers", yaml: "workers: -1\n"},
		{name: "bad version", yaml: "version: one\n"},
		{name: "syntax error", yaml: "scale: [\n"},
		{name: "unknown unit type", yaml: "units:\n  - id: x\n    type: judge\n"},
		{name: "bad unit id", yaml: "units:\n  - id: \"-x\"\n    type: percentile_rank\n"},
		{
			name: "duplicate unit id",
			yaml: "units:\n  - id: rank\n    type: percentile_rank\n  - id: rank\n    type: share_table\n",
		},
		{
			name: "repair before rank",
			yaml: "units:\n  - id: repair\n    type: consistency_repair\n  - id: rank\n    type: percentile_rank\n",
		},
		{name: "no rank unit", yaml: "units:\n  - id: shares\n    type: share_table\n"},
		{
			name: "bad unit parameter",
			yaml: "units:\n  - id: rank\n    type: percentile_rank\n    parameters:\n      threshold: 0\n",
		},
		{
			name: "unknown unit parameter",
			yaml: "units:\n  - id: rank\n    type: percentile_rank\n    parameters:\n      median: true\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newLoader(t).LoadFromReader(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestConfigLoader_ValidationErrorsWrapSentinel(t *testing.T) {
	_, err := newLoader(t).LoadFromReader(strings.NewReader("threshold: 0\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestConfigLoader_CustomUnits(t *testing.T) {
	doc := `
threshold: 50
units:
  - id: rank
    type: percentile_rank
  - id: fix
    type: consistency_repair
    parameters:
      max_swaps: 100
  - id: shares
    type: share_table
`
	cfg, err := newLoader(t).LoadFromReader(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, cfg.Units, 3)
	assert.Equal(t, "fix", cfg.Units[1].ID)
}

func TestConfigLoader_Cache(t *testing.T) {
	loader := newLoader(t)

	_, err := loader.LoadFromReader(strings.NewReader("threshold: 50\nworkers: 2\n"))
	require.NoError(t, err)
	_, err = loader.LoadFromReader(strings.NewReader("workers:   2\nthreshold: 50\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, loader.CacheSize(), "formatting and key order should not affect the cache key")

	_, err = loader.LoadFromReader(strings.NewReader("workers: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, loader.CacheSize())

	_, err = loader.LoadFromReader(strings.NewReader("threshold: 0\n"))
	require.Error(t, err)
	assert.Equal(t, 2, loader.CacheSize(), "invalid configurations are not cached")

	loader.ClearCache()
	assert.Zero(t, loader.CacheSize())
}

func TestConfigLoader_ReturnsCopies(t *testing.T) {
	loader := newLoader(t)

	first, err := loader.LoadFromReader(strings.NewReader(validConfigYAML))
	require.NoError(t, err)
	first.Scale.Labels[0] = "Changed"

	second, err := loader.LoadFromReader(strings.NewReader(validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, "Bad", second.Scale.Labels[0])
}

func TestConfigLoader_Concurrent(t *testing.T) {
	loader := newLoader(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := loader.LoadFromReader(strings.NewReader(validConfigYAML))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, loader.CacheSize())
}

func TestConfigLoader_LoadFromFile(t *testing.T) {
	loader := newLoader(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "majority.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validConfigYAML), 0o600))

	cfg, err := loader.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)

	_, err = loader.LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ports.ErrConfigNotFound)

	var cfgErr *ports.ConfigError
	assert.ErrorAs(t, err, &cfgErr)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("threshold: 0\n"), 0o600))
	_, err = loader.LoadFromFile(bad)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, bad, cfgErr.ConfigKey)
}

func FuzzConfigLoader_LoadFromReader(f *testing.F) {
	f.Add(validConfigYAML)
	f.Add("threshold: 100\nrepair: false\n")
	f.Add("scale:\n  labels: [a, b]\n  colors: [x, y]\n")
	f.Add("units:\n  - id: r\n    type: percentile_rank\n    parameters: {threshold: 30}\n")
	f.Add("scale: [\n")
	f.Add("")

	loader, err := NewConfigLoader()
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, doc string) {
		cfg, err := loader.LoadFromReader(strings.NewReader(doc))
		if err != nil {
			return
		}
		if cfg.Threshold <= 0 || cfg.Threshold > 100 {
			t.Fatalf("accepted threshold %v", cfg.Threshold)
		}
		if _, err := cfg.GradeScale(); err != nil {
			t.Fatalf("accepted invalid scale: %v", err)
		}
	})
}
