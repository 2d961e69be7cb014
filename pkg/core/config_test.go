package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evomem-labs/evomem-go/pkg/core"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, core.DefaultConfig().Validate())
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*core.Config)
	}{
		{"zero dimension", func(c *core.Config) { c.Memory.Dimension = 0 }},
		{"negative dimension", func(c *core.Config) { c.Memory.Dimension = -1 }},
		{"zero decay factor", func(c *core.Config) { c.Memory.DecayFactor = 0 }},
		{"decay factor above one", func(c *core.Config) { c.Memory.DecayFactor = 1.5 }},
		{"zero learning rate", func(c *core.Config) { c.Memory.BaseLearningRate = 0 }},
		{"zero clip norm", func(c *core.Config) { c.Memory.GradientClipNorm = 0 }},
		{"threshold above one", func(c *core.Config) { c.Significance.InitialThreshold = 1.1 }},
		{"zero threshold alpha", func(c *core.Config) { c.Significance.ThresholdAlpha = 0 }},
		{"zero base epsilon", func(c *core.Config) { c.Privacy.BaseEpsilon = 0 }},
		{"delta of one", func(c *core.Config) { c.Privacy.Delta = 1.0 }},
		{"zero delta", func(c *core.Config) { c.Privacy.Delta = 0 }},
		{"zero max epsilon", func(c *core.Config) { c.Privacy.MaxEpsilon = 0 }},
		{"missing embedder provider", func(c *core.Config) { c.Embedder.Provider = "" }},
		{"missing storage provider", func(c *core.Config) { c.Storage.Provider = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := core.DefaultConfig()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), core.ErrInvalidConfig)
		})
	}
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"memory": {
			"dimension": 64,
			"decay_factor": 0.95,
			"base_learning_rate": 0.2,
			"gradient_clip_norm": 2.0
		},
		"storage": {"provider": "sqlite", "sqlite_path": "./test.db"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := core.LoadConfigFromJSON(path)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Memory.Dimension)
	assert.Equal(t, 0.95, cfg.Memory.DecayFactor)
	assert.Equal(t, "sqlite", cfg.Storage.Provider)
	assert.Equal(t, "./test.db", cfg.Storage.SQLitePath)

	// Unspecified sections keep their defaults.
	assert.Equal(t, 0.5, cfg.Significance.InitialThreshold)
	assert.Equal(t, "hash", cfg.Embedder.Provider)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromJSONMissingFile(t *testing.T) {
	_, err := core.LoadConfigFromJSON("/nonexistent/config.json")
	assert.Error(t, err)

	var memErr *core.MemoryError
	assert.ErrorAs(t, err, &memErr)
	assert.Equal(t, "LoadConfigFromJSON", memErr.Op)
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
memory:
  dimension: 128
  decay_factor: 0.9
significance:
  initial_threshold: 0.6
  threshold_alpha: 0.2
privacy:
  base_epsilon: 2.0
  enforce_budget: true
  budget_limit: 20.0
embedder:
  provider: hash
storage:
  provider: memory
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := core.LoadConfigFromYAML(path)
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.Memory.Dimension)
	assert.Equal(t, 0.9, cfg.Memory.DecayFactor)
	assert.Equal(t, 0.6, cfg.Significance.InitialThreshold)
	assert.Equal(t, 2.0, cfg.Privacy.BaseEpsilon)
	assert.True(t, cfg.Privacy.EnforceBudget)
	assert.Equal(t, 20.0, cfg.Privacy.BudgetLimit)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("EVOMEM_DIMENSION", "32")
	t.Setenv("EVOMEM_DECAY_FACTOR", "0.9")
	t.Setenv("EVOMEM_BASE_EPSILON", "3.5")
	t.Setenv("STORAGE_PROVIDER", "memory")
	t.Setenv("EMBEDDING_PROVIDER", "hash")

	cfg, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.Memory.Dimension)
	assert.Equal(t, 0.9, cfg.Memory.DecayFactor)
	assert.Equal(t, 3.5, cfg.Privacy.BaseEpsilon)
	assert.Equal(t, "memory", cfg.Storage.Provider)
	assert.Equal(t, "hash", cfg.Embedder.Provider)
}

func TestLoadConfigFromEnvSQLiteDefaults(t *testing.T) {
	t.Setenv("STORAGE_PROVIDER", "sqlite")

	cfg, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Provider)
	assert.Equal(t, "./evomem.db", cfg.Storage.SQLitePath)
}

func TestMemoryErrorFormat(t *testing.T) {
	err := core.NewMemoryError("SubmitEvent", core.ErrValidation)
	assert.Equal(t, "evomem: SubmitEvent: invalid input", err.Error())
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestNewMemoryErrorNil(t *testing.T) {
	assert.NoError(t, core.NewMemoryError("Op", nil))
}
