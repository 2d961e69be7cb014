package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config contains the complete configuration for an EvoMem client.
//
// It includes settings for:
//   - Memory state evolution (dimension, decay, learning rate, clipping)
//   - Significance scoring and the adaptive threshold
//   - The privacy encoder ((ε, δ) parameters and ceilings)
//   - Embedding provider
//   - State storage backend
//
// Example:
//
//	config := core.DefaultConfig()
//	config.Storage = core.StorageConfig{
//	    Provider: "sqlite",
//	    SQLitePath: "./evomem.db",
//	}
//	client, _ := core.NewClient(config)
type Config struct {
	// Memory contains memory state engine parameters.
	Memory MemoryConfig `json:"memory" yaml:"memory"`

	// Significance contains scoring and adaptive-threshold parameters.
	Significance SignificanceConfig `json:"significance" yaml:"significance"`

	// Privacy contains identity encoder parameters.
	Privacy PrivacyConfig `json:"privacy" yaml:"privacy"`

	// Embedder contains embedding provider configuration.
	Embedder EmbedderConfig `json:"embedder" yaml:"embedder"`

	// Storage contains state storage configuration.
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// MemoryConfig contains the numeric parameters of memory state evolution.
type MemoryConfig struct {
	// Dimension is the embedding and memory vector length. Must be > 0.
	Dimension int `json:"dimension" yaml:"dimension"`

	// DecayFactor is the per-day exponential decay base, in (0, 1].
	DecayFactor float64 `json:"decay_factor" yaml:"decay_factor"`

	// BaseLearningRate scales memory updates; the effective rate is
	// BaseLearningRate * significance. Must be in (0, 1].
	BaseLearningRate float64 `json:"base_learning_rate" yaml:"base_learning_rate"`

	// GradientClipNorm caps the Euclidean magnitude of a single update
	// step. Must be > 0.
	GradientClipNorm float64 `json:"gradient_clip_norm" yaml:"gradient_clip_norm"`
}

// SignificanceConfig contains scoring and threshold parameters.
type SignificanceConfig struct {
	// InitialThreshold is the starting adaptive threshold θ₀, in [0, 1].
	InitialThreshold float64 `json:"initial_threshold" yaml:"initial_threshold"`

	// ThresholdAlpha is the exponential smoothing rate, in (0, 1].
	ThresholdAlpha float64 `json:"threshold_alpha" yaml:"threshold_alpha"`
}

// PrivacyConfig contains identity encoder parameters.
type PrivacyConfig struct {
	// BaseEpsilon is the per-release epsilon at the medium privacy level.
	// Must be > 0.
	BaseEpsilon float64 `json:"base_epsilon" yaml:"base_epsilon"`

	// Delta is the (ε, δ) failure probability, in (0, 1).
	Delta float64 `json:"delta" yaml:"delta"`

	// MaxEpsilon and MaxDelta are the compliance ceilings checked by
	// VerifyPrivacyGuarantees. Must be > 0.
	MaxEpsilon float64 `json:"max_epsilon" yaml:"max_epsilon"`
	MaxDelta   float64 `json:"max_delta" yaml:"max_delta"`

	// Sensitivity is the query sensitivity the Laplace scale is calibrated
	// to; defaults to 1.0 when unset.
	Sensitivity float64 `json:"sensitivity,omitempty" yaml:"sensitivity,omitempty"`

	// EnforceBudget rejects encodes and comparisons once a user's
	// accumulated loss would exceed BudgetLimit. Tracking is otherwise
	// advisory.
	EnforceBudget bool `json:"enforce_budget,omitempty" yaml:"enforce_budget,omitempty"`

	// BudgetLimit is the cumulative-loss ceiling; defaults to MaxEpsilon.
	BudgetLimit float64 `json:"budget_limit,omitempty" yaml:"budget_limit,omitempty"`

	// PIISalt is the salt for hashing sensitive attribute values; a
	// built-in default is used when unset.
	PIISalt string `json:"pii_salt,omitempty" yaml:"pii_salt,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
//
// Supported providers: hash (deterministic, no network), openai.
type EmbedderConfig struct {
	// Provider is the embedding provider name (hash, openai).
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the embedding provider (openai only).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the embedding model name (openai only).
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// BaseURL is the base URL for the API (optional).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// StorageConfig contains configuration for the state storage backend.
//
// Supported providers: memory, sqlite, postgres, mysql.
type StorageConfig struct {
	// Provider is the storage backend name (memory, sqlite, postgres, mysql).
	Provider string `json:"provider" yaml:"provider"`

	// SQLitePath is the database file path (sqlite only).
	SQLitePath string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`

	// Connection settings (postgres and mysql).
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DBName   string `json:"db_name,omitempty" yaml:"db_name,omitempty"`

	// SSLMode is the connection SSL mode (postgres only).
	SSLMode string `json:"ssl_mode,omitempty" yaml:"ssl_mode,omitempty"`
}

// DefaultConfig returns a configuration with the standard parameters: an
// in-process deterministic embedder and in-memory storage, so a client works
// with no external services.
func DefaultConfig() *Config {
	return &Config{
		Memory: MemoryConfig{
			Dimension:        256,
			DecayFactor:      0.99,
			BaseLearningRate: 0.1,
			GradientClipNorm: 1.0,
		},
		Significance: SignificanceConfig{
			InitialThreshold: 0.5,
			ThresholdAlpha:   0.1,
		},
		Privacy: PrivacyConfig{
			BaseEpsilon: 1.0,
			Delta:       1e-5,
			MaxEpsilon:  10.0,
			MaxDelta:    1e-4,
			Sensitivity: 1.0,
		},
		Embedder: EmbedderConfig{
			Provider: "hash",
		},
		Storage: StorageConfig{
			Provider: "memory",
		},
	}
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables on top of DefaultConfig
//
// Supported environment variables:
//   - EVOMEM_DIMENSION, EVOMEM_DECAY_FACTOR, EVOMEM_BASE_LEARNING_RATE,
//     EVOMEM_GRADIENT_CLIP_NORM
//   - EVOMEM_INITIAL_THRESHOLD, EVOMEM_THRESHOLD_ALPHA
//   - EVOMEM_BASE_EPSILON, EVOMEM_DELTA, EVOMEM_MAX_EPSILON,
//     EVOMEM_MAX_DELTA, EVOMEM_ENFORCE_BUDGET, EVOMEM_BUDGET_LIMIT
//   - EMBEDDING_PROVIDER, EMBEDDING_API_KEY, EMBEDDING_MODEL,
//     EMBEDDING_BASE_URL
//   - STORAGE_PROVIDER (memory, sqlite, postgres, mysql)
//   - SQLITE_PATH
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_SSLMODE
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnv() (*Config, error) {
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()

	cfg.Memory.Dimension = getEnvInt("EVOMEM_DIMENSION", cfg.Memory.Dimension)
	cfg.Memory.DecayFactor = getEnvFloat("EVOMEM_DECAY_FACTOR", cfg.Memory.DecayFactor)
	cfg.Memory.BaseLearningRate = getEnvFloat("EVOMEM_BASE_LEARNING_RATE", cfg.Memory.BaseLearningRate)
	cfg.Memory.GradientClipNorm = getEnvFloat("EVOMEM_GRADIENT_CLIP_NORM", cfg.Memory.GradientClipNorm)

	cfg.Significance.InitialThreshold = getEnvFloat("EVOMEM_INITIAL_THRESHOLD", cfg.Significance.InitialThreshold)
	cfg.Significance.ThresholdAlpha = getEnvFloat("EVOMEM_THRESHOLD_ALPHA", cfg.Significance.ThresholdAlpha)

	cfg.Privacy.BaseEpsilon = getEnvFloat("EVOMEM_BASE_EPSILON", cfg.Privacy.BaseEpsilon)
	cfg.Privacy.Delta = getEnvFloat("EVOMEM_DELTA", cfg.Privacy.Delta)
	cfg.Privacy.MaxEpsilon = getEnvFloat("EVOMEM_MAX_EPSILON", cfg.Privacy.MaxEpsilon)
	cfg.Privacy.MaxDelta = getEnvFloat("EVOMEM_MAX_DELTA", cfg.Privacy.MaxDelta)
	cfg.Privacy.BudgetLimit = getEnvFloat("EVOMEM_BUDGET_LIMIT", cfg.Privacy.BudgetLimit)
	cfg.Privacy.PIISalt = getEnvOrDefault("EVOMEM_PII_SALT", cfg.Privacy.PIISalt)
	if v := os.Getenv("EVOMEM_ENFORCE_BUDGET"); v != "" {
		cfg.Privacy.EnforceBudget, _ = strconv.ParseBool(v)
	}

	cfg.Embedder.Provider = getEnvOrDefault("EMBEDDING_PROVIDER", cfg.Embedder.Provider)
	cfg.Embedder.APIKey = os.Getenv("EMBEDDING_API_KEY")
	cfg.Embedder.Model = os.Getenv("EMBEDDING_MODEL")
	cfg.Embedder.BaseURL = os.Getenv("EMBEDDING_BASE_URL")

	provider := getEnvOrDefault("STORAGE_PROVIDER", cfg.Storage.Provider)
	cfg.Storage.Provider = provider

	switch provider {
	case "sqlite":
		cfg.Storage.SQLitePath = getEnvOrDefault("SQLITE_PATH", "./evomem.db")
	case "postgres":
		cfg.Storage.Host = getEnvOrDefault("POSTGRES_HOST", "localhost")
		cfg.Storage.Port = getEnvInt("POSTGRES_PORT", 5432)
		cfg.Storage.User = getEnvOrDefault("POSTGRES_USER", "postgres")
		cfg.Storage.Password = os.Getenv("POSTGRES_PASSWORD")
		cfg.Storage.DBName = getEnvOrDefault("POSTGRES_DATABASE", "evomem")
		cfg.Storage.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", "disable")
	case "mysql":
		cfg.Storage.Host = getEnvOrDefault("MYSQL_HOST", "127.0.0.1")
		cfg.Storage.Port = getEnvInt("MYSQL_PORT", 3306)
		cfg.Storage.User = getEnvOrDefault("MYSQL_USER", "root")
		cfg.Storage.Password = os.Getenv("MYSQL_PASSWORD")
		cfg.Storage.DBName = getEnvOrDefault("MYSQL_DATABASE", "evomem")
	}

	return cfg, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return config, nil
}

// LoadConfigFromYAML loads configuration from a YAML file.
func LoadConfigFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromYAML", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, NewMemoryError("LoadConfigFromYAML", err)
	}

	return config, nil
}

// Validate validates the configuration against the documented ranges.
//
// Returns an error wrapping ErrInvalidConfig naming the first offending
// field, nil otherwise.
func (c *Config) Validate() error {
	checks := []struct {
		ok  bool
		msg string
	}{
		{c.Memory.Dimension > 0,
			fmt.Sprintf("dimension must be > 0, got %d", c.Memory.Dimension)},
		{c.Memory.DecayFactor > 0 && c.Memory.DecayFactor <= 1,
			fmt.Sprintf("decay_factor must be in (0, 1], got %v", c.Memory.DecayFactor)},
		{c.Memory.BaseLearningRate > 0 && c.Memory.BaseLearningRate <= 1,
			fmt.Sprintf("base_learning_rate must be in (0, 1], got %v", c.Memory.BaseLearningRate)},
		{c.Memory.GradientClipNorm > 0,
			fmt.Sprintf("gradient_clip_norm must be > 0, got %v", c.Memory.GradientClipNorm)},
		{c.Significance.InitialThreshold >= 0 && c.Significance.InitialThreshold <= 1,
			fmt.Sprintf("initial_threshold must be in [0, 1], got %v", c.Significance.InitialThreshold)},
		{c.Significance.ThresholdAlpha > 0 && c.Significance.ThresholdAlpha <= 1,
			fmt.Sprintf("threshold_alpha must be in (0, 1], got %v", c.Significance.ThresholdAlpha)},
		{c.Privacy.BaseEpsilon > 0,
			fmt.Sprintf("base_epsilon must be > 0, got %v", c.Privacy.BaseEpsilon)},
		{c.Privacy.Delta > 0 && c.Privacy.Delta < 1,
			fmt.Sprintf("delta must be in (0, 1), got %v", c.Privacy.Delta)},
		{c.Privacy.MaxEpsilon > 0,
			fmt.Sprintf("max_epsilon must be > 0, got %v", c.Privacy.MaxEpsilon)},
		{c.Privacy.MaxDelta > 0,
			fmt.Sprintf("max_delta must be > 0, got %v", c.Privacy.MaxDelta)},
		{c.Embedder.Provider != "",
			"embedder provider must be specified"},
		{c.Storage.Provider != "",
			"storage provider must be specified"},
	}

	for _, check := range checks {
		if !check.ok {
			return NewMemoryError("Validate", fmt.Errorf("%w: %s", ErrInvalidConfig, check.msg))
		}
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses an integer environment variable, falling back on the
// default for missing or malformed values.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat parses a float environment variable, falling back on the
// default for missing or malformed values.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
