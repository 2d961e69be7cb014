package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"

	"github.com/evomem-labs/evomem-go/pkg/embedder"
	hashEmbedder "github.com/evomem-labs/evomem-go/pkg/embedder/hash"
	openaiEmbedder "github.com/evomem-labs/evomem-go/pkg/embedder/openai"
	"github.com/evomem-labs/evomem-go/pkg/memstate"
	"github.com/evomem-labs/evomem-go/pkg/privacy"
	"github.com/evomem-labs/evomem-go/pkg/significance"
	"github.com/evomem-labs/evomem-go/pkg/storage"
	memoryStore "github.com/evomem-labs/evomem-go/pkg/storage/memory"
	mysqlStore "github.com/evomem-labs/evomem-go/pkg/storage/mysql"
	postgresStore "github.com/evomem-labs/evomem-go/pkg/storage/postgres"
	sqliteStore "github.com/evomem-labs/evomem-go/pkg/storage/sqlite"
)

// Client is the main EvoMem client for adaptive memory management.
//
// It decides, per event, whether the event is significant enough to update
// the owning user's memory vector, evolves that vector with decay and
// bounded-magnitude updates, and separately produces privacy-preserving
// identity embeddings with (ε, δ) accounting.
//
// The client is thread-safe: operations for different users run in parallel,
// operations for the same user's memory or privacy ledger are serialized
// internally.
//
// Example usage:
//
//	config := core.DefaultConfig()
//	client, _ := core.NewClient(config)
//	defer client.Close()
//
//	event, _ := client.SubmitEvent(ctx, "User completed training module",
//	    core.WithUserID("user_001"),
//	)
type Client struct {
	// config contains the client configuration.
	config *Config

	// store is the state store for memory, threshold, and ledger records.
	store storage.StateStore

	// embedder is the embedding provider for vector generation.
	embedder embedder.Provider

	// scorer computes event significance.
	scorer *significance.Scorer

	// engine evolves per-user memory state.
	engine *memstate.Engine

	// encoder produces privacy-preserving identity embeddings.
	encoder *privacy.Encoder

	// snowflakeNode generates unique IDs for events.
	snowflakeNode *snowflake.Node
}

// NewClient creates a new EvoMem client.
//
// The client is initialized with:
//   - State store (in-memory, SQLite, PostgreSQL, or MySQL)
//   - Embedding provider (deterministic hash or OpenAI)
//   - Memory state engine, significance scorer, and privacy encoder
//
// Returns a new Client instance, or an error if the configuration is
// invalid or initialization fails.
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	provider, err := initEmbedder(cfg)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	engine := memstate.NewEngine(store, memstate.Config{
		Dimension:        cfg.Memory.Dimension,
		DecayFactor:      cfg.Memory.DecayFactor,
		BaseLearningRate: cfg.Memory.BaseLearningRate,
		GradientClipNorm: cfg.Memory.GradientClipNorm,
		InitialThreshold: cfg.Significance.InitialThreshold,
		ThresholdAlpha:   cfg.Significance.ThresholdAlpha,
	})

	encoder := privacy.NewEncoder(provider, store, privacy.Config{
		BaseEpsilon:   cfg.Privacy.BaseEpsilon,
		Delta:         cfg.Privacy.Delta,
		MaxEpsilon:    cfg.Privacy.MaxEpsilon,
		MaxDelta:      cfg.Privacy.MaxDelta,
		Sensitivity:   cfg.Privacy.Sensitivity,
		EnforceBudget: cfg.Privacy.EnforceBudget,
		BudgetLimit:   cfg.Privacy.BudgetLimit,
		PIISalt:       cfg.Privacy.PIISalt,
	})

	return &Client{
		config:        cfg,
		store:         store,
		embedder:      provider,
		scorer:        significance.NewScorer(significance.DefaultScorerConfig()),
		engine:        engine,
		encoder:       encoder,
		snowflakeNode: node,
	}, nil
}

// initStorage creates the configured state store backend.
func initStorage(cfg *Config) (storage.StateStore, error) {
	switch cfg.Storage.Provider {
	case "memory":
		return memoryStore.NewStore(), nil
	case "sqlite":
		return sqliteStore.NewClient(&sqliteStore.Config{
			DBPath: cfg.Storage.SQLitePath,
		})
	case "postgres":
		return postgresStore.NewClient(&postgresStore.Config{
			Host:      cfg.Storage.Host,
			Port:      cfg.Storage.Port,
			User:      cfg.Storage.User,
			Password:  cfg.Storage.Password,
			DBName:    cfg.Storage.DBName,
			SSLMode:   cfg.Storage.SSLMode,
			Dimension: cfg.Memory.Dimension,
		})
	case "mysql":
		return mysqlStore.NewClient(&mysqlStore.Config{
			Host:     cfg.Storage.Host,
			Port:     cfg.Storage.Port,
			User:     cfg.Storage.User,
			Password: cfg.Storage.Password,
			DBName:   cfg.Storage.DBName,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported storage provider: %s",
			ErrInvalidConfig, cfg.Storage.Provider)
	}
}

// initEmbedder creates the configured embedding provider.
func initEmbedder(cfg *Config) (embedder.Provider, error) {
	switch cfg.Embedder.Provider {
	case "hash":
		return hashEmbedder.New(cfg.Memory.Dimension), nil
	case "openai":
		return openaiEmbedder.NewClient(&openaiEmbedder.Config{
			APIKey:     cfg.Embedder.APIKey,
			Model:      cfg.Embedder.Model,
			BaseURL:    cfg.Embedder.BaseURL,
			Dimensions: cfg.Memory.Dimension,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported embedder provider: %s",
			ErrInvalidConfig, cfg.Embedder.Provider)
	}
}

// SubmitEvent processes one event against the owning user's memory.
//
// The method:
//  1. Embeds the content
//  2. Scores its significance (length, magnitude, importance, recency)
//  3. Compares the score against the user's adaptive threshold
//  4. Updates the memory vector when the score clears the threshold
//
// Parameters:
//   - ctx: Context for cancellation
//   - content: Event text, 5-10,000 characters
//   - opts: Optional parameters (UserID, Importance, Timestamp, Metadata)
//
// Returns the ProcessedEvent describing the outcome, or an error if the
// operation fails.
func (c *Client) SubmitEvent(ctx context.Context, content string, opts ...EventOption) (*ProcessedEvent, error) {
	event, err := c.processEvent(ctx, content, false, opts...)
	return event, NewMemoryError("SubmitEvent", err)
}

// ForceUpdate processes an event like SubmitEvent but bypasses the
// significance threshold: the memory vector is always updated.
func (c *Client) ForceUpdate(ctx context.Context, content string, opts ...EventOption) (*ProcessedEvent, error) {
	event, err := c.processEvent(ctx, content, true, opts...)
	return event, NewMemoryError("ForceUpdate", err)
}

func (c *Client) processEvent(ctx context.Context, content string, force bool, opts ...EventOption) (*ProcessedEvent, error) {
	options := &EventOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.UserID == "" {
		return nil, validationError(errors.New("user ID is required"))
	}

	emb, err := c.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	sig, err := c.scorer.Score(content, emb, significance.Input{
		Importance: options.Importance,
		Timestamp:  options.Timestamp,
	})
	if err != nil {
		return nil, validationError(err)
	}

	result, err := c.engine.Update(ctx, options.UserID, emb, sig, force)
	if err != nil {
		return nil, engineValidation(err)
	}

	return &ProcessedEvent{
		EventID:              c.snowflakeNode.Generate().String(),
		UserID:               options.UserID,
		Content:              content,
		Embedding:            emb,
		Significance:         result.Significance,
		Threshold:            result.Threshold,
		LearningTriggered:    result.LearningTriggered,
		StateChangeMagnitude: result.StateChangeMagnitude,
		Metadata:             options.Metadata,
		ProcessedAt:          result.State.LastUpdateAt,
	}, nil
}

// GetMemoryState returns a user's memory state, initializing it on first
// access. For a fixed stored state the result is deterministic.
func (c *Client) GetMemoryState(ctx context.Context, userID string) (*MemoryState, error) {
	state, err := c.engine.GetState(ctx, userID)
	if err != nil {
		return nil, NewMemoryError("GetMemoryState", err)
	}
	return toMemoryState(state), nil
}

// ResetMemory erases a user's memory state and adaptive threshold, so the
// user is treated as brand-new afterwards. The privacy ledger is never
// reset: accumulated privacy loss survives erasure.
func (c *Client) ResetMemory(ctx context.Context, userID string) error {
	return NewMemoryError("ResetMemory", c.engine.Reset(ctx, userID))
}

// GetLearningMetrics derives a user's learning metrics: event counts, the
// share of significant events, and the current adaptive threshold.
func (c *Client) GetLearningMetrics(ctx context.Context, userID string) (*LearningMetrics, error) {
	metrics, err := c.engine.LearningMetrics(ctx, userID)
	if err != nil {
		return nil, NewMemoryError("GetLearningMetrics", err)
	}
	return toLearningMetrics(userID, metrics), nil
}

// EncodeIdentity builds a privacy-preserving embedding of an identity
// attribute bag.
//
// Attribute values named by WithSensitiveFields are replaced with salted
// cryptographic digests first. The attributes are then embedded
// deterministically, perturbed with Laplace noise calibrated to the privacy
// level, and renormalized; the release is charged to the user's privacy
// ledger. Encoding the same attributes twice yields different embeddings by
// design.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: Owner of the identity
//   - attributes: Non-empty attribute bag (e.g. name, email domain, region)
//   - opts: Optional parameters (PrivacyLevel, SensitiveFields)
func (c *Client) EncodeIdentity(ctx context.Context, userID string, attributes map[string]string, opts ...IdentityOption) (*EncodedIdentity, error) {
	options := &IdentityOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if userID == "" {
		return nil, NewMemoryError("EncodeIdentity", validationError(errors.New("user ID is required")))
	}

	identity, err := c.encoder.Encode(ctx, userID, attributes, options.SensitiveFields, privacy.Level(options.PrivacyLevel))
	if err != nil {
		if errors.Is(err, privacy.ErrEmptyAttributes) || errors.Is(err, privacy.ErrUnknownPrivacyLevel) {
			err = validationError(err)
		}
		return nil, NewMemoryError("EncodeIdentity", err)
	}
	return toEncodedIdentity(identity), nil
}

// CompareIdentities computes the cosine similarity of two encoded identities
// and charges a privacy loss to each identity's owner.
//
// Fails with ErrDimensionMismatch when the embeddings differ in length.
func (c *Client) CompareIdentities(ctx context.Context, a, b *EncodedIdentity) (*ComparisonResult, error) {
	result, err := c.encoder.Compare(ctx, fromEncodedIdentity(a), fromEncodedIdentity(b))
	if err != nil {
		return nil, NewMemoryError("CompareIdentities", err)
	}
	return &ComparisonResult{
		Similarity:  result.Similarity,
		PrivacyLoss: result.PrivacyLoss,
	}, nil
}

// VerifyPrivacyGuarantees checks an identity's recorded (ε, δ) against the
// configured ceilings, returning a human-readable compliance message either
// way.
func (c *Client) VerifyPrivacyGuarantees(identity *EncodedIdentity) *VerificationResult {
	result := c.encoder.Verify(fromEncodedIdentity(identity))
	return &VerificationResult{Valid: result.Valid, Message: result.Message}
}

// GetPrivacyReport summarizes a user's accumulated privacy loss: recorded
// per-release epsilons, the advanced-composition total, and the remaining
// budget headroom.
func (c *Client) GetPrivacyReport(ctx context.Context, userID string) (*PrivacyReport, error) {
	report, err := c.encoder.GetReport(ctx, userID)
	if err != nil {
		return nil, NewMemoryError("GetPrivacyReport", err)
	}
	return toPrivacyReport(report), nil
}

// Close releases the client's resources: the state store connection and the
// embedding provider.
func (c *Client) Close() error {
	var errs []error
	if err := c.embedder.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return NewMemoryError("Close", errors.Join(errs...))
	}
	return nil
}
