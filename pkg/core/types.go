package core

import (
	"time"
)

// MemoryState is a snapshot of a user's evolved memory vector.
type MemoryState struct {
	// UserID identifies the owner of this state.
	UserID string `json:"user_id"`

	// Dimension is the vector length.
	Dimension int `json:"dimension"`

	// Vector is the unit-normalized memory vector.
	Vector []float64 `json:"vector"`

	// EventCount is the total number of processed events.
	EventCount int64 `json:"event_count"`

	// SignificantEventCount is the number of events that triggered learning.
	SignificantEventCount int64 `json:"significant_event_count"`

	// LastUpdateAt is when the state last changed.
	LastUpdateAt time.Time `json:"last_update_at"`

	// CreatedAt is when the user's state was first initialized.
	CreatedAt time.Time `json:"created_at"`
}

// ProcessedEvent is the outcome of submitting one event.
type ProcessedEvent struct {
	// EventID uniquely identifies this submission.
	EventID string `json:"event_id"`

	// UserID is the owner of the memory the event was applied to.
	UserID string `json:"user_id"`

	// Content is the submitted event text.
	Content string `json:"content"`

	// Embedding is the unit-normalized vector the content was embedded to.
	Embedding []float64 `json:"embedding,omitempty"`

	// Significance is the computed score in [0, 1].
	Significance float64 `json:"significance"`

	// Threshold is the adaptive threshold the score was compared against.
	Threshold float64 `json:"threshold"`

	// LearningTriggered reports whether the memory vector was blended.
	LearningTriggered bool `json:"learning_triggered"`

	// StateChangeMagnitude is the Euclidean size of the applied update
	// step; zero when learning was not triggered.
	StateChangeMagnitude float64 `json:"state_change_magnitude"`

	// Metadata carries caller-supplied metadata through unchanged.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// ProcessedAt is when the event was applied.
	ProcessedAt time.Time `json:"processed_at"`
}

// LearningMetrics summarizes a user's learning activity.
type LearningMetrics struct {
	// UserID identifies the user the metrics describe.
	UserID string `json:"user_id"`

	// EventCount is the total number of processed events.
	EventCount int64 `json:"event_count"`

	// SignificantEventCount is the number of events that triggered learning.
	SignificantEventCount int64 `json:"significant_event_count"`

	// AvgSignificance is SignificantEventCount/EventCount, 0 when no
	// events have been processed.
	AvgSignificance float64 `json:"avg_significance"`

	// Threshold is the user's current adaptive threshold.
	Threshold float64 `json:"threshold"`

	// LastUpdateAt is when the state last changed; zero for unknown users.
	LastUpdateAt time.Time `json:"last_update_at"`
}

// EncodedIdentity is a privacy-preserving identity embedding.
//
// DataFields carries only the names of the source attributes, never their
// values.
type EncodedIdentity struct {
	IdentityID   string    `json:"identity_id"`
	UserID       string    `json:"user_id"`
	Embedding    []float64 `json:"embedding"`
	Epsilon      float64   `json:"epsilon"`
	Delta        float64   `json:"delta"`
	PrivacyLevel string    `json:"privacy_level"`
	NoiseScale   float64   `json:"noise_scale"`
	DataFields   []string  `json:"data_fields"`
	CreatedAt    time.Time `json:"created_at"`
}

// ComparisonResult is the outcome of comparing two encoded identities.
type ComparisonResult struct {
	// Similarity is the cosine similarity of the two noised embeddings.
	Similarity float64 `json:"similarity"`

	// PrivacyLoss is the epsilon charged to each identity's owner.
	PrivacyLoss float64 `json:"privacy_loss"`
}

// VerificationResult is the outcome of a privacy compliance check.
type VerificationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// PrivacyReport summarizes a user's accumulated privacy loss.
type PrivacyReport struct {
	UserID          string    `json:"user_id"`
	OperationCount  int       `json:"operation_count"`
	Epsilons        []float64 `json:"epsilons"`
	TotalLoss       float64   `json:"total_loss"`
	Delta           float64   `json:"delta"`
	BudgetLimit     float64   `json:"budget_limit"`
	RemainingBudget float64   `json:"remaining_budget"`
	Enforced        bool      `json:"enforced"`
}

// EventInput is one item of a BatchProcessEvents call.
type EventInput struct {
	// Content is the event text.
	Content string

	// Options configure the submission (user, importance, timestamp).
	Options []EventOption
}

// EventResult is one item of a BatchProcessEvents result; Error is set when
// the item failed and Event is nil.
type EventResult struct {
	Event *ProcessedEvent
	Error error
}

// IdentityInput is one item of a BatchEncodeIdentities call.
type IdentityInput struct {
	// UserID is the owner of the identity.
	UserID string

	// Attributes is the identity attribute bag.
	Attributes map[string]string

	// Options configure the encoding (privacy level).
	Options []IdentityOption
}

// IdentityResult is one item of a BatchEncodeIdentities result; Error is set
// when the item failed and Identity is nil.
type IdentityResult struct {
	Identity *EncodedIdentity
	Error    error
}
