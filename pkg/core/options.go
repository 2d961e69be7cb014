package core

import "time"

// EventOption is a function type for configuring event submissions.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type EventOption func(*EventOptions)

// EventOptions contains configuration options for event submissions.
type EventOptions struct {
	// UserID identifies the user whose memory the event applies to.
	UserID string

	// Importance is a caller-supplied importance in [0, 1] contributing to
	// the significance score; nil means no importance factor.
	Importance *float64

	// Timestamp is the event time used for the recency factor; nil means
	// no recency factor.
	Timestamp *time.Time

	// Metadata contains additional metadata carried through to the result.
	Metadata map[string]interface{}
}

// WithUserID sets the user ID for an event submission.
//
// Example:
//
//	event, _ := client.SubmitEvent(ctx, "content", core.WithUserID("user_001"))
func WithUserID(userID string) EventOption {
	return func(opts *EventOptions) {
		opts.UserID = userID
	}
}

// WithImportance sets the caller-supplied importance for an event.
//
// Example:
//
//	event, _ := client.SubmitEvent(ctx, "content",
//	    core.WithUserID("user_001"),
//	    core.WithImportance(0.9),
//	)
func WithImportance(importance float64) EventOption {
	return func(opts *EventOptions) {
		opts.Importance = &importance
	}
}

// WithTimestamp sets the event time used for the recency factor.
func WithTimestamp(t time.Time) EventOption {
	return func(opts *EventOptions) {
		opts.Timestamp = &t
	}
}

// WithMetadata attaches metadata to an event; it is carried through to the
// ProcessedEvent unchanged.
func WithMetadata(metadata map[string]interface{}) EventOption {
	return func(opts *EventOptions) {
		opts.Metadata = metadata
	}
}

// IdentityOption is a function type for configuring identity encoding.
type IdentityOption func(*IdentityOptions)

// IdentityOptions contains configuration options for identity encoding.
type IdentityOptions struct {
	// PrivacyLevel is one of "high", "medium", "low"; empty defaults to
	// "medium".
	PrivacyLevel string

	// SensitiveFields names attributes whose values are hashed before
	// encoding; their plaintext never reaches the embedding provider.
	SensitiveFields []string
}

// WithPrivacyLevel sets the privacy level for an identity encoding.
//
// Example:
//
//	identity, _ := client.EncodeIdentity(ctx, "user_001", attrs,
//	    core.WithPrivacyLevel("high"),
//	)
func WithPrivacyLevel(level string) IdentityOption {
	return func(opts *IdentityOptions) {
		opts.PrivacyLevel = level
	}
}

// WithSensitiveFields marks attributes as sensitive PII: their values are
// replaced by salted cryptographic digests before the attribute bag is
// embedded.
//
// Example:
//
//	identity, _ := client.EncodeIdentity(ctx, "user_001", attrs,
//	    core.WithSensitiveFields("name", "email"),
//	)
func WithSensitiveFields(fields ...string) IdentityOption {
	return func(opts *IdentityOptions) {
		opts.SensitiveFields = fields
	}
}
