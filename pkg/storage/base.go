// Package storage provides interfaces and types for per-user state storage.
//
// It defines the StateStore interface that all storage implementations must
// satisfy, along with the three per-user state records: the memory state
// vector, the adaptive significance threshold, and the privacy ledger.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates that a requested per-user record does not exist.
var ErrNotFound = errors.New("state record not found")

// MemoryState is the persistent memory vector record for a single user.
//
// This type is defined in the storage package to avoid circular dependencies
// with the core package. Invariants maintained by the memory state engine:
// the vector stays unit-normalized after every mutation, and
// SignificantEventCount never exceeds EventCount.
type MemoryState struct {
	// UserID identifies the owner of this state.
	UserID string

	// Dimension is the fixed vector length.
	Dimension int

	// Vector is the unit-normalized memory vector.
	Vector []float64

	// LastUpdateAt is when the vector was last decayed or blended.
	LastUpdateAt time.Time

	// EventCount is the total number of events processed for this user.
	EventCount int64

	// SignificantEventCount is the number of events that triggered learning.
	SignificantEventCount int64

	// CreatedAt is when the state was first created.
	CreatedAt time.Time
}

// ThresholdState is the persistent adaptive threshold record for a user.
type ThresholdState struct {
	// UserID identifies the owner of this threshold.
	UserID string

	// Theta is the current significance threshold in [0, 1].
	Theta float64

	// UpdatedAt is when the threshold was last smoothed.
	UpdatedAt time.Time
}

// LedgerState is the persistent privacy ledger for a user.
//
// The ledger is append-only: epsilons are only ever added, never removed or
// reset, so the aggregate privacy loss is monotonically non-decreasing.
type LedgerState struct {
	// UserID identifies the owner of this ledger.
	UserID string

	// Epsilons are the per-operation privacy charges in recording order.
	Epsilons []float64
}

// StateStore defines the interface for per-user state persistence.
//
// All implementations (in-memory, SQLite, PostgreSQL, MySQL) must satisfy
// this interface. Load methods return ErrNotFound for absent records; Save
// methods upsert. Operations for a single user are totally ordered by the
// caller (the engines hold a per-user lock around read-modify-write cycles).
type StateStore interface {
	// LoadMemoryState loads a user's memory state, or ErrNotFound.
	LoadMemoryState(ctx context.Context, userID string) (*MemoryState, error)

	// SaveMemoryState inserts or replaces a user's memory state.
	SaveMemoryState(ctx context.Context, state *MemoryState) error

	// DeleteMemoryState removes a user's memory state. Deleting an absent
	// state is not an error.
	DeleteMemoryState(ctx context.Context, userID string) error

	// LoadThreshold loads a user's adaptive threshold, or ErrNotFound.
	LoadThreshold(ctx context.Context, userID string) (*ThresholdState, error)

	// SaveThreshold inserts or replaces a user's adaptive threshold.
	SaveThreshold(ctx context.Context, state *ThresholdState) error

	// DeleteThreshold removes a user's adaptive threshold.
	DeleteThreshold(ctx context.Context, userID string) error

	// LoadLedger loads a user's privacy ledger. Absent ledgers return an
	// empty ledger rather than ErrNotFound: a user with no recorded
	// operations has zero accumulated loss.
	LoadLedger(ctx context.Context, userID string) (*LedgerState, error)

	// AppendLedger appends privacy charges to a user's ledger.
	AppendLedger(ctx context.Context, userID string, epsilons ...float64) error

	// Close closes the store and releases resources.
	Close() error
}
