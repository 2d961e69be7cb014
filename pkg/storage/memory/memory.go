// Package memory provides an in-memory StateStore implementation.
//
// State lives in process-local maps guarded by a read-write mutex. It is the
// default backend for tests and single-process deployments; nothing survives
// a restart.
package memory

import (
	"context"
	"sync"

	"github.com/evomem-labs/evomem-go/pkg/storage"
)

// Store implements storage.StateStore backed by in-process maps.
type Store struct {
	mu         sync.RWMutex
	states     map[string]*storage.MemoryState
	thresholds map[string]*storage.ThresholdState
	ledgers    map[string][]float64
}

// NewStore creates an empty in-memory state store.
func NewStore() *Store {
	return &Store{
		states:     make(map[string]*storage.MemoryState),
		thresholds: make(map[string]*storage.ThresholdState),
		ledgers:    make(map[string][]float64),
	}
}

// LoadMemoryState returns a copy of the user's memory state.
func (s *Store) LoadMemoryState(ctx context.Context, userID string) (*storage.MemoryState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyState(state), nil
}

// SaveMemoryState stores a copy of the given memory state.
func (s *Store) SaveMemoryState(ctx context.Context, state *storage.MemoryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state.UserID] = copyState(state)
	return nil
}

// DeleteMemoryState removes the user's memory state if present.
func (s *Store) DeleteMemoryState(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, userID)
	return nil
}

// LoadThreshold returns a copy of the user's adaptive threshold.
func (s *Store) LoadThreshold(ctx context.Context, userID string) (*storage.ThresholdState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.thresholds[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// SaveThreshold stores a copy of the given threshold state.
func (s *Store) SaveThreshold(ctx context.Context, state *storage.ThresholdState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *state
	s.thresholds[state.UserID] = &cp
	return nil
}

// DeleteThreshold removes the user's threshold if present.
func (s *Store) DeleteThreshold(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.thresholds, userID)
	return nil
}

// LoadLedger returns a copy of the user's privacy ledger. Users with no
// recorded operations get an empty ledger.
func (s *Store) LoadLedger(ctx context.Context, userID string) (*storage.LedgerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	epsilons := s.ledgers[userID]
	out := make([]float64, len(epsilons))
	copy(out, epsilons)
	return &storage.LedgerState{UserID: userID, Epsilons: out}, nil
}

// AppendLedger appends privacy charges to the user's ledger.
func (s *Store) AppendLedger(ctx context.Context, userID string, epsilons ...float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledgers[userID] = append(s.ledgers[userID], epsilons...)
	return nil
}

// Close releases nothing; the in-memory store holds no external resources.
func (s *Store) Close() error {
	return nil
}

func copyState(state *storage.MemoryState) *storage.MemoryState {
	cp := *state
	cp.Vector = make([]float64, len(state.Vector))
	copy(cp.Vector, state.Vector)
	return &cp
}
