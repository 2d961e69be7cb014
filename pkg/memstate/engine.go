// Package memstate implements the per-user memory state engine.
//
// Each user owns a unit-normalized memory vector that evolves in two phases
// per event: passive time decay, then a gated blend with the event embedding
// when the event's significance clears the user's adaptive threshold. The
// blend uses fixed tanh nonlinearities rather than learned gate weights; it
// is a deliberately simple deterministic transform whose numeric behavior is
// fully specified and testable. Update steps are norm-clipped so no finite
// input can push the state to NaN or Inf.
package memstate

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/evomem-labs/evomem-go/pkg/significance"
	"github.com/evomem-labs/evomem-go/pkg/similarity"
	"github.com/evomem-labs/evomem-go/pkg/storage"
)

// Validation errors returned by Update.
var (
	// ErrInvalidSignificance indicates a significance outside [0, 1].
	ErrInvalidSignificance = errors.New("significance must be in [0, 1]")

	// ErrNonFiniteEmbedding indicates an embedding containing NaN or Inf.
	ErrNonFiniteEmbedding = errors.New("embedding contains non-finite values")
)

// initialNoiseScale sizes the random initial vector before normalization.
// Non-zero so a new user's first gated update has a defined direction.
const initialNoiseScale = 0.01

// Config contains the numeric parameters of the engine.
type Config struct {
	// Dimension is the fixed memory vector length.
	Dimension int

	// DecayFactor is the per-day exponential decay base, in (0, 1].
	DecayFactor float64

	// BaseLearningRate scales the blend rate; the effective rate is
	// BaseLearningRate * significance.
	BaseLearningRate float64

	// GradientClipNorm caps the Euclidean magnitude of a single update step.
	GradientClipNorm float64

	// InitialThreshold is the starting adaptive threshold for new users.
	InitialThreshold float64

	// ThresholdAlpha is the exponential smoothing rate of the threshold.
	ThresholdAlpha float64
}

// Engine owns per-user memory state evolution.
//
// Operations for different users run fully in parallel; operations for the
// same user are serialized by a per-user lock around each read-modify-write.
type Engine struct {
	store storage.StateStore
	cfg   Config
	locks *storage.KeyedMutex

	// now is the clock; replaceable so decay tests are reproducible.
	now func() time.Time
}

// NewEngine creates a memory state engine on top of the given store.
func NewEngine(store storage.StateStore, cfg Config) *Engine {
	return &Engine{
		store: store,
		cfg:   cfg,
		locks: storage.NewKeyedMutex(),
		now:   time.Now,
	}
}

// NewEngineWithClock creates an engine with an explicit clock.
func NewEngineWithClock(store storage.StateStore, cfg Config, now func() time.Time) *Engine {
	e := NewEngine(store, cfg)
	e.now = now
	return e
}

// UpdateResult describes the outcome of a single Update call.
type UpdateResult struct {
	// LearningTriggered reports whether the event cleared the threshold
	// (or the check was bypassed) and the vector was blended.
	LearningTriggered bool

	// Significance is the score the decision was made on.
	Significance float64

	// Threshold is the adaptive threshold the score was compared against,
	// before it was smoothed with this event's score.
	Threshold float64

	// StateChangeMagnitude is the Euclidean size of the applied update
	// step, after clipping. Zero when learning was not triggered.
	StateChangeMagnitude float64

	// State is the persisted state after the update.
	State *storage.MemoryState
}

// Update processes one event embedding against a user's memory state.
//
// The state always decays by DecayFactor^Δt_days first (passive forgetting).
// If the significance is below the user's adaptive threshold and force is
// false, the event only counts: the vector direction is unchanged and the
// step magnitude is zero. Otherwise the decayed vector is blended with the
// event embedding through fixed tanh gates at an effective learning rate of
// BaseLearningRate·significance, the step is clipped to GradientClipNorm,
// and the result is renormalized to unit length. The threshold is smoothed
// with the score in either case.
//
// Fails with ErrInvalidSignificance, ErrNonFiniteEmbedding, or
// similarity.ErrDimensionMismatch on malformed input; the stored state is
// untouched on any failure.
func (e *Engine) Update(ctx context.Context, userID string, eventEmbedding []float64, sig float64, force bool) (*UpdateResult, error) {
	if sig < 0 || sig > 1 || math.IsNaN(sig) {
		return nil, fmt.Errorf("%w: got %f", ErrInvalidSignificance, sig)
	}
	if len(eventEmbedding) != e.cfg.Dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d",
			similarity.ErrDimensionMismatch, e.cfg.Dimension, len(eventEmbedding))
	}
	for _, x := range eventEmbedding {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, ErrNonFiniteEmbedding
		}
	}

	unlock := e.locks.Lock(userID)
	defer unlock()

	now := e.now()

	state, err := e.loadOrCreateState(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	tracker, err := e.loadTracker(ctx, userID)
	if err != nil {
		return nil, err
	}
	decisionThreshold := tracker.Threshold()

	// Passive forgetting runs regardless of significance.
	deltaDays := now.Sub(state.LastUpdateAt).Hours() / 24.0
	if deltaDays < 0 {
		deltaDays = 0
	}
	decayMult := math.Pow(e.cfg.DecayFactor, deltaDays)

	decayed := make([]float64, len(state.Vector))
	for i, x := range state.Vector {
		decayed[i] = x * decayMult
	}

	triggered := force || tracker.IsSignificant(sig)
	var magnitude float64

	if triggered {
		lr := e.cfg.BaseLearningRate * sig

		blended := make([]float64, len(decayed))
		for i := range decayed {
			forget := math.Tanh(decayed[i] * 0.9)
			input := math.Tanh(eventEmbedding[i])
			blended[i] = forget*(1-lr) + input*lr
		}

		// Clip the step before normalization so no finite input can
		// destabilize the state.
		magnitude, _ = similarity.EuclideanDistance(blended, decayed)
		if magnitude > e.cfg.GradientClipNorm {
			scale := e.cfg.GradientClipNorm / magnitude
			for i := range blended {
				blended[i] = decayed[i] + (blended[i]-decayed[i])*scale
			}
			magnitude = e.cfg.GradientClipNorm
		}

		state.Vector = similarity.Normalize(blended)
		state.SignificantEventCount++
	} else {
		// Decay rescales a unit vector without changing its direction, so
		// restoring the norm invariant leaves the stored state unchanged.
		state.Vector = similarity.Normalize(decayed)
		magnitude = 0
	}

	state.EventCount++
	state.LastUpdateAt = now

	if err := e.store.SaveMemoryState(ctx, state); err != nil {
		return nil, err
	}

	tracker.Observe(sig)
	if err := e.store.SaveThreshold(ctx, &storage.ThresholdState{
		UserID:    userID,
		Theta:     tracker.Threshold(),
		UpdatedAt: now,
	}); err != nil {
		return nil, err
	}

	return &UpdateResult{
		LearningTriggered:    triggered,
		Significance:         sig,
		Threshold:            decisionThreshold,
		StateChangeMagnitude: magnitude,
		State:                state,
	}, nil
}

// GetState returns a user's memory state, creating it on first access.
func (e *Engine) GetState(ctx context.Context, userID string) (*storage.MemoryState, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	return e.loadOrCreateState(ctx, userID, e.now())
}

// Reset erases a user's memory state and adaptive threshold, so the next
// access sees a brand-new user. The privacy ledger is deliberately not
// touched: accumulated privacy loss never resets.
func (e *Engine) Reset(ctx context.Context, userID string) error {
	unlock := e.locks.Lock(userID)
	defer unlock()

	if err := e.store.DeleteMemoryState(ctx, userID); err != nil {
		return err
	}
	return e.store.DeleteThreshold(ctx, userID)
}

// Metrics summarizes a user's learning activity.
type Metrics struct {
	// EventCount is the total number of processed events.
	EventCount int64

	// SignificantEventCount is the number of events that triggered learning.
	SignificantEventCount int64

	// AvgSignificance is SignificantEventCount/EventCount, 0 when no
	// events have been processed.
	AvgSignificance float64

	// Threshold is the user's current adaptive threshold.
	Threshold float64

	// LastUpdateAt is when the state last changed; zero for unknown users.
	LastUpdateAt time.Time
}

// LearningMetrics derives learning metrics for a user.
//
// Unknown users get zero counts and the configured initial threshold;
// reading metrics never creates state.
func (e *Engine) LearningMetrics(ctx context.Context, userID string) (*Metrics, error) {
	metrics := &Metrics{Threshold: e.cfg.InitialThreshold}

	state, err := e.store.LoadMemoryState(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if state != nil {
		metrics.EventCount = state.EventCount
		metrics.SignificantEventCount = state.SignificantEventCount
		metrics.LastUpdateAt = state.LastUpdateAt
		if state.EventCount > 0 {
			metrics.AvgSignificance = float64(state.SignificantEventCount) / float64(state.EventCount)
		}
	}

	threshold, err := e.store.LoadThreshold(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if threshold != nil {
		metrics.Threshold = threshold.Theta
	}

	return metrics, nil
}

// loadOrCreateState loads a user's state or initializes a fresh one.
func (e *Engine) loadOrCreateState(ctx context.Context, userID string, now time.Time) (*storage.MemoryState, error) {
	state, err := e.store.LoadMemoryState(ctx, userID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	state = newState(userID, e.cfg.Dimension, now)
	if err := e.store.SaveMemoryState(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// loadTracker loads a user's threshold tracker or initializes a fresh one.
func (e *Engine) loadTracker(ctx context.Context, userID string) (*significance.Tracker, error) {
	threshold, err := e.store.LoadThreshold(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return significance.NewTracker(e.cfg.InitialThreshold, e.cfg.ThresholdAlpha), nil
	}
	return significance.NewTracker(threshold.Theta, e.cfg.ThresholdAlpha), nil
}

// newState initializes a memory state with a small random unit vector.
//
// The vector must not be zero (a zero vector has no gradient direction for
// the first gated update), so it is seeded from the user ID and normalized.
func newState(userID string, dimension int, now time.Time) *storage.MemoryState {
	h := fnv.New64a()
	h.Write([]byte(userID))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float64, dimension)
	for i := range vec {
		vec[i] = (rng.Float64()*2 - 1) * initialNoiseScale
	}
	similarity.Normalize(vec)

	return &storage.MemoryState{
		UserID:       userID,
		Dimension:    dimension,
		Vector:       vec,
		LastUpdateAt: now,
		CreatedAt:    now,
	}
}
