package privacy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evomem-labs/evomem-go/pkg/embedder"
	"github.com/evomem-labs/evomem-go/pkg/similarity"
	"github.com/evomem-labs/evomem-go/pkg/storage"
)

// Encoder errors.
var (
	// ErrEmptyAttributes indicates an encode call with no identity attributes.
	ErrEmptyAttributes = errors.New("attributes must be a non-empty key-value bag")

	// ErrBudgetExhausted indicates a release that would push a user's
	// cumulative privacy loss past the configured budget. Returned only when
	// budget enforcement is enabled; tracking is otherwise advisory.
	ErrBudgetExhausted = errors.New("privacy budget exhausted")
)

// Config contains the privacy parameters of the encoder.
type Config struct {
	// BaseEpsilon is the per-release epsilon at the medium privacy level.
	BaseEpsilon float64

	// Delta is the (ε, δ) failure probability, recorded on every identity
	// and used by the composition bound.
	Delta float64

	// MaxEpsilon and MaxDelta are the compliance ceilings checked by Verify.
	MaxEpsilon float64
	MaxDelta   float64

	// Sensitivity is the query sensitivity the Laplace scale is calibrated
	// to; defaults to 1.0 when unset.
	Sensitivity float64

	// EnforceBudget rejects releases once a user's accumulated loss would
	// exceed BudgetLimit. When false the ledger only reports.
	EnforceBudget bool

	// BudgetLimit is the cumulative-loss ceiling used for enforcement and
	// reporting; defaults to MaxEpsilon when unset.
	BudgetLimit float64

	// PIISalt is the salt for hashing caller-designated sensitive attribute
	// values; defaults to DefaultPIISalt when unset.
	PIISalt string
}

// Encoder produces privacy-preserving identity embeddings and tracks the
// cumulative privacy loss per user.
//
// Ledger mutations for the same user are serialized by a per-user lock;
// different users proceed in parallel.
type Encoder struct {
	provider embedder.Provider
	store    storage.StateStore
	cfg      Config
	locks    *storage.KeyedMutex
	noise    *noiser
	now      func() time.Time
}

// NewEncoder creates an identity encoder on top of the given embedding
// provider and state store.
func NewEncoder(provider embedder.Provider, store storage.StateStore, cfg Config) *Encoder {
	if cfg.Sensitivity <= 0 {
		cfg.Sensitivity = 1.0
	}
	if cfg.BudgetLimit <= 0 {
		cfg.BudgetLimit = cfg.MaxEpsilon
	}
	if cfg.PIISalt == "" {
		cfg.PIISalt = DefaultPIISalt
	}
	return &Encoder{
		provider: provider,
		store:    store,
		cfg:      cfg,
		locks:    storage.NewKeyedMutex(),
		noise:    newNoiser(),
		now:      time.Now,
	}
}

// EncodedIdentity is the result of a privacy-preserving encode.
//
// DataFields carries only the names of the source attributes, never their
// values.
type EncodedIdentity struct {
	IdentityID   string
	UserID       string
	Embedding    []float64
	Epsilon      float64
	Delta        float64
	PrivacyLevel Level
	NoiseScale   float64
	DataFields   []string
	CreatedAt    time.Time
}

// Encode builds a noised identity embedding from an attribute bag.
//
// Attribute values named in sensitive are replaced by salted SHA-256 digests
// first; their plaintext never reaches the embedding provider. The attributes
// are then serialized canonically (sorted k=v pairs), embedded, perturbed
// per-dimension with Laplace(0, sensitivity/adjustedEpsilon) noise, and
// renormalized to unit length. The recorded epsilon is charged to the user's
// ledger before the identity is returned. Encoding the same attributes twice
// yields different embeddings; the randomness is the privacy property.
func (e *Encoder) Encode(ctx context.Context, userID string, attributes map[string]string, sensitive []string, level Level) (*EncodedIdentity, error) {
	if len(attributes) == 0 {
		return nil, ErrEmptyAttributes
	}
	level, err := ParseLevel(string(level))
	if err != nil {
		return nil, err
	}

	base, err := e.provider.Embed(ctx, canonicalize(hashSensitive(attributes, sensitive, e.cfg.PIISalt)))
	if err != nil {
		return nil, fmt.Errorf("embed identity attributes: %w", err)
	}

	adjusted := adjustedEpsilon(e.cfg.BaseEpsilon, level)
	recorded := recordedEpsilon(e.cfg.BaseEpsilon, level)
	noiseScale := e.cfg.Sensitivity / adjusted

	unlock := e.locks.Lock(userID)
	defer unlock()

	if err := e.checkBudget(ctx, userID, recorded); err != nil {
		return nil, err
	}

	noised := make([]float64, len(base))
	for i, x := range base {
		noised[i] = x + e.noise.laplace(noiseScale)
	}
	similarity.Normalize(noised)

	if err := e.store.AppendLedger(ctx, userID, recorded); err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(attributes))
	for k := range attributes {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	return &EncodedIdentity{
		IdentityID:   uuid.NewString(),
		UserID:       userID,
		Embedding:    noised,
		Epsilon:      recorded,
		Delta:        e.cfg.Delta,
		PrivacyLevel: level,
		NoiseScale:   noiseScale,
		DataFields:   fields,
		CreatedAt:    e.now(),
	}, nil
}

// ComparisonResult is the outcome of comparing two encoded identities.
type ComparisonResult struct {
	// Similarity is the cosine similarity of the two noised embeddings.
	Similarity float64

	// PrivacyLoss is the epsilon charged to each identity's owner for
	// this comparison.
	PrivacyLoss float64
}

// Compare computes the cosine similarity of two encoded identities and
// charges ComparisonEpsilon to each owner's ledger.
//
// Fails with similarity.ErrDimensionMismatch when the embeddings differ in
// length, or with ErrBudgetExhausted when either owner lacks budget headroom;
// nothing is charged to anyone on any failure.
func (e *Encoder) Compare(ctx context.Context, a, b *EncodedIdentity) (*ComparisonResult, error) {
	sim, err := similarity.CosineSimilarity(a.Embedding, b.Embedding)
	if err != nil {
		return nil, err
	}

	if err := e.chargeComparison(ctx, a.UserID, b.UserID); err != nil {
		return nil, err
	}

	return &ComparisonResult{Similarity: sim, PrivacyLoss: ComparisonEpsilon}, nil
}

// chargeComparison appends ComparisonEpsilon to both owners' ledgers, or to
// neither: both budgets are checked before either entry is written. Locks are
// acquired in sorted owner order so concurrent comparisons cannot deadlock; a
// same-owner comparison holds the single lock and records two entries, one
// per released identity.
func (e *Encoder) chargeComparison(ctx context.Context, ownerA, ownerB string) error {
	if ownerB < ownerA {
		ownerA, ownerB = ownerB, ownerA
	}

	unlockA := e.locks.Lock(ownerA)
	defer unlockA()

	if ownerA == ownerB {
		if err := e.checkBudget(ctx, ownerA, ComparisonEpsilon, ComparisonEpsilon); err != nil {
			return err
		}
		if err := e.store.AppendLedger(ctx, ownerA, ComparisonEpsilon); err != nil {
			return err
		}
		return e.store.AppendLedger(ctx, ownerA, ComparisonEpsilon)
	}

	unlockB := e.locks.Lock(ownerB)
	defer unlockB()

	if err := e.checkBudget(ctx, ownerA, ComparisonEpsilon); err != nil {
		return err
	}
	if err := e.checkBudget(ctx, ownerB, ComparisonEpsilon); err != nil {
		return err
	}
	if err := e.store.AppendLedger(ctx, ownerA, ComparisonEpsilon); err != nil {
		return err
	}
	return e.store.AppendLedger(ctx, ownerB, ComparisonEpsilon)
}

// VerificationResult is the outcome of a compliance check.
type VerificationResult struct {
	Valid   bool
	Message string
}

// Verify checks an identity's recorded (ε, δ) against the configured
// ceilings. The message states the outcome either way; an out-of-bound
// identity is never passed silently.
func (e *Encoder) Verify(identity *EncodedIdentity) *VerificationResult {
	if identity.Epsilon > e.cfg.MaxEpsilon {
		return &VerificationResult{
			Valid: false,
			Message: fmt.Sprintf("epsilon %.4f exceeds maximum %.4f",
				identity.Epsilon, e.cfg.MaxEpsilon),
		}
	}
	if identity.Delta > e.cfg.MaxDelta {
		return &VerificationResult{
			Valid: false,
			Message: fmt.Sprintf("delta %g exceeds maximum %g",
				identity.Delta, e.cfg.MaxDelta),
		}
	}
	return &VerificationResult{
		Valid: true,
		Message: fmt.Sprintf("privacy guarantees satisfied: epsilon %.4f <= %.4f, delta %g <= %g",
			identity.Epsilon, e.cfg.MaxEpsilon, identity.Delta, e.cfg.MaxDelta),
	}
}

// Report summarizes a user's accumulated privacy loss.
type Report struct {
	UserID string

	// OperationCount is the number of charged releases.
	OperationCount int

	// Epsilons are the recorded per-release epsilons, in recording order.
	Epsilons []float64

	// TotalLoss is the advanced-composition bound over Epsilons.
	TotalLoss float64

	// Delta is the composition failure probability.
	Delta float64

	// BudgetLimit and RemainingBudget report headroom against the
	// configured ceiling; RemainingBudget floors at zero.
	BudgetLimit     float64
	RemainingBudget float64

	// Enforced reports whether releases are rejected at the limit.
	Enforced bool
}

// GetReport derives the privacy budget report for a user. Users with no
// recorded releases get a zero-loss report.
func (e *Encoder) GetReport(ctx context.Context, userID string) (*Report, error) {
	ledger, err := e.store.LoadLedger(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := AccumulateLoss(ledger.Epsilons, e.cfg.Delta)
	remaining := e.cfg.BudgetLimit - total
	if remaining < 0 {
		remaining = 0
	}

	return &Report{
		UserID:          userID,
		OperationCount:  len(ledger.Epsilons),
		Epsilons:        ledger.Epsilons,
		TotalLoss:       total,
		Delta:           e.cfg.Delta,
		BudgetLimit:     e.cfg.BudgetLimit,
		RemainingBudget: remaining,
		Enforced:        e.cfg.EnforceBudget,
	}, nil
}

// checkBudget rejects pending charges when enforcement is on and the
// resulting composed loss would exceed the budget. Caller holds the user's
// ledger lock.
func (e *Encoder) checkBudget(ctx context.Context, userID string, pending ...float64) error {
	if !e.cfg.EnforceBudget {
		return nil
	}

	ledger, err := e.store.LoadLedger(ctx, userID)
	if err != nil {
		return err
	}

	composed := AccumulateLoss(append(append([]float64{}, ledger.Epsilons...), pending...), e.cfg.Delta)
	if composed > e.cfg.BudgetLimit {
		return fmt.Errorf("%w: composed loss %.4f exceeds budget %.4f",
			ErrBudgetExhausted, composed, e.cfg.BudgetLimit)
	}
	return nil
}

// canonicalize serializes an attribute bag to a stable string: sorted k=v
// pairs joined by newlines. Identical bags always embed identically.
func canonicalize(attributes map[string]string) string {
	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + attributes[k]
	}
	return strings.Join(pairs, "\n")
}
