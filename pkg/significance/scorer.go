// Package significance provides event significance scoring and adaptive
// threshold tracking.
//
// The scorer combines cheap proxy features (content length, embedding
// magnitude, caller-supplied importance, recency) into a bounded score; the
// tracker maintains a per-user threshold that scores are compared against,
// smoothed over recent observations. Downstream code relies on the contract
// (score in [0, 1], monotone in each factor), not on the exact weights,
// which stay tunable configuration.
package significance

import (
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/evomem-labs/evomem-go/pkg/similarity"
)

// Content length bounds accepted by the scorer, in characters.
const (
	MinContentLength = 5
	MaxContentLength = 10000
)

// ErrInvalidContent indicates event content outside the accepted length range.
var ErrInvalidContent = errors.New("content must be 5-10000 characters")

// ScorerConfig contains the feature weights of the significance formula.
//
// The zero value is not usable; construct with DefaultScorerConfig and
// override as needed.
type ScorerConfig struct {
	// BaseScore is the score assigned before any feature contribution.
	BaseScore float64

	// LengthWeight scales the content-length factor min(len/500, 1).
	LengthWeight float64

	// MagnitudeWeight scales the embedding-magnitude factor min(‖e‖, 1).
	MagnitudeWeight float64

	// ImportanceWeight scales the caller-supplied importance, when provided.
	ImportanceWeight float64

	// RecencyWeight scales the recency factor exp(-age_days/30), when a
	// timestamp is provided.
	RecencyWeight float64
}

// DefaultScorerConfig returns the standard feature weights.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		BaseScore:        0.5,
		LengthWeight:     0.2,
		MagnitudeWeight:  0.2,
		ImportanceWeight: 0.2,
		RecencyWeight:    0.1,
	}
}

// Scorer computes significance scores for events.
type Scorer struct {
	cfg ScorerConfig

	// now is the clock; replaceable so recency tests are reproducible.
	now func() time.Time
}

// NewScorer creates a scorer with the given feature weights.
func NewScorer(cfg ScorerConfig) *Scorer {
	return &Scorer{cfg: cfg, now: time.Now}
}

// NewScorerWithClock creates a scorer with an explicit clock.
func NewScorerWithClock(cfg ScorerConfig, now func() time.Time) *Scorer {
	return &Scorer{cfg: cfg, now: now}
}

// Input carries the optional event attributes that contribute to a score.
type Input struct {
	// Importance is a caller-supplied importance in [0, 1], or nil.
	Importance *float64

	// Timestamp is the event time used for the recency factor, or nil.
	Timestamp *time.Time
}

// Score computes the significance of an event in [0, 1].
//
// The score is additive over the configured features and clamped to [0, 1]:
//
//	base + min(len/500,1)·wLen + min(‖e‖,1)·wMag + min(imp,1)·wImp + exp(-age/30)·wRec
//
// Content shorter than 5 or longer than 10,000 characters fails with
// ErrInvalidContent. A negative importance fails the same way; an importance
// above 1 is capped rather than rejected, matching the other factors.
func (s *Scorer) Score(content string, embedding []float64, in Input) (float64, error) {
	// Length is counted in characters, not bytes, so multi-byte scripts are
	// bounded and weighted the same as ASCII.
	length := utf8.RuneCountInString(content)
	if length < MinContentLength || length > MaxContentLength {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidContent, length)
	}

	score := s.cfg.BaseScore

	score += math.Min(float64(length)/500.0, 1.0) * s.cfg.LengthWeight
	score += math.Min(similarity.Norm(embedding), 1.0) * s.cfg.MagnitudeWeight

	if in.Importance != nil {
		if *in.Importance < 0 {
			return 0, fmt.Errorf("importance must be non-negative, got %f", *in.Importance)
		}
		score += math.Min(*in.Importance, 1.0) * s.cfg.ImportanceWeight
	}

	if in.Timestamp != nil {
		ageDays := s.now().Sub(*in.Timestamp).Hours() / 24.0
		if ageDays < 0 {
			ageDays = 0
		}
		score += math.Exp(-ageDays/30.0) * s.cfg.RecencyWeight
	}

	return clamp01(score), nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
