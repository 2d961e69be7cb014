package privacy

import (
	"errors"
	"fmt"
	"math"
)

// Level selects how aggressively identity embeddings are noised.
type Level string

// Supported privacy levels. Higher privacy means a smaller effective epsilon
// and therefore larger noise.
const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// ErrUnknownPrivacyLevel indicates a privacy level outside {high, medium, low}.
var ErrUnknownPrivacyLevel = errors.New("unknown privacy level")

// ComparisonEpsilon is the privacy charge recorded against each identity's
// owner when two identities are compared. Comparisons release information
// about both embeddings, so both ledgers are charged.
const ComparisonEpsilon = 0.05

// ParseLevel validates a privacy level, defaulting the empty string to
// LevelMedium.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case "":
		return LevelMedium, nil
	case LevelHigh, LevelMedium, LevelLow:
		return Level(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPrivacyLevel, s)
	}
}

// adjustedEpsilon returns the epsilon the Laplace scale is calibrated to.
func adjustedEpsilon(base float64, level Level) float64 {
	switch level {
	case LevelHigh:
		return base / 3
	case LevelLow:
		return base * 1.5
	default:
		return base
	}
}

// recordedEpsilon returns the epsilon charged to the ledger for a release at
// the given level. Strictly increasing from high to low.
func recordedEpsilon(base float64, level Level) float64 {
	switch level {
	case LevelHigh:
		return base * 0.33
	case LevelLow:
		return base * 1.5
	default:
		return base
	}
}

// AccumulateLoss bounds the cumulative epsilon of a sequence of releases
// under (ε, δ)-advanced composition:
//
//	total = sqrt(2·ln(2/δ)) · sqrt(Σ εᵢ²)
//
// The bound grows with sqrt(n) for n equal-epsilon releases, sub-linearly in
// the number of operations. Zero operations cost zero.
func AccumulateLoss(epsilons []float64, delta float64) float64 {
	if len(epsilons) == 0 {
		return 0
	}

	var sumSq float64
	for _, eps := range epsilons {
		sumSq += eps * eps
	}
	return math.Sqrt(2*math.Log(2/delta)) * math.Sqrt(sumSq)
}
