package significance

// Tracker is a per-user adaptive significance threshold.
//
// The threshold follows recent significance scores by exponential smoothing:
//
//	θ ← (1-α)·θ + α·score
//
// Given scores in [0, 1] and α in (0, 1], θ stays within [0, 1]. The
// threshold is mutated only through Observe; Threshold is exposed read-only
// for observability.
type Tracker struct {
	theta float64
	alpha float64
}

// NewTracker creates a tracker with the given initial threshold and
// smoothing rate.
func NewTracker(initial, alpha float64) *Tracker {
	return &Tracker{theta: initial, alpha: alpha}
}

// Observe folds a new significance score into the threshold.
func (t *Tracker) Observe(score float64) {
	t.theta = (1-t.alpha)*t.theta + t.alpha*score
	t.theta = clamp01(t.theta)
}

// IsSignificant reports whether a score meets the current threshold.
// The boundary counts as significant.
func (t *Tracker) IsSignificant(score float64) bool {
	return score >= t.theta
}

// Threshold returns the current threshold value.
func (t *Tracker) Threshold() float64 {
	return t.theta
}
