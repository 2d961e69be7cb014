// Package similarity provides vector similarity and distance computations.
//
// It is the shared numeric kernel used by the memory state engine, the
// significance scorer, and the privacy encoder. All functions operate on
// fixed-length float64 vectors and are pure computations.
package similarity

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch indicates that two vectors have different lengths.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// normEpsilon stabilizes divisions by a vector norm.
const normEpsilon = 1e-12

// CosineSimilarity computes the cosine similarity between two vectors.
//
// Returns a value in [-1, 1], where 1 means identical direction.
// Zero-vector inputs return 0 rather than NaN, so an uninitialized vector
// never propagates an invalid value downstream.
//
// Returns ErrDimensionMismatch if the vectors have different lengths.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// EuclideanDistance computes the L2 distance between two vectors.
//
// Returns ErrDimensionMismatch if the vectors have different lengths.
func EuclideanDistance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	return math.Sqrt(sum), nil
}

// Norm computes the Euclidean (L2) norm of a vector.
func Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Normalize scales v to unit length in place and returns it.
//
// The division is epsilon-stabilized, so near-zero vectors never produce
// NaN or Inf components.
func Normalize(v []float64) []float64 {
	norm := Norm(v)
	if norm < normEpsilon {
		return v
	}
	for i := range v {
		v[i] /= norm
	}
	return v
}
