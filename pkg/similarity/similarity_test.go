package similarity_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evomem-labs/evomem-go/pkg/similarity"
)

func TestCosineSimilaritySelf(t *testing.T) {
	v := []float64{0.3, -1.2, 4.5, 0.0, 2.2}

	sim, err := similarity.CosineSimilarity(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{-4, 0.5, 7}

	simAB, err := similarity.CosineSimilarity(a, b)
	require.NoError(t, err)
	simBA, err := similarity.CosineSimilarity(b, a)
	require.NoError(t, err)

	assert.Equal(t, simAB, simBA)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	zero := []float64{0, 0, 0}
	v := []float64{1, 2, 3}

	sim, err := similarity.CosineSimilarity(zero, v)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	a := make([]float64, 256)
	b := make([]float64, 100)

	_, err := similarity.CosineSimilarity(a, b)
	assert.ErrorIs(t, err, similarity.ErrDimensionMismatch)
}

func TestCosineSimilarityOppositeDirection(t *testing.T) {
	a := []float64{1, 1}
	b := []float64{-1, -1}

	sim, err := similarity.CosineSimilarity(a, b)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, sim, 1e-9)
}

func TestEuclideanDistance(t *testing.T) {
	a := []float64{0, 0}
	b := []float64{3, 4}

	dist, err := similarity.EuclideanDistance(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, dist, 1e-9)
}

func TestEuclideanDistanceDimensionMismatch(t *testing.T) {
	_, err := similarity.EuclideanDistance([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, similarity.ErrDimensionMismatch)
}

func TestNormalize(t *testing.T) {
	v := []float64{3, 4}
	out := similarity.Normalize(v)

	assert.InDelta(t, 1.0, similarity.Norm(out), 1e-9)
	assert.InDelta(t, 0.6, out[0], 1e-9)
	assert.InDelta(t, 0.8, out[1], 1e-9)
}

func TestNormalizeZeroVectorIsStable(t *testing.T) {
	v := []float64{0, 0, 0}
	out := similarity.Normalize(v)

	for _, x := range out {
		assert.False(t, math.IsNaN(x))
		assert.False(t, math.IsInf(x, 0))
	}
}
