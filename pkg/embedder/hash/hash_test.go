package hash_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hashEmbedder "github.com/evomem-labs/evomem-go/pkg/embedder/hash"
	"github.com/evomem-labs/evomem-go/pkg/similarity"
)

func TestEmbedIsDeterministic(t *testing.T) {
	embedder := hashEmbedder.New(64)
	ctx := context.Background()

	first, err := embedder.Embed(ctx, "User completed training module")
	require.NoError(t, err)
	second, err := embedder.Embed(ctx, "User completed training module")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEmbedProducesUnitVector(t *testing.T) {
	embedder := hashEmbedder.New(64)

	vec, err := embedder.Embed(context.Background(), "some event text")
	require.NoError(t, err)

	assert.Len(t, vec, 64)
	assert.InDelta(t, 1.0, similarity.Norm(vec), 1e-9)
}

func TestEmbedDifferentTextsDiffer(t *testing.T) {
	embedder := hashEmbedder.New(64)
	ctx := context.Background()

	a, err := embedder.Embed(ctx, "first text")
	require.NoError(t, err)
	b, err := embedder.Embed(ctx, "second text")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	embedder := hashEmbedder.New(16)
	ctx := context.Background()

	texts := []string{"alpha", "beta", "gamma"}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	for i, text := range texts {
		single, err := embedder.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, vectors[i])
	}
}

func TestEmbedRespectsCancelledContext(t *testing.T) {
	embedder := hashEmbedder.New(16)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := embedder.Embed(ctx, "text")
	assert.Error(t, err)
}

func TestDimensions(t *testing.T) {
	assert.Equal(t, 128, hashEmbedder.New(128).Dimensions())
}
