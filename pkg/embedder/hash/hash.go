// Package hash provides a local, deterministic embedding provider.
//
// Vectors are derived from a 64-bit hash of the input text expanded by a
// linear congruential generator, then unit-normalized. The provider needs no
// network access and always returns the same vector for the same text, which
// makes it the default choice for tests and offline use. It carries no
// semantic signal; production deployments should inject a real model-backed
// provider instead.
package hash

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder is a deterministic, hash-based embedding provider.
type Embedder struct {
	dimensions int
}

// New creates a hash embedder producing vectors of the given dimension.
func New(dimensions int) *Embedder {
	return &Embedder{dimensions: dimensions}
}

// Embed derives a unit-normalized vector from the FNV-1a hash of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float64, e.dimensions)
	for i := range vec {
		// Knuth's MMIX multiplier; spreads the hash across dimensions.
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float64(int64(seed)) / float64(math.MaxInt64)
	}

	normalize(vec)
	return vec, nil
}

// EmbedBatch embeds each text independently; order matches the input.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns the configured vector length.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the hash embedder holds no resources.
func (e *Embedder) Close() error {
	return nil
}

func normalize(vec []float64) {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
}
