// Package embedder provides interfaces for text embedding providers.
//
// It defines the Provider interface that all embedding implementations must
// satisfy. Providers map text to fixed-dimension, unit-normalized vectors;
// the dimension is a configuration constant shared by every component that
// consumes embeddings.
package embedder

import "context"

// Provider defines the interface for embedding providers.
//
// Implementations must produce unit-normalized vectors of a fixed length.
// A provider is either deterministic for identical text (the hash provider,
// relied on by tests for reproducibility) or documented as non-deterministic.
type Provider interface {
	// Embed converts a text string into a unit-normalized embedding vector.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch converts multiple texts into embedding vectors.
	//
	// Result order matches input order. More efficient than calling Embed
	// repeatedly when the backend supports request batching.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the length of vectors produced by this provider.
	Dimensions() int

	// Close closes the provider and releases resources.
	Close() error
}
