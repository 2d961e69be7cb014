// Package openai provides an OpenAI-backed embedding provider.
//
// Vectors from the Embeddings API are converted to float64 and unit-normalized
// before being returned, so downstream components can rely on the unit-vector
// contract regardless of the model. Output is deterministic for identical
// text as long as the backing model is.
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

// Client is an OpenAI embedding provider.
type Client struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// Config contains configuration for the OpenAI embedding provider.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// Model is the embedding model name. Defaults to text-embedding-ada-002.
	Model string

	// BaseURL overrides the API base URL (optional).
	BaseURL string

	// Dimensions is the expected vector length. Defaults to 1536.
	Dimensions int
}

// NewClient creates a new OpenAI embedding provider.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedder: API key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := openai.EmbeddingModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.AdaEmbeddingV2
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = 1536
	}

	return &Client{
		client:     openai.NewClientWithConfig(config),
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed converts a single text into a unit-normalized vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("openai embedder: no data returned from API")
	}

	return toUnitVector(resp.Data[0].Embedding), nil
}

// EmbedBatch converts multiple texts into unit-normalized vectors.
//
// Result order matches the input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedder: unexpected number of results (got %d, expected %d)",
			len(resp.Data), len(texts))
	}

	vectors := make([][]float64, len(texts))
	for i, data := range resp.Data {
		vectors[i] = toUnitVector(data.Embedding)
	}

	return vectors, nil
}

// Dimensions returns the configured vector length.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Close closes the provider. The OpenAI SDK needs no explicit shutdown;
// the method is retained for interface compatibility.
func (c *Client) Close() error {
	return nil
}

// toUnitVector converts the API's float32 embedding to a unit float64 vector.
func toUnitVector(embedding []float32) []float64 {
	vec := make([]float64, len(embedding))
	var norm float64
	for i, v := range embedding {
		vec[i] = float64(v)
		norm += vec[i] * vec[i]
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
