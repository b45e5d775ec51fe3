// Package embeddings adapts the OpenAI embedding API for the indexing and
// retrieval pipelines, with request rate limiting, an LRU result cache and
// retry on transient failures.
package embeddings

import "context"

// EmbeddingService generates dense vectors for text. Identical input must
// produce identical vectors (provider contract), which is what makes the
// result cache sound.
type EmbeddingService interface {
	// GenerateEmbedding embeds a single text
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)

	// GenerateBatchEmbeddings embeds multiple texts in one provider call
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float64, error)

	// GetDimension returns the vector dimension of the configured model
	GetDimension() int

	// GetModel returns the provider model identifier
	GetModel() string

	// HealthCheck verifies the provider is reachable
	HealthCheck(ctx context.Context) error
}
