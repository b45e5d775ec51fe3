package embeddings

import (
	"context"

	legalerrors "legal-rag-service/internal/errors"
	"legal-rag-service/internal/logging"
	"legal-rag-service/internal/retry"
)

// RetryableEmbeddingService decorates an EmbeddingService with the shared
// adapter retry policy. Exhaustion surfaces as an EmbeddingError.
type RetryableEmbeddingService struct {
	service EmbeddingService
	retrier *retry.Retrier
	logger  logging.Logger
}

// NewRetryableEmbeddingService wraps the service with retry logic; nil
// config uses the default adapter policy.
func NewRetryableEmbeddingService(service EmbeddingService, cfg *retry.Config) *RetryableEmbeddingService {
	if cfg == nil {
		cfg = retry.DefaultConfig()
	}
	return &RetryableEmbeddingService{
		service: service,
		retrier: retry.New(cfg),
		logger:  logging.WithComponent("embeddings"),
	}
}

// GenerateEmbedding embeds one text with retries on transient failures
func (res *RetryableEmbeddingService) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	var vec []float64
	result := res.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		vec, err = res.service.GenerateEmbedding(ctx, text)
		return err
	})
	if result.Err != nil {
		if result.Attempts > 1 {
			res.logger.Warn("Embedding failed after retries",
				"attempts", result.Attempts, "error", result.Err)
		}
		return nil, legalerrors.NewEmbeddingError("failed to generate embedding", result.Err)
	}
	return vec, nil
}

// GenerateBatchEmbeddings embeds multiple texts with retries
func (res *RetryableEmbeddingService) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	var vectors [][]float64
	result := res.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		vectors, err = res.service.GenerateBatchEmbeddings(ctx, texts)
		return err
	})
	if result.Err != nil {
		if result.Attempts > 1 {
			res.logger.Warn("Batch embedding failed after retries",
				"attempts", result.Attempts, "batch_size", len(texts), "error", result.Err)
		}
		return nil, legalerrors.NewEmbeddingError("failed to generate batch embeddings", result.Err).
			WithDetail("batch_size", len(texts))
	}
	return vectors, nil
}

// GetDimension returns the wrapped service's vector dimension
func (res *RetryableEmbeddingService) GetDimension() int {
	return res.service.GetDimension()
}

// GetModel returns the wrapped service's model identifier
func (res *RetryableEmbeddingService) GetModel() string {
	return res.service.GetModel()
}

// HealthCheck delegates without retries so probes stay cheap
func (res *RetryableEmbeddingService) HealthCheck(ctx context.Context) error {
	return res.service.HealthCheck(ctx)
}
