package embeddings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"legal-rag-service/internal/config"
	"legal-rag-service/internal/retry"
)

// OpenAIEmbeddingService implements EmbeddingService against the OpenAI API
type OpenAIEmbeddingService struct {
	client      *openai.Client
	config      *config.OpenAIConfig
	rateLimiter *RateLimiter
}

// RateLimiter is a token bucket guarding the provider's requests-per-minute
// quota.
type RateLimiter struct {
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a token bucket of maxTokens refilled one token per
// refillRate.
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow consumes a token if one is available
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	if tokensToAdd := int(elapsed / rl.refillRate); tokensToAdd > 0 {
		rl.tokens = min(rl.maxTokens, rl.tokens+tokensToAdd)
		rl.lastRefill = now
	}

	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or the context ends
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if rl.Allow() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// NewOpenAIEmbeddingService creates the base OpenAI embedding adapter
func NewOpenAIEmbeddingService(cfg *config.OpenAIConfig) *OpenAIEmbeddingService {
	rpm := cfg.RateLimitRPM
	if rpm <= 0 {
		rpm = 60
	}
	return &OpenAIEmbeddingService{
		client:      openai.NewClient(cfg.APIKey),
		config:      cfg,
		rateLimiter: NewRateLimiter(rpm, time.Minute/time.Duration(rpm)),
	}
}

// GenerateEmbedding embeds a single text
func (oes *OpenAIEmbeddingService) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, retry.Permanent(errors.New("text cannot be empty"))
	}

	vectors, err := oes.createEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// GenerateBatchEmbeddings embeds multiple texts in one provider call. The
// returned slice is parallel to the input.
func (oes *OpenAIEmbeddingService) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, retry.Permanent(errors.New("texts cannot be empty"))
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, retry.Permanent(fmt.Errorf("text %d cannot be empty", i))
		}
	}
	return oes.createEmbeddings(ctx, texts)
}

func (oes *OpenAIEmbeddingService) createEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	if err := oes.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	timeout := time.Duration(oes.config.EmbeddingTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := oes.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(oes.config.EmbeddingModel),
	})
	if err != nil {
		return nil, classifyProviderError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, retry.Permanent(fmt.Errorf(
			"embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(resp.Data)))
	}

	// The API may return data out of order; Index restores input order
	vectors := make([][]float64, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, retry.Permanent(fmt.Errorf("embedding index %d out of range", data.Index))
		}
		vec := make([]float64, len(data.Embedding))
		for i, v := range data.Embedding {
			vec[i] = float64(v)
		}
		vectors[data.Index] = vec
	}
	return vectors, nil
}

// GetDimension returns the vector dimension of the configured model
func (oes *OpenAIEmbeddingService) GetDimension() int {
	return ModelDimension(oes.config.EmbeddingModel)
}

// GetModel returns the provider model identifier
func (oes *OpenAIEmbeddingService) GetModel() string {
	return oes.config.EmbeddingModel
}

// HealthCheck verifies the provider accepts requests
func (oes *OpenAIEmbeddingService) HealthCheck(ctx context.Context) error {
	_, err := oes.GenerateEmbedding(ctx, "health check")
	return err
}

// ModelDimension maps an embedding model name to its vector dimension
func ModelDimension(model string) int {
	switch {
	case strings.Contains(model, "3-large"):
		return 3072
	case strings.Contains(model, "3-small"):
		return 1536
	case strings.Contains(model, "ada-002"):
		return 1536
	default:
		return 1536
	}
}

// classifyProviderError marks provider failures as permanent or temporary
// for the retry engine: credential, model and request-shape problems fail
// fast; network trouble, timeouts and provider overload are retryable.
func classifyProviderError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden,
			http.StatusNotFound, http.StatusBadRequest:
			return retry.Permanent(fmt.Errorf("embedding request rejected: %w", err))
		default:
			return retry.Temporary(fmt.Errorf("embedding provider unavailable: %w", err))
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return retry.Temporary(fmt.Errorf("embedding call failed: %w", err))
}
