package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEmbeddingService memoizes embedding results in a fixed-size LRU.
// Safe because identical input yields identical vectors.
type CachedEmbeddingService struct {
	service EmbeddingService
	cache   *lru.Cache[string, []float64]
}

// NewCachedEmbeddingService wraps the service with an LRU result cache of
// the given capacity.
func NewCachedEmbeddingService(service EmbeddingService, size int) (*CachedEmbeddingService, error) {
	if size <= 0 {
		size = 1000
	}
	cache, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, err
	}
	return &CachedEmbeddingService{service: service, cache: cache}, nil
}

func (ces *CachedEmbeddingService) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(ces.service.GetModel() + "|" + text))
	return hex.EncodeToString(sum[:])
}

// GenerateEmbedding returns the cached vector or delegates to the provider
func (ces *CachedEmbeddingService) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	key := ces.cacheKey(text)
	if cached, ok := ces.cache.Get(key); ok {
		return cloneVector(cached), nil
	}

	vec, err := ces.service.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	ces.cache.Add(key, cloneVector(vec))
	return vec, nil
}

// GenerateBatchEmbeddings serves cached entries locally and sends only the
// uncached texts to the provider.
func (ces *CachedEmbeddingService) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	results := make([][]float64, len(texts))
	var uncachedTexts []string
	var uncachedIndices []int

	for i, text := range texts {
		if cached, ok := ces.cache.Get(ces.cacheKey(text)); ok {
			results[i] = cloneVector(cached)
			continue
		}
		uncachedTexts = append(uncachedTexts, text)
		uncachedIndices = append(uncachedIndices, i)
	}

	if len(uncachedTexts) == 0 {
		return results, nil
	}

	vectors, err := ces.service.GenerateBatchEmbeddings(ctx, uncachedTexts)
	if err != nil {
		return nil, err
	}
	for i, vec := range vectors {
		results[uncachedIndices[i]] = vec
		ces.cache.Add(ces.cacheKey(uncachedTexts[i]), cloneVector(vec))
	}
	return results, nil
}

// GetDimension returns the wrapped service's vector dimension
func (ces *CachedEmbeddingService) GetDimension() int {
	return ces.service.GetDimension()
}

// GetModel returns the wrapped service's model identifier
func (ces *CachedEmbeddingService) GetModel() string {
	return ces.service.GetModel()
}

// HealthCheck delegates to the wrapped service
func (ces *CachedEmbeddingService) HealthCheck(ctx context.Context) error {
	return ces.service.HealthCheck(ctx)
}

// CacheLen returns the number of cached vectors
func (ces *CachedEmbeddingService) CacheLen() int {
	return ces.cache.Len()
}

// ClearCache drops every cached vector
func (ces *CachedEmbeddingService) ClearCache() {
	ces.cache.Purge()
}

// cloneVector guards cached vectors against caller mutation
func cloneVector(vec []float64) []float64 {
	out := make([]float64, len(vec))
	copy(out, vec)
	return out
}
