package embeddings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"legal-rag-service/internal/config"
	"legal-rag-service/internal/retry"
)

func testOpenAIConfig() *config.OpenAIConfig {
	return &config.OpenAIConfig{
		APIKey:           "test-key",
		EmbeddingModel:   "text-embedding-3-small",
		EmbeddingTimeout: 5,
		RateLimitRPM:     600,
	}
}

func TestModelDimension(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"text-embedding-3-large", 3072},
		{"text-embedding-3-small", 1536},
		{"text-embedding-ada-002", 1536},
		{"unknown-model", 1536},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, ModelDimension(tt.model))
		})
	}
}

func TestCachedServiceHitAndMiss(t *testing.T) {
	inner := new(MockEmbeddingService)
	inner.On("GetModel").Return("text-embedding-3-small")
	inner.On("GenerateEmbedding", mock.Anything, "안녕하세요").
		Return([]float64{0.1, 0.2}, nil).Once()

	cached, err := NewCachedEmbeddingService(inner, 10)
	require.NoError(t, err)

	vec1, err := cached.GenerateEmbedding(context.Background(), "안녕하세요")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, vec1)

	// Second call must be served from cache; the provider mock would fail
	// on a second invocation.
	vec2, err := cached.GenerateEmbedding(context.Background(), "안녕하세요")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, vec2)
	assert.Equal(t, 1, cached.CacheLen())
	inner.AssertExpectations(t)
}

func TestCachedServiceReturnsCopies(t *testing.T) {
	inner := new(MockEmbeddingService)
	inner.On("GetModel").Return("text-embedding-3-small")
	inner.On("GenerateEmbedding", mock.Anything, "text").
		Return([]float64{1.0, 2.0}, nil).Once()

	cached, err := NewCachedEmbeddingService(inner, 10)
	require.NoError(t, err)

	vec1, err := cached.GenerateEmbedding(context.Background(), "text")
	require.NoError(t, err)
	vec1[0] = 99.0

	vec2, err := cached.GenerateEmbedding(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, 1.0, vec2[0], "mutating a returned vector must not corrupt the cache")
}

func TestCachedServiceBatchPartialHit(t *testing.T) {
	inner := new(MockEmbeddingService)
	inner.On("GetModel").Return("text-embedding-3-small")
	inner.On("GenerateEmbedding", mock.Anything, "cached").
		Return([]float64{0.5}, nil).Once()
	// Only the two uncached texts reach the provider on the batch call
	inner.On("GenerateBatchEmbeddings", mock.Anything, []string{"fresh-a", "fresh-b"}).
		Return([][]float64{{0.7}, {0.9}}, nil).Once()

	cached, err := NewCachedEmbeddingService(inner, 10)
	require.NoError(t, err)

	_, err = cached.GenerateEmbedding(context.Background(), "cached")
	require.NoError(t, err)

	vectors, err := cached.GenerateBatchEmbeddings(context.Background(),
		[]string{"fresh-a", "cached", "fresh-b"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float64{0.7}, vectors[0])
	assert.Equal(t, []float64{0.5}, vectors[1])
	assert.Equal(t, []float64{0.9}, vectors[2])
	assert.Equal(t, 3, cached.CacheLen())
	inner.AssertExpectations(t)
}

func TestCachedServiceBatchAllHits(t *testing.T) {
	inner := new(MockEmbeddingService)
	inner.On("GetModel").Return("text-embedding-3-small")
	inner.On("GenerateEmbedding", mock.Anything, "one").Return([]float64{0.1}, nil).Once()
	inner.On("GenerateEmbedding", mock.Anything, "two").Return([]float64{0.2}, nil).Once()

	cached, err := NewCachedEmbeddingService(inner, 10)
	require.NoError(t, err)

	_, err = cached.GenerateEmbedding(context.Background(), "one")
	require.NoError(t, err)
	_, err = cached.GenerateEmbedding(context.Background(), "two")
	require.NoError(t, err)

	vectors, err := cached.GenerateBatchEmbeddings(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.1}, {0.2}}, vectors)
	inner.AssertNotCalled(t, "GenerateBatchEmbeddings")
}

func TestRetryableServiceRetriesTransientFailures(t *testing.T) {
	inner := new(MockEmbeddingService)
	inner.On("GenerateEmbedding", mock.Anything, "query").
		Return(nil, retry.Temporary(errors.New("provider overloaded"))).Once()
	inner.On("GenerateEmbedding", mock.Anything, "query").
		Return([]float64{0.3}, nil).Once()

	cfg := retry.DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	service := NewRetryableEmbeddingService(inner, cfg)

	vec, err := service.GenerateEmbedding(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3}, vec)
	inner.AssertExpectations(t)
}

func TestRetryableServiceFailsFastOnPermanent(t *testing.T) {
	inner := new(MockEmbeddingService)
	inner.On("GenerateBatchEmbeddings", mock.Anything, mock.Anything).
		Return(nil, retry.Permanent(errors.New("invalid api key"))).Once()

	cfg := retry.DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	service := NewRetryableEmbeddingService(inner, cfg)

	_, err := service.GenerateBatchEmbeddings(context.Background(), []string{"a"})
	require.Error(t, err)
	inner.AssertNumberOfCalls(t, "GenerateBatchEmbeddings", 1)
}

func TestGenerateEmbeddingRejectsEmptyText(t *testing.T) {
	service := NewOpenAIEmbeddingService(testOpenAIConfig())

	_, err := service.GenerateEmbedding(context.Background(), "   ")
	require.Error(t, err)
	assert.False(t, retry.DefaultRetryIf(err), "empty input must not be retried")

	_, err = service.GenerateBatchEmbeddings(context.Background(), nil)
	require.Error(t, err)
	assert.False(t, retry.DefaultRetryIf(err))
}

func TestRateLimiterRefills(t *testing.T) {
	limiter := NewRateLimiter(2, 10*time.Millisecond)

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow(), "bucket exhausted")

	time.Sleep(25 * time.Millisecond)
	assert.True(t, limiter.Allow(), "bucket refills over time")
}

func TestRateLimiterWaitHonorsContext(t *testing.T) {
	limiter := NewRateLimiter(1, time.Hour)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
