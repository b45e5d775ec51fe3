package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal-rag-service/internal/config"
)

func testRateLimitConfig() *config.RateLimitConfig {
	return &config.RateLimitConfig{
		Default:  60,
		Search:   3,
		Ask:      2,
		Generate: 1,
		Admin:    2,
	}
}

func newTestLimiter(t *testing.T) *SlidingWindowLimiter {
	t.Helper()
	limiter := NewSlidingWindowLimiter(testRateLimitConfig())
	t.Cleanup(limiter.Stop)
	return limiter
}

func TestPathGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/search", "search"},
		{"/api/v1/ask", "ask"},
		{"/api/v1/ask/stream", "ask"},
		{"/api/v1/generate", "generate"},
		{"/api/v1/admin/index", "admin"},
		{"/api/v1/health", "default"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PathGroup(tt.path), tt.path)
	}
}

func TestAllowWithinLimit(t *testing.T) {
	limiter := newTestLimiter(t)

	for i := 0; i < 3; i++ {
		result := limiter.Allow("10.0.0.1", "/api/v1/search")
		require.True(t, result.Allowed, "request %d", i)
		assert.Equal(t, 3, result.Limit)
		assert.Equal(t, 2-i, result.Remaining)
	}

	result := limiter.Allow("10.0.0.1", "/api/v1/search")
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.False(t, result.Reset.IsZero())
}

func TestAllowIsolatesClients(t *testing.T) {
	limiter := newTestLimiter(t)

	for i := 0; i < 3; i++ {
		limiter.Allow("10.0.0.1", "/api/v1/search")
	}
	assert.False(t, limiter.Allow("10.0.0.1", "/api/v1/search").Allowed)
	assert.True(t, limiter.Allow("10.0.0.2", "/api/v1/search").Allowed,
		"other clients keep their own window")
}

func TestAllowIsolatesPathGroups(t *testing.T) {
	limiter := newTestLimiter(t)

	limiter.Allow("10.0.0.1", "/api/v1/generate")
	assert.False(t, limiter.Allow("10.0.0.1", "/api/v1/generate").Allowed)
	assert.True(t, limiter.Allow("10.0.0.1", "/api/v1/ask").Allowed,
		"exhausting generate leaves ask untouched")
}

func TestAllowZeroLimitDisablesChecking(t *testing.T) {
	limiter := NewSlidingWindowLimiter(&config.RateLimitConfig{})
	defer limiter.Stop()

	for i := 0; i < 100; i++ {
		require.True(t, limiter.Allow("10.0.0.1", "/api/v1/search").Allowed)
	}
}

func TestWindowSlides(t *testing.T) {
	limiter := newTestLimiter(t)

	limiter.Allow("10.0.0.1", "/api/v1/generate")
	require.False(t, limiter.Allow("10.0.0.1", "/api/v1/generate").Allowed)

	// Age the recorded timestamp past the window
	limiter.mu.Lock()
	key := "10.0.0.1|generate"
	for i := range limiter.windows[key] {
		limiter.windows[key][i] = limiter.windows[key][i].Add(-2 * window)
	}
	limiter.mu.Unlock()

	assert.True(t, limiter.Allow("10.0.0.1", "/api/v1/generate").Allowed)
}

func TestCleanupDropsIdleWindows(t *testing.T) {
	limiter := newTestLimiter(t)

	for i := 0; i < 5; i++ {
		limiter.Allow(fmt.Sprintf("10.0.0.%d", i), "/api/v1/search")
	}
	limiter.mu.Lock()
	for key, timestamps := range limiter.windows {
		for i := range timestamps {
			timestamps[i] = timestamps[i].Add(-2 * time.Minute)
		}
		limiter.windows[key] = timestamps
	}
	limiter.mu.Unlock()

	limiter.cleanup()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Empty(t, limiter.windows)
}
