package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal-rag-service/internal/config"
)

func newTestCache(t *testing.T, maxSize, ttlSeconds int) *QueryCache {
	t.Helper()
	qc, err := NewQueryCache(&config.CacheConfig{
		Enabled:    true,
		MaxSize:    maxSize,
		TTLSeconds: ttlSeconds,
	})
	require.NoError(t, err)
	return qc
}

func TestKeyIsDeterministic(t *testing.T) {
	filters := map[string]interface{}{"category": "형사", "type": "case"}

	key1 := Key("사기죄 처벌", 5, []string{"case"}, filters)
	key2 := Key("사기죄 처벌", 5, []string{"case"}, filters)
	assert.Equal(t, key1, key2)
	assert.Len(t, key1, 64, "SHA-256 hex digest")
}

func TestKeyVariesWithAllInputs(t *testing.T) {
	base := Key("사기죄 처벌", 5, []string{"case"}, nil)

	assert.NotEqual(t, base, Key("절도죄 처벌", 5, []string{"case"}, nil), "query")
	assert.NotEqual(t, base, Key("사기죄 처벌", 10, []string{"case"}, nil), "n_results")
	assert.NotEqual(t, base, Key("사기죄 처벌", 5, []string{"statute"}, nil), "document_types")
	assert.NotEqual(t, base, Key("사기죄 처벌", 5, []string{"case"},
		map[string]interface{}{"category": "형사"}), "metadata filters")
}

func TestGetSetRoundTrip(t *testing.T) {
	qc := newTestCache(t, 10, 3600)
	key := Key("query", 5, nil, nil)

	_, ok := qc.Get(key)
	assert.False(t, ok)

	qc.Set(key, "result")
	value, ok := qc.Get(key)
	require.True(t, ok)
	assert.Equal(t, "result", value)
}

func TestExpiredEntryIsDeletedAndCountsAsMiss(t *testing.T) {
	qc := newTestCache(t, 10, 1)
	key := Key("query", 5, nil, nil)

	qc.Set(key, "result")
	ent, found := qc.store.Peek(key)
	require.True(t, found)
	ent.createdAt = time.Now().Add(-2 * time.Second)

	_, ok := qc.Get(key)
	assert.False(t, ok, "expired entries never satisfy Get")
	assert.Equal(t, 0, qc.Len(), "expired entry removed on read")

	stats := qc.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestLRUEvictionKeepsSizeBounded(t *testing.T) {
	qc := newTestCache(t, 3, 3600)

	for i := 0; i < 5; i++ {
		qc.Set(Key(fmt.Sprintf("query-%d", i), 5, nil, nil), i)
	}
	assert.Equal(t, 3, qc.Len())

	// Oldest entries were evicted, newest survive
	_, ok := qc.Get(Key("query-0", 5, nil, nil))
	assert.False(t, ok)
	value, ok := qc.Get(Key("query-4", 5, nil, nil))
	require.True(t, ok)
	assert.Equal(t, 4, value)
}

func TestInvalidateAndClear(t *testing.T) {
	qc := newTestCache(t, 10, 3600)
	key := Key("query", 5, nil, nil)

	qc.Set(key, "result")
	assert.True(t, qc.Invalidate(key))
	assert.False(t, qc.Invalidate(key), "second invalidate finds nothing")

	qc.Set(key, "result")
	qc.Clear()
	assert.Equal(t, 0, qc.Len())
}

func TestCleanupExpired(t *testing.T) {
	qc := newTestCache(t, 10, 1)

	fresh := Key("fresh", 5, nil, nil)
	stale := Key("stale", 5, nil, nil)
	qc.Set(fresh, "a")
	qc.Set(stale, "b")
	ent, found := qc.store.Peek(stale)
	require.True(t, found)
	ent.createdAt = time.Now().Add(-2 * time.Second)

	removed := qc.CleanupExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, qc.Len())

	_, ok := qc.Get(fresh)
	assert.True(t, ok)
}

func TestStatsHitRate(t *testing.T) {
	qc := newTestCache(t, 10, 3600)
	key := Key("query", 5, nil, nil)
	qc.Set(key, "result")

	qc.Get(key)                         // hit
	qc.Get(key)                         // hit
	qc.Get(Key("other", 5, nil, nil))   // miss
	qc.Get(Key("another", 5, nil, nil)) // miss

	stats := qc.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
	assert.Equal(t, 10, stats.MaxSize)
	assert.Equal(t, 3600, stats.TTLSeconds)
}
