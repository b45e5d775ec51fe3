// Package cache provides the query result cache: a fixed-capacity LRU with
// per-entry TTL enforced on read, keyed on the normalized query plus its
// filters.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"legal-rag-service/internal/config"
	"legal-rag-service/internal/logging"
)

// entry is a cached result with its creation time for TTL checks
type entry struct {
	value     interface{}
	createdAt time.Time
}

// Stats reports cache effectiveness
type Stats struct {
	Size       int     `json:"size"`
	MaxSize    int     `json:"max_size"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
	TTLSeconds int     `json:"ttl_seconds"`
}

// QueryCache caches retrieval results per query+filters. Entries expire by
// TTL (checked on read) or by LRU eviction when the cache is full.
type QueryCache struct {
	mu      sync.Mutex
	store   *lru.Cache[string, *entry]
	maxSize int
	ttl     time.Duration
	hits    int64
	misses  int64
	logger  logging.Logger
}

// NewQueryCache creates a cache from config; zero or negative knobs fall
// back to 1000 entries and a one hour TTL.
func NewQueryCache(cfg *config.CacheConfig) (*QueryCache, error) {
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = 1000
	}
	ttlSeconds := cfg.TTLSeconds
	if ttlSeconds <= 0 {
		ttlSeconds = 3600
	}

	store, err := lru.New[string, *entry](maxSize)
	if err != nil {
		return nil, err
	}
	return &QueryCache{
		store:   store,
		maxSize: maxSize,
		ttl:     time.Duration(ttlSeconds) * time.Second,
		logger:  logging.WithComponent("query-cache"),
	}, nil
}

// Key derives the cache key: SHA-256 hex of the canonical JSON of the query
// and its filters. document_types and n_results are folded into the filters
// so differing result shapes never alias.
func Key(query string, nResults int, documentTypes []string, metadataFilters map[string]interface{}) string {
	filters := make(map[string]interface{}, len(metadataFilters)+2)
	for k, v := range metadataFilters {
		filters[k] = v
	}
	filters["n_results"] = nResults
	if len(documentTypes) > 0 {
		filters["document_types"] = documentTypes
	}

	// json.Marshal sorts map keys, which makes the encoding canonical
	payload, err := json.Marshal(map[string]interface{}{
		"query":   query,
		"filters": filters,
	})
	if err != nil {
		// Filters are plain JSON values; reaching here means a programming
		// error upstream. Fall back to the raw query so lookups still work.
		payload = []byte(query)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached value for key. Entries older than the TTL are
// deleted and counted as a miss.
func (qc *QueryCache) Get(key string) (interface{}, bool) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	ent, ok := qc.store.Get(key)
	if !ok {
		qc.misses++
		return nil, false
	}
	if time.Since(ent.createdAt) > qc.ttl {
		qc.store.Remove(key)
		qc.misses++
		return nil, false
	}
	qc.hits++
	return ent.value, true
}

// Set stores a value under key; a full cache evicts its LRU entry
func (qc *QueryCache) Set(key string, value interface{}) {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	qc.store.Add(key, &entry{value: value, createdAt: time.Now()})
}

// Invalidate removes a single entry; returns whether it was present
func (qc *QueryCache) Invalidate(key string) bool {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	return qc.store.Remove(key)
}

// Clear drops every entry without touching hit/miss counters
func (qc *QueryCache) Clear() {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	qc.store.Purge()
}

// CleanupExpired removes every entry past its TTL and returns the count
func (qc *QueryCache) CleanupExpired() int {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	removed := 0
	for _, key := range qc.store.Keys() {
		ent, ok := qc.store.Peek(key)
		if !ok {
			continue
		}
		if time.Since(ent.createdAt) > qc.ttl {
			qc.store.Remove(key)
			removed++
		}
	}
	if removed > 0 {
		qc.logger.Debug("Expired cache entries removed", "count", removed)
	}
	return removed
}

// Len returns the current entry count
func (qc *QueryCache) Len() int {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	return qc.store.Len()
}

// Stats snapshots the cache counters; hit rate is rounded to two decimals
func (qc *QueryCache) Stats() Stats {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	stats := Stats{
		Size:       qc.store.Len(),
		MaxSize:    qc.maxSize,
		Hits:       qc.hits,
		Misses:     qc.misses,
		TTLSeconds: int(qc.ttl / time.Second),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = math.Round(float64(stats.Hits)/float64(total)*100) / 100
	}
	return stats
}
