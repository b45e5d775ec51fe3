// Package ratelimit implements a per-client sliding-window request limiter.
// Each (client IP, path group) pair gets its own 60-second window; limits
// come from configuration per path group.
package ratelimit

import (
	"strings"
	"sync"
	"time"

	"legal-rag-service/internal/config"
)

// window is the sliding-window span
const window = time.Minute

// Result describes one limiter decision
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// SlidingWindowLimiter tracks request timestamps per (client, path group)
// key and allows a request when fewer than the group's limit fall inside
// the trailing window.
type SlidingWindowLimiter struct {
	cfg *config.RateLimitConfig

	mu      sync.Mutex
	windows map[string][]time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewSlidingWindowLimiter starts the limiter and its stale-window cleanup
// loop. Call Stop when the limiter is no longer needed.
func NewSlidingWindowLimiter(cfg *config.RateLimitConfig) *SlidingWindowLimiter {
	limiter := &SlidingWindowLimiter{
		cfg:     cfg,
		windows: make(map[string][]time.Time),
		stop:    make(chan struct{}),
	}
	go limiter.cleanupLoop()
	return limiter
}

// Allow records one request attempt for the client on the path and reports
// whether it fits in the current window.
func (sl *SlidingWindowLimiter) Allow(clientIP, path string) Result {
	limit := sl.limitFor(path)
	if limit <= 0 {
		return Result{Allowed: true, Limit: 0}
	}

	now := time.Now()
	cutoff := now.Add(-window)
	key := clientIP + "|" + PathGroup(path)

	sl.mu.Lock()
	defer sl.mu.Unlock()

	timestamps := pruneBefore(sl.windows[key], cutoff)
	result := Result{Limit: limit, Reset: now.Add(window)}
	if len(timestamps) > 0 {
		result.Reset = timestamps[0].Add(window)
	}

	if len(timestamps) < limit {
		timestamps = append(timestamps, now)
		result.Allowed = true
		result.Remaining = limit - len(timestamps)
	}
	sl.windows[key] = timestamps
	return result
}

// Stop terminates the cleanup loop
func (sl *SlidingWindowLimiter) Stop() {
	sl.stopOnce.Do(func() { close(sl.stop) })
}

// PathGroup maps a request path to its limit group
func PathGroup(path string) string {
	switch {
	case strings.Contains(path, "/admin"):
		return "admin"
	case strings.Contains(path, "/generate"):
		return "generate"
	case strings.Contains(path, "/ask"):
		return "ask"
	case strings.Contains(path, "/search"):
		return "search"
	default:
		return "default"
	}
}

func (sl *SlidingWindowLimiter) limitFor(path string) int {
	if sl.cfg == nil {
		return 0
	}
	switch PathGroup(path) {
	case "admin":
		return sl.cfg.Admin
	case "generate":
		return sl.cfg.Generate
	case "ask":
		return sl.cfg.Ask
	case "search":
		return sl.cfg.Search
	default:
		return sl.cfg.Default
	}
}

func pruneBefore(timestamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(timestamps) && !timestamps[idx].After(cutoff) {
		idx++
	}
	return timestamps[idx:]
}

func (sl *SlidingWindowLimiter) cleanupLoop() {
	ticker := time.NewTicker(window)
	defer ticker.Stop()
	for {
		select {
		case <-sl.stop:
			return
		case <-ticker.C:
			sl.cleanup()
		}
	}
}

func (sl *SlidingWindowLimiter) cleanup() {
	cutoff := time.Now().Add(-window)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	for key, timestamps := range sl.windows {
		pruned := pruneBefore(timestamps, cutoff)
		if len(pruned) == 0 {
			delete(sl.windows, key)
			continue
		}
		sl.windows[key] = pruned
	}
}
