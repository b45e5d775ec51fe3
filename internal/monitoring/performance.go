package monitoring

import (
	"sync"
	"time"
)

// rollingLimit caps the retained per-kind metric records
const rollingLimit = 1000

// searchRecord is one search's performance sample
type searchRecord struct {
	timestamp    time.Time
	resultsCount int
	responseTime float64
}

// llmRecord is one completion's token and latency sample
type llmRecord struct {
	timestamp        time.Time
	promptTokens     int
	completionTokens int
	totalTokens      int
	responseTime     float64
}

// SearchStats summarizes recent searches
type SearchStats struct {
	Total           int     `json:"total"`
	AvgResponseTime float64 `json:"avg_response_time,omitempty"`
	MaxResponseTime float64 `json:"max_response_time,omitempty"`
	MinResponseTime float64 `json:"min_response_time,omitempty"`
}

// LLMStats summarizes recent completions
type LLMStats struct {
	TotalRequests         int     `json:"total_requests"`
	TotalTokens           int     `json:"total_tokens,omitempty"`
	TotalPromptTokens     int     `json:"total_prompt_tokens,omitempty"`
	TotalCompletionTokens int     `json:"total_completion_tokens,omitempty"`
	AvgTokensPerRequest   float64 `json:"avg_tokens_per_request,omitempty"`
}

// PerformanceMetrics keeps rolling windows (last 1000 records) of search and
// LLM samples; stats cover the trailing 24 hours.
type PerformanceMetrics struct {
	mu            sync.Mutex
	searchSamples []searchRecord
	llmSamples    []llmRecord
}

// NewPerformanceMetrics starts empty rolling windows
func NewPerformanceMetrics() *PerformanceMetrics {
	return &PerformanceMetrics{}
}

// RecordSearch samples one search; responseTime is in seconds
func (pm *PerformanceMetrics) RecordSearch(resultsCount int, responseTime float64) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.searchSamples = append(pm.searchSamples, searchRecord{
		timestamp:    time.Now(),
		resultsCount: resultsCount,
		responseTime: responseTime,
	})
	if len(pm.searchSamples) > rollingLimit {
		pm.searchSamples = pm.searchSamples[len(pm.searchSamples)-rollingLimit:]
	}
}

// RecordLLMUsage samples one completion's token usage
func (pm *PerformanceMetrics) RecordLLMUsage(promptTokens, completionTokens, totalTokens int, responseTime float64) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.llmSamples = append(pm.llmSamples, llmRecord{
		timestamp:        time.Now(),
		promptTokens:     promptTokens,
		completionTokens: completionTokens,
		totalTokens:      totalTokens,
		responseTime:     responseTime,
	})
	if len(pm.llmSamples) > rollingLimit {
		pm.llmSamples = pm.llmSamples[len(pm.llmSamples)-rollingLimit:]
	}
}

// SearchStats summarizes searches in the trailing 24-hour window
func (pm *PerformanceMetrics) SearchStats() SearchStats {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	cutoff := time.Now().Add(-24 * time.Hour)
	var stats SearchStats
	var total float64
	for _, sample := range pm.searchSamples {
		if sample.timestamp.Before(cutoff) {
			continue
		}
		if stats.Total == 0 {
			stats.MinResponseTime = sample.responseTime
		}
		stats.Total++
		total += sample.responseTime
		if sample.responseTime > stats.MaxResponseTime {
			stats.MaxResponseTime = sample.responseTime
		}
		if sample.responseTime < stats.MinResponseTime {
			stats.MinResponseTime = sample.responseTime
		}
	}
	if stats.Total > 0 {
		stats.AvgResponseTime = total / float64(stats.Total)
	}
	return stats
}

// LLMStats summarizes completions in the trailing 24-hour window
func (pm *PerformanceMetrics) LLMStats() LLMStats {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	cutoff := time.Now().Add(-24 * time.Hour)
	var stats LLMStats
	for _, sample := range pm.llmSamples {
		if sample.timestamp.Before(cutoff) {
			continue
		}
		stats.TotalRequests++
		stats.TotalTokens += sample.totalTokens
		stats.TotalPromptTokens += sample.promptTokens
		stats.TotalCompletionTokens += sample.completionTokens
	}
	if stats.TotalRequests > 0 {
		stats.AvgTokensPerRequest = float64(stats.TotalTokens) / float64(stats.TotalRequests)
	}
	return stats
}
