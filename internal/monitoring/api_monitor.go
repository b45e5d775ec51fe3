// Package monitoring collects runtime service metrics: per-endpoint request
// statistics, rolling search and LLM performance windows, vector store
// status history, and the JSONL query and error logs.
package monitoring

import (
	"sync"
	"time"
)

// EndpointStats summarizes one "METHOD path" key
type EndpointStats struct {
	RequestCount    int64   `json:"request_count"`
	ErrorCount      int64   `json:"error_count"`
	AvgResponseTime float64 `json:"avg_response_time"`
	MaxResponseTime float64 `json:"max_response_time"`
	MinResponseTime float64 `json:"min_response_time"`
}

// APIStats is the full request-surface snapshot
type APIStats struct {
	UptimeSeconds float64                  `json:"uptime_seconds"`
	TotalRequests int64                    `json:"total_requests"`
	Endpoints     map[string]EndpointStats `json:"endpoints"`
}

type endpointRecord struct {
	count     int64
	errors    int64
	totalTime float64
	maxTime   float64
	minTime   float64
}

// APIMonitor tracks per-endpoint request counts, error counts and latency.
// Statuses >= 400 count as errors. Keys are "METHOD path".
type APIMonitor struct {
	mu        sync.Mutex
	endpoints map[string]*endpointRecord
	startTime time.Time
}

// NewAPIMonitor starts an empty monitor with uptime counted from now
func NewAPIMonitor() *APIMonitor {
	return &APIMonitor{
		endpoints: make(map[string]*endpointRecord),
		startTime: time.Now(),
	}
}

// RecordRequest records one handled request; responseTime is in seconds
func (am *APIMonitor) RecordRequest(method, path string, responseTime float64, statusCode int) {
	am.mu.Lock()
	defer am.mu.Unlock()

	key := method + " " + path
	record, ok := am.endpoints[key]
	if !ok {
		record = &endpointRecord{minTime: responseTime}
		am.endpoints[key] = record
	}
	record.count++
	record.totalTime += responseTime
	if responseTime > record.maxTime {
		record.maxTime = responseTime
	}
	if responseTime < record.minTime {
		record.minTime = responseTime
	}
	if statusCode >= 400 {
		record.errors++
	}
}

// Statistics snapshots all endpoint counters
func (am *APIMonitor) Statistics() APIStats {
	am.mu.Lock()
	defer am.mu.Unlock()

	stats := APIStats{
		UptimeSeconds: time.Since(am.startTime).Seconds(),
		Endpoints:     make(map[string]EndpointStats, len(am.endpoints)),
	}
	for key, record := range am.endpoints {
		stats.TotalRequests += record.count
		stats.Endpoints[key] = EndpointStats{
			RequestCount:    record.count,
			ErrorCount:      record.errors,
			AvgResponseTime: record.totalTime / float64(record.count),
			MaxResponseTime: record.maxTime,
			MinResponseTime: record.minTime,
		}
	}
	return stats
}
