package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"legal-rag-service/internal/storage"
)

func TestAPIMonitorRecordsPerEndpoint(t *testing.T) {
	am := NewAPIMonitor()
	am.RecordRequest("POST", "/api/v1/search", 0.2, 200)
	am.RecordRequest("POST", "/api/v1/search", 0.4, 200)
	am.RecordRequest("POST", "/api/v1/search", 0.1, 500)
	am.RecordRequest("GET", "/api/v1/health", 0.01, 200)

	stats := am.Statistics()
	assert.Equal(t, int64(4), stats.TotalRequests)
	require.Contains(t, stats.Endpoints, "POST /api/v1/search")

	search := stats.Endpoints["POST /api/v1/search"]
	assert.Equal(t, int64(3), search.RequestCount)
	assert.Equal(t, int64(1), search.ErrorCount)
	assert.InDelta(t, 0.2333, search.AvgResponseTime, 0.001)
	assert.Equal(t, 0.4, search.MaxResponseTime)
	assert.Equal(t, 0.1, search.MinResponseTime)
}

func TestPerformanceMetricsSearchStats(t *testing.T) {
	pm := NewPerformanceMetrics()
	pm.RecordSearch(5, 0.3)
	pm.RecordSearch(3, 0.1)
	pm.RecordSearch(8, 0.5)

	stats := pm.SearchStats()
	assert.Equal(t, 3, stats.Total)
	assert.InDelta(t, 0.3, stats.AvgResponseTime, 1e-9)
	assert.Equal(t, 0.5, stats.MaxResponseTime)
	assert.Equal(t, 0.1, stats.MinResponseTime)
}

func TestPerformanceMetricsLLMStats(t *testing.T) {
	pm := NewPerformanceMetrics()
	pm.RecordLLMUsage(100, 50, 150, 1.2)
	pm.RecordLLMUsage(200, 100, 300, 2.0)

	stats := pm.LLMStats()
	assert.Equal(t, 2, stats.TotalRequests)
	assert.Equal(t, 450, stats.TotalTokens)
	assert.Equal(t, 300, stats.TotalPromptTokens)
	assert.Equal(t, 150, stats.TotalCompletionTokens)
	assert.Equal(t, 225.0, stats.AvgTokensPerRequest)
}

func TestPerformanceMetricsRollingLimit(t *testing.T) {
	pm := NewPerformanceMetrics()
	for i := 0; i < rollingLimit+50; i++ {
		pm.RecordSearch(1, 0.1)
	}
	assert.Equal(t, rollingLimit, pm.SearchStats().Total)
}

func TestVectorDBMonitorHealthy(t *testing.T) {
	store := new(storage.MockVectorStore)
	store.On("Count", mock.Anything).Return(int64(42), nil)

	vm := NewVectorDBMonitor(store, "legal_documents")
	status := vm.CheckStatus(context.Background())

	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, int64(42), status.DocumentCount)
	assert.Equal(t, "legal_documents", status.Collection)

	summary := vm.Summary()
	assert.Equal(t, "healthy", summary.CurrentStatus)
	assert.Equal(t, 1.0, summary.HealthRate)
	assert.NotEmpty(t, summary.LastCheck)
}

func TestVectorDBMonitorUnhealthy(t *testing.T) {
	store := new(storage.MockVectorStore)
	store.On("Count", mock.Anything).Return(int64(0), errors.New("connection refused"))

	vm := NewVectorDBMonitor(store, "legal_documents")
	status := vm.CheckStatus(context.Background())

	assert.Equal(t, "unhealthy", status.Status)
	assert.Contains(t, status.Error, "connection refused")
	assert.Equal(t, "unhealthy", vm.Summary().CurrentStatus)
}

func TestVectorDBMonitorSummaryWindow(t *testing.T) {
	store := new(storage.MockVectorStore)
	store.On("Count", mock.Anything).Return(int64(0), errors.New("down")).Times(5)
	store.On("Count", mock.Anything).Return(int64(10), nil)

	vm := NewVectorDBMonitor(store, "legal_documents")
	for i := 0; i < 10; i++ {
		vm.CheckStatus(context.Background())
	}

	summary := vm.Summary()
	assert.Equal(t, "healthy", summary.CurrentStatus)
	assert.Equal(t, 0.5, summary.HealthRate)
}

func TestVectorDBMonitorNoChecksYet(t *testing.T) {
	vm := NewVectorDBMonitor(new(storage.MockVectorStore), "legal_documents")
	assert.Equal(t, "unknown", vm.Summary().CurrentStatus)
}

func readLogLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestQueryLoggerWritesSearchAndAskEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "queries.jsonl")
	ql := NewQueryLogger(path)

	ql.LogSearch("사기죄 처벌", 5, 0.42, map[string]interface{}{"category": "형사"})
	ql.LogAsk("사기죄 형량은?", "sess-1", 812, 2.1, map[string]int{
		"prompt_tokens":     100,
		"completion_tokens": 200,
		"total_tokens":      300,
	})

	entries := readLogLines(t, path)
	require.Len(t, entries, 2)

	assert.Equal(t, "사기죄 처벌", entries[0]["query"])
	assert.Equal(t, float64(5), entries[0]["results_count"])
	assert.NotContains(t, entries[0], "type")

	assert.Equal(t, "ask", entries[1]["type"])
	assert.Equal(t, "sess-1", entries[1]["session_id"])
	assert.Equal(t, float64(812), entries[1]["response_length"])
	usage, ok := entries[1]["token_usage"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(300), usage["total_tokens"])
}

func TestQueryLoggerEmptyPathIsNoop(t *testing.T) {
	ql := NewQueryLogger("")
	ql.LogSearch("query", 0, 0, nil)
}

func TestErrorLoggerWritesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "errors.jsonl")
	el := NewErrorLogger(path)

	el.LogError("error", "VectorStoreError", "connection refused", map[string]interface{}{
		"endpoint": "/api/v1/search",
	})

	entries := readLogLines(t, path)
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0]["severity"])
	assert.Equal(t, "VectorStoreError", entries[0]["error_type"])
	assert.Equal(t, "connection refused", entries[0]["error_message"])
	assert.NotEmpty(t, entries[0]["timestamp"])
}
