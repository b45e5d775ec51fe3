package monitoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"legal-rag-service/internal/logging"
)

// SearchLogEntry is one logged search query
type SearchLogEntry struct {
	Timestamp    string                 `json:"timestamp"`
	Query        string                 `json:"query"`
	ResultsCount int                    `json:"results_count"`
	ResponseTime float64                `json:"response_time"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// AskLogEntry is one logged Q&A exchange
type AskLogEntry struct {
	Timestamp      string         `json:"timestamp"`
	Type           string         `json:"type"`
	Query          string         `json:"query"`
	SessionID      string         `json:"session_id,omitempty"`
	ResponseLength int            `json:"response_length"`
	ResponseTime   float64        `json:"response_time"`
	TokenUsage     map[string]int `json:"token_usage,omitempty"`
}

// QueryLogger appends search and ask records to a JSONL file. Log failures
// are reported to the service log but never propagate to callers.
type QueryLogger struct {
	path   string
	mu     sync.Mutex
	logger logging.Logger
}

// NewQueryLogger creates the log file's parent directory on first write
func NewQueryLogger(path string) *QueryLogger {
	return &QueryLogger{
		path:   path,
		logger: logging.Default().WithComponent("query_logger"),
	}
}

// LogSearch records one search; responseTime is in seconds
func (ql *QueryLogger) LogSearch(query string, resultsCount int, responseTime float64, metadata map[string]interface{}) {
	ql.append(SearchLogEntry{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Query:        query,
		ResultsCount: resultsCount,
		ResponseTime: responseTime,
		Metadata:     metadata,
	})
}

// LogAsk records one Q&A exchange; responseTime is in seconds
func (ql *QueryLogger) LogAsk(query, sessionID string, responseLength int, responseTime float64, tokenUsage map[string]int) {
	ql.append(AskLogEntry{
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Type:           "ask",
		Query:          query,
		SessionID:      sessionID,
		ResponseLength: responseLength,
		ResponseTime:   responseTime,
		TokenUsage:     tokenUsage,
	})
}

func (ql *QueryLogger) append(entry interface{}) {
	if ql.path == "" {
		return
	}
	line, err := json.Marshal(entry)
	if err != nil {
		ql.logger.Warn("failed to encode query log entry", "error", err)
		return
	}

	ql.mu.Lock()
	defer ql.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(ql.path), 0o755); err != nil {
		ql.logger.Warn("failed to create query log directory", "error", err)
		return
	}
	f, err := os.OpenFile(ql.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		ql.logger.Warn("failed to open query log", "path", ql.path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		ql.logger.Warn("failed to write query log entry", "error", err)
	}
}
