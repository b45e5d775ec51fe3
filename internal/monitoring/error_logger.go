package monitoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"legal-rag-service/internal/logging"
)

// alertThreshold triggers a service-log alert every N recorded errors
const alertThreshold = 10

// ErrorLogEntry is one logged service error
type ErrorLogEntry struct {
	Timestamp    string                 `json:"timestamp"`
	Severity     string                 `json:"severity"`
	ErrorType    string                 `json:"error_type"`
	ErrorMessage string                 `json:"error_message"`
	Context      map[string]interface{} `json:"context,omitempty"`
}

// ErrorLogger appends service errors to a JSONL file and raises an alert in
// the service log every 10 recorded errors.
type ErrorLogger struct {
	path   string
	mu     sync.Mutex
	count  int
	logger logging.Logger
}

// NewErrorLogger creates the log file's parent directory on first write
func NewErrorLogger(path string) *ErrorLogger {
	return &ErrorLogger{
		path:   path,
		logger: logging.Default().WithComponent("error_logger"),
	}
}

// LogError records one error with its severity and free-form context
func (el *ErrorLogger) LogError(severity, errorType, message string, context map[string]interface{}) {
	entry := ErrorLogEntry{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Severity:     severity,
		ErrorType:    errorType,
		ErrorMessage: message,
		Context:      context,
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	el.count++
	if el.count >= alertThreshold {
		el.logger.Error("error threshold reached", "count", el.count, "last_error_type", errorType)
		el.count = 0
	}

	if el.path == "" {
		return
	}
	line, err := json.Marshal(entry)
	if err != nil {
		el.logger.Warn("failed to encode error log entry", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(el.path), 0o755); err != nil {
		el.logger.Warn("failed to create error log directory", "error", err)
		return
	}
	f, err := os.OpenFile(el.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		el.logger.Warn("failed to open error log", "path", el.path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		el.logger.Warn("failed to write error log entry", "error", err)
	}
}
