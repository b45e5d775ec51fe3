package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger is the structured logging interface used across the service.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})

	WithComponent(component string) Logger
	WithRequestID(requestID string) Logger
}

// LogLevel represents logging levels.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// LogEntry is the JSON shape of one emitted log line.
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

type contextKey string

// RequestIDKey carries the per-request id through context.
const RequestIDKey contextKey = "request_id"

// StructuredLogger emits JSON (or plain text) log lines to one or more sinks.
type StructuredLogger struct {
	level     LogLevel
	component string
	requestID string
	useJSON   bool

	mu  *sync.Mutex
	out io.Writer
}

// NewLogger creates a logger writing to stdout at the given level.
func NewLogger(level LogLevel) Logger {
	return &StructuredLogger{
		level:   level,
		useJSON: envBool("LOG_JSON", true),
		mu:      &sync.Mutex{},
		out:     os.Stdout,
	}
}

// NewFileLogger creates a logger that also appends to the given file.
// The directory is created if missing. A file open failure degrades to
// stdout-only logging and returns the error for the caller to report.
func NewFileLogger(level LogLevel, path string) (Logger, error) {
	base := &StructuredLogger{
		level:   level,
		useJSON: envBool("LOG_JSON", true),
		mu:      &sync.Mutex{},
		out:     os.Stdout,
	}
	if path == "" {
		return base, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return base, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return base, fmt.Errorf("failed to open log file: %w", err)
	}
	base.out = io.MultiWriter(os.Stdout, f)
	return base, nil
}

func envBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val == "true" || val == "1"
}

// WithComponent returns a logger tagged with a component name.
func (l *StructuredLogger) WithComponent(component string) Logger {
	clone := *l
	clone.component = component
	return &clone
}

// WithRequestID returns a logger tagged with a request id.
func (l *StructuredLogger) WithRequestID(requestID string) Logger {
	clone := *l
	clone.requestID = requestID
	return &clone
}

func (l *StructuredLogger) Debug(msg string, fields ...interface{}) {
	if l.level <= DEBUG {
		l.logEntry("DEBUG", msg, fields...)
	}
}

func (l *StructuredLogger) Info(msg string, fields ...interface{}) {
	if l.level <= INFO {
		l.logEntry("INFO", msg, fields...)
	}
}

func (l *StructuredLogger) Warn(msg string, fields ...interface{}) {
	if l.level <= WARN {
		l.logEntry("WARN", msg, fields...)
	}
}

func (l *StructuredLogger) Error(msg string, fields ...interface{}) {
	if l.level <= ERROR {
		l.logEntry("ERROR", msg, fields...)
	}
}

// Fatal logs the message and exits.
func (l *StructuredLogger) Fatal(msg string, fields ...interface{}) {
	l.logEntry("FATAL", msg, fields...)
	os.Exit(1)
}

func (l *StructuredLogger) logEntry(level, msg string, fields ...interface{}) {
	fieldMap := make(map[string]interface{})
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			key := fmt.Sprintf("%v", fields[i])
			fieldMap[key] = fields[i+1]
		} else {
			fieldMap[fmt.Sprintf("field_%d", i)] = fields[i]
		}
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Message:   msg,
		Component: l.component,
		RequestID: l.requestID,
		Fields:    fieldMap,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.useJSON {
		l.writeJSON(entry)
	} else {
		l.writeText(entry)
	}
}

func (l *StructuredLogger) writeJSON(entry LogEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal log entry: %v\n", err)
		return
	}
	fmt.Fprintln(l.out, string(data))
}

func (l *StructuredLogger) writeText(entry LogEntry) {
	parts := []string{entry.Timestamp, fmt.Sprintf("[%s]", entry.Level)}
	if entry.Component != "" {
		parts = append(parts, fmt.Sprintf("component:%s", entry.Component))
	}
	if entry.RequestID != "" {
		parts = append(parts, fmt.Sprintf("request:%s", shortID(entry.RequestID)))
	}
	parts = append(parts, entry.Message)
	for k, v := range entry.Fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	fmt.Fprintln(l.out, strings.Join(parts, " "))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Default logger instance, replaced at startup once config is loaded.
var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = NewLogger(INFO)
)

// SetDefaultLogger swaps the package-level logger.
func SetDefaultLogger(logger Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// Default returns the package-level logger.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

func Debug(msg string, fields ...interface{}) { Default().Debug(msg, fields...) }
func Info(msg string, fields ...interface{})  { Default().Info(msg, fields...) }
func Warn(msg string, fields ...interface{})  { Default().Warn(msg, fields...) }
func Error(msg string, fields ...interface{}) { Default().Error(msg, fields...) }
func Fatal(msg string, fields ...interface{}) { Default().Fatal(msg, fields...) }

// WithComponent tags the package-level logger with a component name.
func WithComponent(component string) Logger {
	return Default().WithComponent(component)
}

// NewRequestID returns a fresh request id.
func NewRequestID() string {
	return uuid.New().String()
}

// WithRequestID stores a request id in the context, generating one if empty.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = NewRequestID()
	}
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID extracts the request id from the context, if any.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// ParseLogLevel maps a config string onto a LogLevel, defaulting to INFO.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}
