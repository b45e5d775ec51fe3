// Package errors provides the typed failure taxonomy shared across the service.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents semantic error codes for consistent error handling.
type ErrorCode string

const (
	// Domain errors
	ErrorCodeVectorStore   ErrorCode = "VECTOR_STORE_ERROR"
	ErrorCodeEmbedding     ErrorCode = "EMBEDDING_ERROR"
	ErrorCodeSearch        ErrorCode = "SEARCH_ERROR"
	ErrorCodeLLM           ErrorCode = "LLM_ERROR"
	ErrorCodeSession       ErrorCode = "SESSION_ERROR"
	ErrorCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrorCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrorCodeGeneral       ErrorCode = "GENERAL_ERROR"

	// Request-surface errors
	ErrorCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrorCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrorCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrorCodeInternal           ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// LegalAIError is the base typed failure carried across component boundaries.
// It serializes as {"error": {"code", "message", "details"}}.
type LegalAIError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *LegalAIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *LegalAIError) Unwrap() error {
	return e.cause
}

// WithDetail attaches one detail entry and returns the error for chaining.
func (e *LegalAIError) WithDetail(key string, value interface{}) *LegalAIError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause records the underlying error.
func (e *LegalAIError) WithCause(cause error) *LegalAIError {
	e.cause = cause
	return e
}

// envelope is the wire form of a LegalAIError.
type envelope struct {
	Error *LegalAIError `json:"error"`
}

// MarshalJSON wraps the error in its envelope form.
func (e *LegalAIError) MarshalJSON() ([]byte, error) {
	type alias LegalAIError
	return json.Marshal((*alias)(e))
}

// ToJSON renders the {"error": {...}} envelope.
func (e *LegalAIError) ToJSON() ([]byte, error) {
	return json.Marshal(envelope{Error: e})
}

// New creates a LegalAIError with an arbitrary code.
func New(code ErrorCode, message string) *LegalAIError {
	return &LegalAIError{Code: code, Message: message}
}

// NewVectorStoreError reports a vector database failure.
func NewVectorStoreError(message string, cause error) *LegalAIError {
	return &LegalAIError{Code: ErrorCodeVectorStore, Message: message, cause: cause}
}

// NewEmbeddingError reports an embedding provider failure.
func NewEmbeddingError(message string, cause error) *LegalAIError {
	return &LegalAIError{Code: ErrorCodeEmbedding, Message: message, cause: cause}
}

// NewSearchError reports a retrieval pipeline failure.
func NewSearchError(message string, cause error) *LegalAIError {
	return &LegalAIError{Code: ErrorCodeSearch, Message: message, cause: cause}
}

// NewLLMError reports a generation provider failure.
func NewLLMError(message string, cause error) *LegalAIError {
	return &LegalAIError{Code: ErrorCodeLLM, Message: message, cause: cause}
}

// NewSessionError reports a conversation session failure.
func NewSessionError(message string, cause error) *LegalAIError {
	return &LegalAIError{Code: ErrorCodeSession, Message: message, cause: cause}
}

// NewValidationError reports a document or request validation failure
// with the offending field recorded in the details map.
func NewValidationError(field, reason string) *LegalAIError {
	return &LegalAIError{
		Code:    ErrorCodeValidation,
		Message: fmt.Sprintf("validation failed for field '%s': %s", field, reason),
		Details: map[string]interface{}{"field": field, "reason": reason},
	}
}

// NewConfigurationError reports an invalid or missing configuration value.
func NewConfigurationError(message string) *LegalAIError {
	return &LegalAIError{Code: ErrorCodeConfiguration, Message: message}
}

// NewUnauthorizedError reports a rejected credential.
func NewUnauthorizedError(reason string) *LegalAIError {
	return &LegalAIError{
		Code:    ErrorCodeUnauthorized,
		Message: "authentication required",
		Details: map[string]interface{}{"reason": reason},
	}
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resource, id string) *LegalAIError {
	return &LegalAIError{
		Code:    ErrorCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: map[string]interface{}{"id": id},
	}
}

// NewInternalError reports an unclassified server-side failure.
func NewInternalError(message string, cause error) *LegalAIError {
	return &LegalAIError{Code: ErrorCodeInternal, Message: message, cause: cause}
}

// ToHTTPStatus maps the taxonomy onto HTTP status codes. Domain errors
// surface as 400 matching the wire contract; transport-level codes keep
// their conventional statuses.
func (e *LegalAIError) ToHTTPStatus() int {
	switch e.Code {
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrorCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrorCodeInternal:
		return http.StatusInternalServerError
	case ErrorCodeVectorStore, ErrorCodeEmbedding, ErrorCodeSearch,
		ErrorCodeLLM, ErrorCodeSession, ErrorCodeValidation,
		ErrorCodeConfiguration, ErrorCodeGeneral:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// AsLegalAIError extracts a *LegalAIError from an error chain.
func AsLegalAIError(err error) (*LegalAIError, bool) {
	var legalErr *LegalAIError
	if errors.As(err, &legalErr) {
		return legalErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code ErrorCode) bool {
	if legalErr, ok := AsLegalAIError(err); ok {
		return legalErr.Code == code
	}
	return false
}

// IsValidation reports whether err is a validation failure; validation
// failures are never retried.
func IsValidation(err error) bool {
	return IsCode(err, ErrorCodeValidation)
}
