// Package response writes the service's JSON wire envelopes.
package response

import (
	"encoding/json"
	"net/http"
	"time"

	legalerrors "legal-rag-service/internal/errors"
	"legal-rag-service/internal/logging"
)

// Timestamp returns the wire-format timestamp for response bodies
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// JSON writes a JSON body with the given status
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.WithComponent("api").Error("failed to encode response", "error", err)
	}
}

// errorBody is the error envelope with the top-level timestamp
type errorBody struct {
	Error     *legalerrors.LegalAIError `json:"error"`
	Timestamp string                    `json:"timestamp"`
}

// Error writes err as the {"error": {code, message, details}} envelope.
// Untyped errors become a generic 500 without leaking internals.
func Error(w http.ResponseWriter, err error) {
	legalErr, ok := legalerrors.AsLegalAIError(err)
	if !ok {
		legalErr = legalerrors.NewInternalError("internal server error", nil)
	}
	ErrorWithStatus(w, legalErr.ToHTTPStatus(), legalErr)
}

// ErrorWithStatus writes the envelope with an explicit status
func ErrorWithStatus(w http.ResponseWriter, status int, legalErr *legalerrors.LegalAIError) {
	JSON(w, status, errorBody{Error: legalErr, Timestamp: Timestamp()})
}

// ValidationError writes a 400 for a bad request field
func ValidationError(w http.ResponseWriter, field, reason string) {
	Error(w, legalerrors.NewValidationError(field, reason))
}
