package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	legalerrors "legal-rag-service/internal/errors"

	"legal-rag-service/internal/api/response"
	"legal-rag-service/internal/logging"
	"legal-rag-service/internal/monitoring"
)

// Recoverer turns a handler panic into a logged 500 JSON response and
// records it in the error log.
func Recoverer(logger logging.Logger, errorLog *monitoring.ErrorLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					logger.Error("handler panic",
						"panic", recovered,
						"path", r.URL.Path,
						"stack", string(debug.Stack()))
					if errorLog != nil {
						errorLog.LogError("critical", "PanicError", fmt.Sprint(recovered),
							map[string]interface{}{"path": r.URL.Path, "method": r.Method})
					}
					response.Error(w, legalerrors.NewInternalError("internal server error", nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
