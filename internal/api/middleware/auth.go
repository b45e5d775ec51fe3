package middleware

import (
	"crypto/subtle"
	"net/http"

	legalerrors "legal-rag-service/internal/errors"

	"legal-rag-service/internal/api/response"
)

// RequireAPIKey gates a route group on the X-API-Key header. An empty
// configured key disables the check entirely. Comparison is constant-time.
func RequireAPIKey(configuredKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if configuredKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			provided := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(configuredKey)) != 1 {
				w.Header().Set("WWW-Authenticate", "ApiKey")
				response.Error(w, legalerrors.NewUnauthorizedError("invalid or missing API key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
