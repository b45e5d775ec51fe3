package middleware

import (
	"net/http"
	"strconv"

	legalerrors "legal-rag-service/internal/errors"

	"legal-rag-service/internal/api/response"
	"legal-rag-service/internal/ratelimit"
)

// RateLimit rejects requests over the client's sliding-window budget with a
// 429 and the X-RateLimit headers.
func RateLimit(limiter *ratelimit.SlidingWindowLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := limiter.Allow(ClientIP(r), r.URL.Path)
			if result.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))
			}
			if !result.Allowed {
				response.Error(w, legalerrors.New(legalerrors.ErrorCodeRateLimited, "rate limit exceeded").
					WithDetail("limit", result.Limit).
					WithDetail("window_seconds", 60))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
