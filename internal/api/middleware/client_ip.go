// Package middleware carries the request-surface cross-cutting handlers:
// API-key auth, CORS, request observation, rate limiting and panic recovery.
package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the caller's address: X-Forwarded-For (first hop),
// then X-Real-IP, then the connection's remote address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
