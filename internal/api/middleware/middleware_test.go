package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIPResolutionOrder(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded wins", "203.0.113.7, 10.0.0.1", "198.51.100.2", "192.0.2.1:443", "203.0.113.7"},
		{"real ip next", "", "198.51.100.2", "192.0.2.1:443", "198.51.100.2"},
		{"remote addr last", "", "", "192.0.2.1:443", "192.0.2.1"},
		{"remote addr without port", "", "", "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAPIKeyDisabledWhenEmpty(t *testing.T) {
	handler := RequireAPIKey("")(okHandler())
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/admin/index", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRequireAPIKeyRejectsWrongKey(t *testing.T) {
	handler := RequireAPIKey("secret")(okHandler())

	r := httptest.NewRequest(http.MethodPost, "/admin/index", nil)
	r.Header.Set("X-API-Key", "wrong")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, r)

	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "ApiKey", recorder.Header().Get("WWW-Authenticate"))
	assert.Contains(t, recorder.Body.String(), "UNAUTHORIZED")
}

func TestRequireAPIKeyAcceptsMatch(t *testing.T) {
	handler := RequireAPIKey("secret")(okHandler())

	r := httptest.NewRequest(http.MethodPost, "/admin/index", nil)
	r.Header.Set("X-API-Key", "secret")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, r)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestCORSAllowAll(t *testing.T) {
	handler := CORS("*")(okHandler())
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRestrictedOrigins(t *testing.T) {
	handler := CORS("https://app.example.com, https://admin.example.com")(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://app.example.com")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, r)
	assert.Equal(t, "https://app.example.com", recorder.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, r)
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS("*")(okHandler())
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodOptions, "/", nil))

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Contains(t, recorder.Header().Get("Access-Control-Allow-Headers"), "X-API-Key")
}
