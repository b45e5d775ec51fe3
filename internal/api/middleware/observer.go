package middleware

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"legal-rag-service/internal/logging"
	"legal-rag-service/internal/monitoring"
)

// statusRecorder captures the downstream status and stamps X-Process-Time
// just before headers flush.
type statusRecorder struct {
	http.ResponseWriter
	start  time.Time
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	if sr.status == 0 {
		sr.status = status
		sr.Header().Set("X-Process-Time", fmt.Sprintf("%.4f", time.Since(sr.start).Seconds()))
	}
	sr.ResponseWriter.WriteHeader(status)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.WriteHeader(http.StatusOK)
	}
	return sr.ResponseWriter.Write(b)
}

// Flush forwards flushing for SSE responses
func (sr *statusRecorder) Flush() {
	if flusher, ok := sr.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack forwards connection takeover for WebSocket upgrades
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	sr.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// Observer records every request into the API monitor, sets X-Process-Time
// and writes a structured request log line with a request id.
func Observer(monitor *monitoring.APIMonitor, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &statusRecorder{ResponseWriter: w, start: time.Now()}
			requestID := uuid.NewString()

			next.ServeHTTP(recorder, r)

			elapsed := time.Since(recorder.start)
			path := r.URL.Path
			if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil && routeCtx.RoutePattern() != "" {
				path = routeCtx.RoutePattern()
			}
			status := recorder.status
			if status == 0 {
				status = http.StatusOK
			}
			monitor.RecordRequest(r.Method, path, elapsed.Seconds(), status)
			logger.WithRequestID(requestID).Info("request handled",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", elapsed.Milliseconds(),
				"client_ip", ClientIP(r))
		})
	}
}
