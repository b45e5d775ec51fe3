package handlers

import (
	"net/http"

	"legal-rag-service/internal/api/response"
	"legal-rag-service/internal/monitoring"
)

// MonitoringHandler serves runtime service statistics
type MonitoringHandler struct {
	api         *monitoring.APIMonitor
	performance *monitoring.PerformanceMetrics
	vectorDB    *monitoring.VectorDBMonitor
}

// NewMonitoringHandler wires the monitoring endpoints
func NewMonitoringHandler(deps *Deps) *MonitoringHandler {
	return &MonitoringHandler{
		api:         deps.APIMonitor,
		performance: deps.Performance,
		vectorDB:    deps.VectorMonitor,
	}
}

// Stats handles GET /monitoring/stats
func (h *MonitoringHandler) Stats(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"api":       h.api.Statistics(),
		"search":    h.performance.SearchStats(),
		"llm":       h.performance.LLMStats(),
		"timestamp": response.Timestamp(),
	})
}

// VectorDB handles GET /monitoring/vector-db: a fresh status probe plus the
// recent-check summary
func (h *MonitoringHandler) VectorDB(w http.ResponseWriter, r *http.Request) {
	status := h.vectorDB.CheckStatus(r.Context())
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"summary":   h.vectorDB.Summary(),
		"timestamp": response.Timestamp(),
	})
}
