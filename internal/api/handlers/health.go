package handlers

import (
	"net/http"

	"legal-rag-service/internal/api/response"
	"legal-rag-service/internal/embeddings"
	"legal-rag-service/internal/session"
	"legal-rag-service/internal/storage"
)

// HealthHandler serves liveness and per-component health
type HealthHandler struct {
	store      storage.VectorStore
	embeddings embeddings.EmbeddingService
	sessions   *session.Manager
}

// NewHealthHandler wires the health endpoints
func NewHealthHandler(deps *Deps) *HealthHandler {
	return &HealthHandler{
		store:      deps.Store,
		embeddings: deps.Embeddings,
		sessions:   deps.Sessions,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"version":   Version,
		"timestamp": response.Timestamp(),
	})
}

// HealthDetailed handles GET /health/detailed with per-component status
func (h *HealthHandler) HealthDetailed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	components := make(map[string]string)
	overall := "healthy"

	if err := h.store.HealthCheck(ctx); err != nil {
		components["vector_db"] = "unhealthy: " + err.Error()
		overall = "degraded"
	} else {
		components["vector_db"] = "healthy"
	}

	if err := h.embeddings.HealthCheck(ctx); err != nil {
		components["embeddings"] = "unhealthy: " + err.Error()
		overall = "degraded"
	} else {
		components["embeddings"] = "healthy"
	}

	if _, err := h.sessions.ListIDs(ctx); err != nil {
		components["sessions"] = "unhealthy: " + err.Error()
		overall = "degraded"
	} else {
		components["sessions"] = "healthy"
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":     overall,
		"version":    Version,
		"components": components,
		"timestamp":  response.Timestamp(),
	})
}
