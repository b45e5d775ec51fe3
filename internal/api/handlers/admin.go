package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"legal-rag-service/internal/api/response"
	legalerrors "legal-rag-service/internal/errors"
	"legal-rag-service/internal/indexing"
	"legal-rag-service/internal/logging"
	"legal-rag-service/internal/storage"
)

// maxUploadBytes caps one uploaded document file
const maxUploadBytes = 10 << 20

// IndexRequest is the POST /admin/index body
type IndexRequest struct {
	Directory string `json:"directory"`
	Pattern   string `json:"pattern,omitempty"`
	Chunk     *bool  `json:"chunk,omitempty"`
	Recursive bool   `json:"recursive,omitempty"`
}

// AdminHandler serves the credentialed index-management endpoints
type AdminHandler struct {
	indexer *indexing.Indexer
	updater *indexing.IncrementalUpdater
	monitor *indexing.IndexMonitor
	store   storage.VectorStore
	dataDir string
	logger  logging.Logger
}

// NewAdminHandler wires the admin endpoints
func NewAdminHandler(deps *Deps) *AdminHandler {
	dataDir := "./data"
	if deps.Config != nil && deps.Config.Data.Dir != "" {
		dataDir = deps.Config.Data.Dir
	}
	return &AdminHandler{
		indexer: deps.Indexer,
		updater: deps.Updater,
		monitor: deps.IndexMonitor,
		store:   deps.Store,
		dataDir: dataDir,
		logger:  logging.WithComponent("admin_handler"),
	}
}

// Index handles POST /admin/index: full directory indexing
func (h *AdminHandler) Index(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ValidationError(w, "body", "invalid JSON")
		return
	}
	if req.Directory == "" {
		response.ValidationError(w, "directory", "must not be empty")
		return
	}
	pattern := req.Pattern
	if pattern == "" {
		pattern = "*.json"
	}
	chunk := true
	if req.Chunk != nil {
		chunk = *req.Chunk
	}

	result, err := h.indexer.IndexDirectory(r.Context(), req.Directory, pattern, chunk, req.Recursive)
	if err != nil {
		h.logger.Error("directory indexing failed", "directory", req.Directory, "error", err)
		response.Error(w, legalerrors.NewVectorStoreError("indexing failed", err))
		return
	}
	// Full indexing also records ids for the incremental updater
	for _, detail := range result.Details {
		if detail.Result.Success && detail.Result.DocumentID != "" {
			h.updater.State().Add(detail.Result.DocumentID)
		}
	}
	if err := h.updater.State().Save(); err != nil {
		h.logger.Warn("failed to persist index state", "error", err)
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success":   result.Failed == 0,
		"total":     result.Total,
		"indexed":   result.Success,
		"failed":    result.Failed,
		"details":   result.Details,
		"timestamp": response.Timestamp(),
	})
}

// IndexIncremental handles POST /admin/index/incremental with query
// parameters directory, pattern and force
func (h *AdminHandler) IndexIncremental(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	directory := params.Get("directory")
	if directory == "" {
		response.ValidationError(w, "directory", "must not be empty")
		return
	}
	pattern := params.Get("pattern")
	if pattern == "" {
		pattern = "*.json"
	}
	force := params.Get("force") == "true"

	result, err := h.updater.UpdateIncremental(r.Context(), directory, pattern, force)
	if err != nil {
		h.logger.Error("incremental update failed", "directory", directory, "error", err)
		response.Error(w, legalerrors.NewVectorStoreError("incremental update failed", err))
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"total":     result.Total,
		"new":       result.New,
		"updated":   result.Updated,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
		"details":   result.Details,
		"timestamp": response.Timestamp(),
	})
}

// IndexStatus handles GET /admin/index/status; open without credentials
func (h *AdminHandler) IndexStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.updater.Status(r.Context())
	if err != nil {
		response.Error(w, legalerrors.NewVectorStoreError("failed to read index status", err))
		return
	}
	health := h.monitor.Health(r.Context())
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":          health.Status,
		"indexed_count":   status.IndexedCount,
		"indexed_ids":     status.IndexedIDs,
		"vector_db_count": status.VectorDBCount,
		"timestamp":       response.Timestamp(),
	})
}

// IndexReset handles POST /admin/index/reset: drops the collection and
// clears the index state
func (h *AdminHandler) IndexReset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(r.Context()); err != nil {
		h.logger.Error("collection reset failed", "error", err)
		response.Error(w, legalerrors.NewVectorStoreError("failed to reset collection", err))
		return
	}
	state := h.updater.State()
	for _, id := range state.IDs() {
		state.Remove(id)
	}
	if err := state.Save(); err != nil {
		h.logger.Warn("failed to persist cleared index state", "error", err)
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"timestamp": response.Timestamp(),
	})
}

// Upload handles POST /admin/upload: one multipart document file, stored
// under the data directory and indexed immediately
func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.ValidationError(w, "body", "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		response.ValidationError(w, "file", "missing file field")
		return
	}
	defer file.Close()

	uploadDir := filepath.Join(h.dataDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		response.Error(w, legalerrors.NewInternalError("failed to store upload", err))
		return
	}
	target := filepath.Join(uploadDir, filepath.Base(header.Filename))
	dst, err := os.Create(target)
	if err != nil {
		response.Error(w, legalerrors.NewInternalError("failed to store upload", err))
		return
	}
	if _, err := io.Copy(dst, io.LimitReader(file, maxUploadBytes)); err != nil {
		dst.Close()
		response.Error(w, legalerrors.NewInternalError("failed to store upload", err))
		return
	}
	dst.Close()

	result := h.indexer.IndexFile(r.Context(), target, true)
	if !result.Success {
		response.Error(w, legalerrors.NewValidationError("file", result.Error))
		return
	}
	h.updater.State().Add(result.DocumentID)
	if err := h.updater.State().Save(); err != nil {
		h.logger.Warn("failed to persist index state", "error", err)
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"document_id":  result.DocumentID,
		"chunks_count": result.ChunksCount,
		"filename":     header.Filename,
		"timestamp":    response.Timestamp(),
	})
}
