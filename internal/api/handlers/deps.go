// Package handlers implements the HTTP endpoints of the legal RAG service.
package handlers

import (
	"legal-rag-service/internal/cache"
	"legal-rag-service/internal/config"
	legalerrors "legal-rag-service/internal/errors"
	"legal-rag-service/internal/embeddings"
	"legal-rag-service/internal/indexing"
	"legal-rag-service/internal/llm"
	"legal-rag-service/internal/monitoring"
	"legal-rag-service/internal/retrieval"
	"legal-rag-service/internal/session"
	"legal-rag-service/internal/storage"
)

// Version is the service version reported by the health endpoints
const Version = "1.0.0"

// Deps carries the wired components every handler group draws from
type Deps struct {
	Config        *config.Config
	Store         storage.VectorStore
	Embeddings    embeddings.EmbeddingService
	Retriever     *retrieval.Retriever
	LLM           llm.Client
	Sessions      *session.Manager
	Cache         *cache.QueryCache
	Indexer       *indexing.Indexer
	Updater       *indexing.IncrementalUpdater
	IndexMonitor  *indexing.IndexMonitor
	APIMonitor    *monitoring.APIMonitor
	Performance   *monitoring.PerformanceMetrics
	VectorMonitor *monitoring.VectorDBMonitor
	QueryLog      *monitoring.QueryLogger
	ErrorLog      *monitoring.ErrorLogger
}

// errorLogType resolves the error-log type for err: the taxonomy code when
// it carries one, the fallback otherwise.
func errorLogType(err error, fallback string) string {
	if legalErr, ok := legalerrors.AsLegalAIError(err); ok {
		return string(legalErr.Code)
	}
	return fallback
}
