package indexing

import (
	"context"
	"fmt"
	"time"

	"legal-rag-service/internal/logging"
	"legal-rag-service/internal/storage"
)

// HealthStatus is the index health snapshot
type HealthStatus struct {
	Status           string `json:"status"` // healthy | empty | error
	VectorDBCount    int64  `json:"vector_db_count"`
	IndexedDocuments int    `json:"indexed_documents"`
	Error            string `json:"error,omitempty"`
	Timestamp        string `json:"timestamp"`
}

// Statistics summarizes index contents
type Statistics struct {
	TotalChunks             int64   `json:"total_chunks"`
	IndexedDocuments        int     `json:"indexed_documents"`
	AverageChunksPerDoc     float64 `json:"average_chunks_per_document"`
	Collection              string  `json:"collection_name"`
}

// ConsistencyReport compares the state file against the live store
type ConsistencyReport struct {
	Consistent       bool     `json:"consistent"`
	Issues           []string `json:"issues"`
	VectorDBCount    int64    `json:"vector_db_count"`
	IndexedDocuments int      `json:"indexed_documents"`
}

// IndexMonitor reports index health, statistics and state/store consistency
type IndexMonitor struct {
	store   storage.VectorStore
	updater *IncrementalUpdater
	logger  logging.Logger
}

// NewIndexMonitor wires the monitor onto the store and updater
func NewIndexMonitor(store storage.VectorStore, updater *IncrementalUpdater) *IndexMonitor {
	return &IndexMonitor{
		store:   store,
		updater: updater,
		logger:  logging.WithComponent("index-monitor"),
	}
}

// Health reports healthy when the store holds vectors, empty when it holds
// none, and error when the store is unreachable.
func (im *IndexMonitor) Health(ctx context.Context) HealthStatus {
	now := time.Now().UTC().Format(time.RFC3339)
	count, err := im.store.Count(ctx)
	if err != nil {
		im.logger.Error("Index health check failed", "error", err)
		return HealthStatus{Status: "error", Error: err.Error(), Timestamp: now}
	}

	status := "healthy"
	if count == 0 {
		status = "empty"
	}
	return HealthStatus{
		Status:           status,
		VectorDBCount:    count,
		IndexedDocuments: im.updater.State().Count(),
		Timestamp:        now,
	}
}

// Statistics reports chunk totals and the average chunks per document
func (im *IndexMonitor) Statistics(ctx context.Context) (*Statistics, error) {
	count, err := im.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	indexed := im.updater.State().Count()
	stats := &Statistics{
		TotalChunks:      count,
		IndexedDocuments: indexed,
		Collection:       im.updater.indexer.Collection(),
	}
	if indexed > 0 {
		stats.AverageChunksPerDoc = float64(count) / float64(indexed)
	}
	return stats, nil
}

// CheckConsistency flags mismatches between the state file and the store
func (im *IndexMonitor) CheckConsistency(ctx context.Context) ConsistencyReport {
	indexed := im.updater.State().Count()
	count, err := im.store.Count(ctx)
	if err != nil {
		return ConsistencyReport{
			Consistent:       false,
			Issues:           []string{fmt.Sprintf("vector store unreachable: %v", err)},
			IndexedDocuments: indexed,
		}
	}

	var issues []string
	// Every indexed document yields at least one chunk
	if count < int64(indexed) {
		issues = append(issues, fmt.Sprintf(
			"vector store holds %d entries, fewer than the %d indexed documents", count, indexed))
	}
	if count == 0 && indexed > 0 {
		issues = append(issues, "index state lists documents but the vector store is empty")
	}
	return ConsistencyReport{
		Consistent:       len(issues) == 0,
		Issues:           issues,
		VectorDBCount:    count,
		IndexedDocuments: indexed,
	}
}
