package indexing

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	legalerrors "legal-rag-service/internal/errors"
	"legal-rag-service/internal/logging"
	"legal-rag-service/internal/models"
	"legal-rag-service/internal/storage"
)

// UpdateDetail is one file's entry in an incremental run summary
type UpdateDetail struct {
	File        string `json:"file"`
	Status      string `json:"status"` // new | updated | skipped | failed
	Reason      string `json:"reason,omitempty"`
	ChunksCount int    `json:"chunks_count,omitempty"`
	Error       string `json:"error,omitempty"`
}

// UpdateResult aggregates an incremental update run
type UpdateResult struct {
	Total   int            `json:"total"`
	New     int            `json:"new"`
	Updated int            `json:"updated"`
	Skipped int            `json:"skipped"`
	Failed  int            `json:"failed"`
	Details []UpdateDetail `json:"details"`
}

// UpdaterStatus reports the updater's view of the index
type UpdaterStatus struct {
	IndexedCount  int      `json:"indexed_count"`
	IndexedIDs    []string `json:"indexed_ids"`
	VectorDBCount int64    `json:"vector_db_count"`
}

// IncrementalUpdater indexes only what changed: files whose document id is
// not yet in the state file are new, known ids are re-indexed only when
// forced. State flushes once at the end of a run.
type IncrementalUpdater struct {
	indexer *Indexer
	store   storage.VectorStore
	state   *IndexState
	logger  logging.Logger
}

// NewIncrementalUpdater loads state from stateFile and wires the updater
func NewIncrementalUpdater(indexer *Indexer, store storage.VectorStore, stateFile string) *IncrementalUpdater {
	return &IncrementalUpdater{
		indexer: indexer,
		store:   store,
		state:   LoadIndexState(stateFile),
		logger:  logging.WithComponent("incremental-updater"),
	}
}

// IsIndexed reports whether the document id is recorded as indexed
func (iu *IncrementalUpdater) IsIndexed(id string) bool {
	return iu.state.Contains(id)
}

// UpdateIncremental classifies each matching file as new, updated, skipped
// or failed and indexes the new and updated ones. Non-recursive, matching
// the original's directory scan.
func (iu *IncrementalUpdater) UpdateIncremental(ctx context.Context, dir, pattern string, force bool) (*UpdateResult, error) {
	if pattern == "" {
		pattern = "*.json"
	}
	paths, err := collectFiles(dir, pattern, false)
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Total++
		name := filepath.Base(path)

		docID, err := documentIDFromFile(path)
		if err != nil {
			result.Failed++
			result.Details = append(result.Details, UpdateDetail{
				File: name, Status: "failed", Error: err.Error(),
			})
			continue
		}

		alreadyIndexed := iu.state.Contains(docID)
		if alreadyIndexed && !force {
			result.Skipped++
			result.Details = append(result.Details, UpdateDetail{
				File: name, Status: "skipped", Reason: "already_indexed",
			})
			continue
		}

		indexed := iu.indexer.IndexFile(ctx, path, true)
		if !indexed.Success {
			result.Failed++
			result.Details = append(result.Details, UpdateDetail{
				File: name, Status: "failed", Error: indexed.Error,
			})
			continue
		}

		status := "new"
		if alreadyIndexed {
			status = "updated"
			result.Updated++
		} else {
			result.New++
		}
		iu.state.Add(docID)
		result.Details = append(result.Details, UpdateDetail{
			File: name, Status: status, ChunksCount: indexed.ChunksCount,
		})
	}

	if err := iu.state.Save(); err != nil {
		iu.logger.Error("Failed to persist index state", "error", err)
	}
	iu.logger.Info("Incremental update complete",
		"total", result.Total, "new", result.New, "updated", result.Updated,
		"skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

// RemoveDocument deletes every chunk of the document from the store and
// drops its id from state.
func (iu *IncrementalUpdater) RemoveDocument(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return legalerrors.NewValidationError("document_id", "cannot be empty")
	}
	if err := iu.store.DeleteWhere(ctx, storage.Where{models.MetaDocumentID: id}); err != nil {
		return err
	}
	iu.state.Remove(id)
	if err := iu.state.Save(); err != nil {
		return err
	}
	iu.logger.Info("Document removed from index", "document_id", id)
	return nil
}

// Status reports indexed ids alongside the live vector count
func (iu *IncrementalUpdater) Status(ctx context.Context) (*UpdaterStatus, error) {
	count, err := iu.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &UpdaterStatus{
		IndexedCount:  iu.state.Count(),
		IndexedIDs:    iu.state.IDs(),
		VectorDBCount: count,
	}, nil
}

// State exposes the underlying state record, used by the index monitor
func (iu *IncrementalUpdater) State() *IndexState {
	return iu.state
}

// documentIDFromFile pulls the id field from a document file; the file stem
// stands in when the field is absent.
func documentIDFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}
	if head.ID != "" {
		return head.ID, nil
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), nil
}
