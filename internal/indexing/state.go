// Package indexing builds and maintains the vector index: the batch indexer,
// the incremental updater with its persisted state file, and the index
// health monitor.
package indexing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"legal-rag-service/internal/logging"
)

// IndexState tracks which document ids have been indexed. The on-disk form
// is {"indexed_ids": [...], "last_updated": RFC3339}; writes go through a
// temp file + rename so a crash never leaves a torn state file.
type IndexState struct {
	mu          sync.RWMutex
	path        string
	indexedIDs  map[string]struct{}
	lastUpdated time.Time
	logger      logging.Logger
}

type stateFile struct {
	IndexedIDs  []string `json:"indexed_ids"`
	LastUpdated string   `json:"last_updated"`
}

// LoadIndexState reads the state file at path. A missing file yields an
// empty state; a corrupt file logs a warning and yields an empty state.
func LoadIndexState(path string) *IndexState {
	state := &IndexState{
		path:       path,
		indexedIDs: make(map[string]struct{}),
		logger:     logging.WithComponent("index-state"),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return state
	}
	if err != nil {
		state.logger.Warn("Failed to read index state, starting empty", "path", path, "error", err)
		return state
	}

	var persisted stateFile
	if err := json.Unmarshal(data, &persisted); err != nil {
		state.logger.Warn("Corrupt index state, starting empty", "path", path, "error", err)
		return state
	}

	for _, id := range persisted.IndexedIDs {
		state.indexedIDs[id] = struct{}{}
	}
	if ts, err := time.Parse(time.RFC3339, persisted.LastUpdated); err == nil {
		state.lastUpdated = ts
	}
	state.logger.Info("Index state loaded", "documents", len(state.indexedIDs))
	return state
}

// Contains reports whether the document id is recorded as indexed
func (s *IndexState) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexedIDs[id]
	return ok
}

// Add records a document id
func (s *IndexState) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexedIDs[id] = struct{}{}
}

// Remove drops a document id
func (s *IndexState) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexedIDs, id)
}

// IDs returns the recorded document ids, sorted
func (s *IndexState) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.indexedIDs))
	for id := range s.indexedIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of recorded document ids
func (s *IndexState) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.indexedIDs)
}

// Save writes the state atomically (temp file in the same directory, then
// rename).
func (s *IndexState) Save() error {
	s.mu.Lock()
	s.lastUpdated = time.Now().UTC()
	persisted := stateFile{
		IndexedIDs:  make([]string, 0, len(s.indexedIDs)),
		LastUpdated: s.lastUpdated.Format(time.RFC3339),
	}
	for id := range s.indexedIDs {
		persisted.IndexedIDs = append(persisted.IndexedIDs, id)
	}
	sort.Strings(persisted.IndexedIDs)
	s.mu.Unlock()

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode index state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".index_state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
