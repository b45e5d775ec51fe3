// Package storage provides the persistent vector index for legal document
// chunks: a VectorStore interface, the Qdrant adapter implementing it, and a
// retry decorator for transient backend failures.
package storage

import (
	"context"
)

// Sentinel is the placeholder value some HTTP clients emit for unset string
// fields. It must never reach a where-filter.
const Sentinel = "string"

// Where is a metadata filter: either a single {key: value} equality or a
// conjunction {"$and": [{k1: v1}, {k2: v2}, ...]}. Disjunctions are not
// supported.
type Where map[string]interface{}

// BuildWhere assembles a where-filter from flat equality constraints.
// Sentinel values and empty keys are dropped. Zero constraints yield nil,
// one yields the single-key form, several yield the $and form.
func BuildWhere(filters map[string]interface{}) Where {
	cleaned := make(map[string]interface{})
	for k, v := range filters {
		if k == "" || v == nil {
			continue
		}
		if s, ok := v.(string); ok && (s == "" || s == Sentinel) {
			continue
		}
		cleaned[k] = v
	}

	switch len(cleaned) {
	case 0:
		return nil
	case 1:
		return Where(cleaned)
	default:
		conditions := make([]Where, 0, len(cleaned))
		for k, v := range cleaned {
			conditions = append(conditions, Where{k: v})
		}
		return Where{"$and": conditions}
	}
}

// Conditions flattens the where-filter back into its equality constraints
func (w Where) Conditions() map[string]interface{} {
	if w == nil {
		return nil
	}
	flat := make(map[string]interface{})
	if and, ok := w["$and"]; ok {
		switch list := and.(type) {
		case []Where:
			for _, cond := range list {
				for k, v := range cond {
					flat[k] = v
				}
			}
		case []interface{}:
			for _, raw := range list {
				if cond, ok := raw.(map[string]interface{}); ok {
					for k, v := range cond {
						flat[k] = v
					}
				}
			}
		}
		return flat
	}
	for k, v := range w {
		flat[k] = v
	}
	return flat
}

// QueryResult holds a nearest-neighbor response as parallel arrays, the
// shape the retrieval workflow translates into result records.
type QueryResult struct {
	IDs       []string                 `json:"ids"`
	Texts     []string                 `json:"documents"`
	Metadatas []map[string]interface{} `json:"metadatas"`
	Distances []float64                `json:"distances"`
}

// VectorStore is the persistent nearest-neighbor index over document chunks
type VectorStore interface {
	// Initialize connects to the backend and ensures the collection exists
	Initialize(ctx context.Context) error

	// Add upserts chunks; idempotent per id. All-or-nothing per call.
	Add(ctx context.Context, ids []string, embeddings [][]float64, texts []string, metadatas []map[string]interface{}) error

	// Search returns the k nearest entries matching the where-filter
	Search(ctx context.Context, queryVec []float64, k int, where Where) (*QueryResult, error)

	// DeleteByIDs removes the entries with the given ids
	DeleteByIDs(ctx context.Context, ids []string) error

	// DeleteWhere removes every entry matching the where-filter
	DeleteWhere(ctx context.Context, where Where) error

	// Update modifies an existing entry; nil/empty arguments leave the
	// corresponding attribute untouched
	Update(ctx context.Context, id string, embedding []float64, text string, metadata map[string]interface{}) error

	// Count returns the number of stored chunks
	Count(ctx context.Context) (int64, error)

	// Reset drops and recreates the collection
	Reset(ctx context.Context) error

	// HealthCheck verifies the backend is reachable
	HealthCheck(ctx context.Context) error

	// Close releases the backend connection
	Close() error
}
