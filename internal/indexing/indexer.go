package indexing

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"legal-rag-service/internal/chunking"
	"legal-rag-service/internal/embeddings"
	"legal-rag-service/internal/logging"
	"legal-rag-service/internal/models"
	"legal-rag-service/internal/storage"
)

// defaultParallelism bounds concurrent file indexing in IndexDirectory
const defaultParallelism = 4

// DocumentResult reports one document's indexing outcome
type DocumentResult struct {
	Success     bool     `json:"success"`
	DocumentID  string   `json:"document_id,omitempty"`
	ChunksCount int      `json:"chunks_count,omitempty"`
	IndexedIDs  []string `json:"indexed_ids,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// FileDetail is one file's entry in a directory indexing summary
type FileDetail struct {
	File   string         `json:"file"`
	Result DocumentResult `json:"result"`
}

// DirectoryResult aggregates a directory indexing run
type DirectoryResult struct {
	Total   int          `json:"total"`
	Success int          `json:"success"`
	Failed  int          `json:"failed"`
	Details []FileDetail `json:"details"`
}

// Status describes the index's collection and its entry count
type Status struct {
	Collection    string `json:"collection"`
	DocumentCount int64  `json:"document_count"`
}

// Indexer runs the validate → chunk → embed → store pipeline. A document's
// chunks land in one batched Add, so a mid-pipeline failure leaves either
// all of them or none.
type Indexer struct {
	store       storage.VectorStore
	embeddings  embeddings.EmbeddingService
	chunker     *chunking.Chunker
	collection  string
	parallelism int
	logger      logging.Logger
}

// NewIndexer wires the indexing pipeline
func NewIndexer(store storage.VectorStore, embeddingService embeddings.EmbeddingService, chunker *chunking.Chunker, collection string) *Indexer {
	if collection == "" {
		collection = "legal_documents"
	}
	return &Indexer{
		store:       store,
		embeddings:  embeddingService,
		chunker:     chunker,
		collection:  collection,
		parallelism: defaultParallelism,
		logger:      logging.WithComponent("indexer"),
	}
}

// IndexDocument chunks, embeds and stores one document. chunk=false wraps
// the whole body as a single chunk.
func (ix *Indexer) IndexDocument(ctx context.Context, doc *models.Document, chunk bool) DocumentResult {
	var chunks []models.Chunk
	if chunk {
		chunks = ix.chunker.Chunk(doc)
	} else {
		chunks = []models.Chunk{models.NewChunk(doc.Content.String(), 0, doc)}
	}
	if len(chunks) == 0 {
		return DocumentResult{
			Success:    false,
			DocumentID: doc.ID,
			Error:      "document produced no chunks",
		}
	}

	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	metadatas := make([]map[string]interface{}, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		ids[i] = models.ChunkID(doc.ID, c.Index())
		meta := doc.StoreMetadata()
		meta["title"] = models.ChunkTitle(doc.Title, c.Index())
		for k, v := range c.Metadata {
			meta[k] = v
		}
		metadatas[i] = meta
	}

	vectors, err := ix.embeddings.GenerateBatchEmbeddings(ctx, texts)
	if err != nil {
		return DocumentResult{Success: false, DocumentID: doc.ID, Error: err.Error()}
	}
	if err := ix.store.Add(ctx, ids, vectors, texts, metadatas); err != nil {
		return DocumentResult{Success: false, DocumentID: doc.ID, Error: err.Error()}
	}

	ix.logger.Debug("Document indexed", "document_id", doc.ID, "chunks", len(chunks))
	return DocumentResult{
		Success:     true,
		DocumentID:  doc.ID,
		ChunksCount: len(chunks),
		IndexedIDs:  ids,
	}
}

// IndexFile reads, validates and indexes one JSON document file
func (ix *Indexer) IndexFile(ctx context.Context, path string, chunk bool) DocumentResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return DocumentResult{Success: false, Error: fmt.Sprintf("failed to read %s: %v", path, err)}
	}
	doc, err := models.ParseDocument(data)
	if err != nil {
		return DocumentResult{Success: false, Error: err.Error()}
	}
	return ix.IndexDocument(ctx, doc, chunk)
}

// IndexDirectory indexes every file matching pattern under dir, with bounded
// parallelism across files. recursive=false stays in the top directory.
func (ix *Indexer) IndexDirectory(ctx context.Context, dir, pattern string, chunk, recursive bool) (*DirectoryResult, error) {
	if pattern == "" {
		pattern = "*.json"
	}
	paths, err := collectFiles(dir, pattern, recursive)
	if err != nil {
		return nil, err
	}

	result := &DirectoryResult{
		Total:   len(paths),
		Details: make([]FileDetail, len(paths)),
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(ix.parallelism)

	for i, path := range paths {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			fileResult := ix.IndexFile(groupCtx, path, chunk)
			rel, relErr := filepath.Rel(dir, path)
			if relErr != nil {
				rel = path
			}

			mu.Lock()
			result.Details[i] = FileDetail{File: rel, Result: fileResult}
			if fileResult.Success {
				result.Success++
			} else {
				result.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return result, err
	}

	ix.logger.Info("Directory indexing complete",
		"dir", dir, "total", result.Total, "success", result.Success, "failed", result.Failed)
	return result, nil
}

// Status reports the collection name and its vector count
func (ix *Indexer) Status(ctx context.Context) (*Status, error) {
	count, err := ix.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{Collection: ix.collection, DocumentCount: count}, nil
}

// Collection returns the target collection name
func (ix *Indexer) Collection() string {
	return ix.collection
}

func collectFiles(dir, pattern string, recursive bool) ([]string, error) {
	if !recursive {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		var files []string
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
				files = append(files, m)
			}
		}
		return files, nil
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		matched, matchErr := filepath.Match(pattern, d.Name())
		if matchErr != nil {
			return matchErr
		}
		if matched {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return files, nil
}
