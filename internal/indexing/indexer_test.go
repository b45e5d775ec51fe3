package indexing

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"legal-rag-service/internal/chunking"
	"legal-rag-service/internal/config"
	"legal-rag-service/internal/embeddings"
	"legal-rag-service/internal/models"
	"legal-rag-service/internal/storage"
)

func testChunker() *chunking.Chunker {
	return chunking.NewChunker(&config.ChunkingConfig{
		ChunkSize:           1000,
		ChunkOverlap:        200,
		SplitStatuteByItems: true,
	})
}

func testDocument(id string) *models.Document {
	return &models.Document{
		ID:          id,
		Category:    "형사",
		SubCategory: "사기",
		Type:        models.DocumentTypeFAQ,
		Title:       "사기죄 FAQ",
		Question:    "사기죄란 무엇인가요?",
		Content:     models.TextContent("사기죄는 타인을 기망하여 재물을 편취하는 범죄입니다."),
	}
}

func writeDocumentFile(t *testing.T, dir, id string) string {
	t.Helper()
	doc := testDocument(id)
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, id+".json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestIndexDocumentStoresAllChunksInOneAdd(t *testing.T) {
	store := new(storage.MockVectorStore)
	embedSvc := new(embeddings.MockEmbeddingService)

	embedSvc.On("GenerateBatchEmbeddings", mock.Anything, mock.Anything).
		Return([][]float64{{0.1, 0.2}}, nil).Once()
	store.On("Add", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Once()

	indexer := NewIndexer(store, embedSvc, testChunker(), "legal_documents")
	result := indexer.IndexDocument(context.Background(), testDocument("faq_001"), true)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "faq_001", result.DocumentID)
	assert.Equal(t, 1, result.ChunksCount)
	assert.Equal(t, []string{"faq_001_chunk_0"}, result.IndexedIDs)
	store.AssertNumberOfCalls(t, "Add", 1)
}

func TestIndexDocumentEmbeddingFailureSkipsStore(t *testing.T) {
	store := new(storage.MockVectorStore)
	embedSvc := new(embeddings.MockEmbeddingService)
	embedSvc.On("GenerateBatchEmbeddings", mock.Anything, mock.Anything).
		Return(nil, errors.New("provider down"))

	indexer := NewIndexer(store, embedSvc, testChunker(), "legal_documents")
	result := indexer.IndexDocument(context.Background(), testDocument("faq_001"), true)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	store.AssertNotCalled(t, "Add")
}

func TestIndexDocumentWithoutChunkingWrapsWholeBody(t *testing.T) {
	store := new(storage.MockVectorStore)
	embedSvc := new(embeddings.MockEmbeddingService)

	var capturedTexts []string
	embedSvc.On("GenerateBatchEmbeddings", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			capturedTexts = args.Get(1).([]string)
		}).
		Return([][]float64{{0.1}}, nil)
	store.On("Add", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)

	indexer := NewIndexer(store, embedSvc, testChunker(), "legal_documents")
	doc := testDocument("faq_002")
	result := indexer.IndexDocument(context.Background(), doc, false)

	require.True(t, result.Success)
	assert.Equal(t, 1, result.ChunksCount)
	require.Len(t, capturedTexts, 1)
	assert.Equal(t, doc.Content.String(), capturedTexts[0])
}

func TestIndexFileRejectsInvalidDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id": ""}`), 0o644))

	indexer := NewIndexer(new(storage.MockVectorStore), new(embeddings.MockEmbeddingService), testChunker(), "legal_documents")
	result := indexer.IndexFile(context.Background(), path, true)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestIndexDirectoryAggregates(t *testing.T) {
	dir := t.TempDir()
	writeDocumentFile(t, dir, "doc_001")
	writeDocumentFile(t, dir, "doc_002")

	store := new(storage.MockVectorStore)
	embedSvc := new(embeddings.MockEmbeddingService)
	embedSvc.On("GenerateBatchEmbeddings", mock.Anything, mock.Anything).
		Return([][]float64{{0.1}}, nil)
	store.On("Add", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)

	indexer := NewIndexer(store, embedSvc, testChunker(), "legal_documents")
	result, err := indexer.IndexDirectory(context.Background(), dir, "*.json", true, true)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, result.Details, 2)
}

func TestIndexerStatus(t *testing.T) {
	store := new(storage.MockVectorStore)
	store.On("Count", mock.Anything).Return(int64(42), nil)

	indexer := NewIndexer(store, new(embeddings.MockEmbeddingService), testChunker(), "legal_documents")
	status, err := indexer.Status(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "legal_documents", status.Collection)
	assert.Equal(t, int64(42), status.DocumentCount)
}
