package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"legal-rag-service/internal/api/handlers"
	"legal-rag-service/internal/cache"
	"legal-rag-service/internal/chunking"
	"legal-rag-service/internal/config"
	"legal-rag-service/internal/embeddings"
	"legal-rag-service/internal/indexing"
	"legal-rag-service/internal/llm"
	"legal-rag-service/internal/monitoring"
	"legal-rag-service/internal/ratelimit"
	"legal-rag-service/internal/retrieval"
	"legal-rag-service/internal/session"
	"legal-rag-service/internal/storage"
)

type fixture struct {
	deps    *handlers.Deps
	store   *storage.MockVectorStore
	embed   *embeddings.MockEmbeddingService
	llmMock *llm.MockClient
	router  http.Handler
}

func newFixture(t *testing.T, mutate func(cfg *config.Config)) *fixture {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.APIKey = ""
	cfg.Data.QueryLogFile = ""
	cfg.Data.ErrorLogFile = ""
	if mutate != nil {
		mutate(cfg)
	}

	store := new(storage.MockVectorStore)
	embed := new(embeddings.MockEmbeddingService)
	llmMock := new(llm.MockClient)

	queryCache, err := cache.NewQueryCache(&cfg.Cache)
	require.NoError(t, err)

	workflow := retrieval.NewWorkflow(store, embed, &cfg.Search)
	chunker := chunking.NewChunker(&cfg.Chunking)
	indexer := indexing.NewIndexer(store, embed, chunker, "legal_documents")
	updater := indexing.NewIncrementalUpdater(indexer, store, filepath.Join(t.TempDir(), "state.json"))

	deps := &handlers.Deps{
		Config:        cfg,
		Store:         store,
		Embeddings:    embed,
		Retriever:     retrieval.NewRetriever(workflow, &cfg.Search),
		LLM:           llmMock,
		Sessions:      session.NewManagerWithStore(session.NewMemoryStore(100, 0), 3),
		Cache:         queryCache,
		Indexer:       indexer,
		Updater:       updater,
		IndexMonitor:  indexing.NewIndexMonitor(store, updater),
		APIMonitor:    monitoring.NewAPIMonitor(),
		Performance:   monitoring.NewPerformanceMetrics(),
		VectorMonitor: monitoring.NewVectorDBMonitor(store, "legal_documents"),
		QueryLog:      monitoring.NewQueryLogger(cfg.Data.QueryLogFile),
		ErrorLog:      monitoring.NewErrorLogger(cfg.Data.ErrorLogFile),
	}
	limiter := ratelimit.NewSlidingWindowLimiter(&cfg.RateLimit)
	t.Cleanup(limiter.Stop)

	return &fixture{
		deps:    deps,
		store:   store,
		embed:   embed,
		llmMock: llmMock,
		router:  NewRouter(deps, limiter),
	}
}

func (f *fixture) stubSearch(ids ...string) {
	texts := make([]string, len(ids))
	metadatas := make([]map[string]interface{}, len(ids))
	distances := make([]float64, len(ids))
	for i, id := range ids {
		texts[i] = "사기죄 관련 내용 " + id
		metadatas[i] = map[string]interface{}{
			"title": "문서 " + id,
			"type":  "statute",
		}
		distances[i] = 0.1 * float64(i+1)
	}
	f.embed.On("GenerateEmbedding", mock.Anything, mock.Anything).
		Return([]float64{0.1, 0.2}, nil)
	f.store.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&storage.QueryResult{IDs: ids, Texts: texts, Metadatas: metadatas, Distances: distances}, nil)
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:5000"
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	recorder := f.do(t, http.MethodGet, "/api/v1/health", nil, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, handlers.Version, body["version"])
	assert.NotEmpty(t, body["timestamp"])
	assert.NotEmpty(t, recorder.Header().Get("X-Process-Time"))
}

func TestSearchReturnsResults(t *testing.T) {
	f := newFixture(t, nil)
	f.stubSearch("doc_001_chunk_0", "doc_002_chunk_0")

	recorder := f.do(t, http.MethodPost, "/api/v1/search",
		map[string]interface{}{"query": "사기죄 처벌"}, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, "사기죄 처벌", body["query"])
	assert.Equal(t, float64(2), body["total"])
	results := body["results"].([]interface{})
	first := results[0].(map[string]interface{})
	assert.Equal(t, "doc_001_chunk_0", first["id"])
	assert.NotEmpty(t, first["document"])
	assert.Greater(t, first["score"], 0.0)
}

func TestSearchEmptyQueryRejected(t *testing.T) {
	f := newFixture(t, nil)
	recorder := f.do(t, http.MethodPost, "/api/v1/search",
		map[string]interface{}{"query": "  "}, nil)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	body := decodeBody(t, recorder)
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestSearchCacheHitSkipsBackends(t *testing.T) {
	f := newFixture(t, nil)
	f.stubSearch("doc_001_chunk_0")

	request := map[string]interface{}{"query": "사기죄 처벌", "n_results": 5}
	first := f.do(t, http.MethodPost, "/api/v1/search", request, nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := f.do(t, http.MethodPost, "/api/v1/search", request, nil)
	require.Equal(t, http.StatusOK, second.Code)

	f.embed.AssertNumberOfCalls(t, "GenerateEmbedding", 1)
	f.store.AssertNumberOfCalls(t, "Search", 1)

	firstBody := decodeBody(t, first)
	secondBody := decodeBody(t, second)
	delete(firstBody, "timestamp")
	delete(secondBody, "timestamp")
	assert.Equal(t, firstBody, secondBody)
}

func TestSearchCacheDisabledHitsBackendsEveryTime(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Cache.Enabled = false
	})
	f.stubSearch("doc_001_chunk_0")

	request := map[string]interface{}{"query": "사기죄 처벌", "n_results": 5}
	for i := 0; i < 2; i++ {
		recorder := f.do(t, http.MethodPost, "/api/v1/search", request, nil)
		require.Equal(t, http.StatusOK, recorder.Code)
	}

	f.embed.AssertNumberOfCalls(t, "GenerateEmbedding", 2)
	f.store.AssertNumberOfCalls(t, "Search", 2)
}

func TestSearchFailureWritesErrorLog(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "errors.jsonl")
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Data.ErrorLogFile = logFile
	})
	f.embed.On("GenerateEmbedding", mock.Anything, mock.Anything).
		Return(nil, errors.New("embedding backend down"))

	recorder := f.do(t, http.MethodPost, "/api/v1/search",
		map[string]interface{}{"query": "사기죄"}, nil)
	require.GreaterOrEqual(t, recorder.Code, 400)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "embedding backend down")
	assert.Contains(t, string(data), `"severity":"error"`)
}

func TestSearchGetQueryParams(t *testing.T) {
	f := newFixture(t, nil)
	f.stubSearch("doc_001_chunk_0")

	recorder := f.do(t, http.MethodGet,
		"/api/v1/search?query=%EC%82%AC%EA%B8%B0&document_types=statute,case&n_results=3", nil, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, float64(1), decodeBody(t, recorder)["total"])
}

func TestAskRateLimit(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.RateLimit.Ask = 2
	})
	f.stubSearch("doc_001_chunk_0")
	f.llmMock.On("TokenUsage").Return(llm.TokenUsage{})
	f.llmMock.On("GenerateWithSystem", mock.Anything, mock.Anything, mock.Anything).
		Return("사기죄는 형법 제347조에 규정되어 있습니다.", nil)

	request := map[string]interface{}{"query": "사기죄 형량은?"}
	statuses := make([]int, 3)
	for i := range statuses {
		statuses[i] = f.do(t, http.MethodPost, "/api/v1/ask", request, nil).Code
	}
	assert.Equal(t, []int{200, 200, 429}, statuses)

	limited := f.do(t, http.MethodPost, "/api/v1/ask", request, nil)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "2", limited.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", limited.Header().Get("X-RateLimit-Remaining"))
}

func TestAskSessionContinuity(t *testing.T) {
	f := newFixture(t, nil)
	f.stubSearch("doc_001_chunk_0")
	f.llmMock.On("TokenUsage").Return(llm.TokenUsage{})

	var prompts []string
	f.llmMock.On("GenerateWithSystem", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			prompts = append(prompts, args.String(2))
		}).
		Return("사기죄는 10년 이하의 징역에 처합니다.", nil)

	first := f.do(t, http.MethodPost, "/api/v1/ask",
		map[string]interface{}{"query": "사기죄 형량은?"}, nil)
	require.Equal(t, http.StatusOK, first.Code)
	sessionID := decodeBody(t, first)["session_id"].(string)
	require.NotEmpty(t, sessionID)

	second := f.do(t, http.MethodPost, "/api/v1/ask",
		map[string]interface{}{"query": "미수범도 처벌되나요?", "session_id": sessionID}, nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, sessionID, decodeBody(t, second)["session_id"])

	require.Len(t, prompts, 2)
	assert.NotContains(t, prompts[0], "이전 대화")
	assert.Contains(t, prompts[1], "이전 대화")
	assert.Contains(t, prompts[1], "user: 사기죄 형량은?")
}

func TestAskReturnsSources(t *testing.T) {
	f := newFixture(t, nil)
	f.stubSearch("doc_001_chunk_0", "doc_002_chunk_0", "doc_003_chunk_0", "doc_004_chunk_0")
	f.llmMock.On("TokenUsage").Return(llm.TokenUsage{})
	f.llmMock.On("GenerateWithSystem", mock.Anything, mock.Anything, mock.Anything).
		Return("답변", nil)

	recorder := f.do(t, http.MethodPost, "/api/v1/ask",
		map[string]interface{}{"query": "사기죄란?"}, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	sources := decodeBody(t, recorder)["sources"].([]interface{})
	require.Len(t, sources, 3, "sources are capped at three")
	first := sources[0].(map[string]interface{})
	assert.Equal(t, "doc_001_chunk_0", first["id"])
	assert.Equal(t, "문서 doc_001_chunk_0", first["title"])
	assert.Equal(t, "statute", first["type"])
}

func TestAskStreamEmitsChunksAndDone(t *testing.T) {
	f := newFixture(t, nil)
	f.stubSearch("doc_001_chunk_0")
	f.llmMock.On("GenerateStreamWithSystem", mock.Anything, mock.Anything, mock.Anything).
		Return(llm.ChunkChannel("사기죄는 ", "형법 제347조"), nil)

	recorder := f.do(t, http.MethodPost, "/api/v1/ask/stream",
		map[string]interface{}{"query": "사기죄란?"}, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "text/event-stream", recorder.Header().Get("Content-Type"))

	events := strings.Split(strings.TrimSpace(recorder.Body.String()), "\n\n")
	require.Len(t, events, 3)
	assert.Equal(t, `data: {"chunk":"사기죄는 "}`, events[0])
	assert.Contains(t, events[2], `"done":true`)
	assert.Contains(t, events[2], "session_id")
}

func TestGenerateReturnsParsedContent(t *testing.T) {
	f := newFixture(t, nil)
	f.stubSearch("doc_001_chunk_0", "doc_002_chunk_0")
	f.llmMock.On("TokenUsage").Return(llm.TokenUsage{})
	f.llmMock.On("GenerateWithSystem", mock.Anything, mock.Anything, mock.Anything).
		Return("# 사기죄의 이해\n\n## 서론\n사기죄는 재산범죄입니다.\n\n## 결론\n주의가 필요합니다.", nil)

	recorder := f.do(t, http.MethodPost, "/api/v1/generate", map[string]interface{}{
		"topic":        "사기죄의 이해",
		"content_type": "blog",
	}, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "사기죄의 이해", body["title"])
	references := body["references"].([]interface{})
	assert.Len(t, references, 2)
	metadata := body["metadata"].(map[string]interface{})
	assert.Equal(t, "blog", metadata["content_type"])
	assert.Greater(t, metadata["word_count"], 0.0)
}

func TestGenerateInvalidContentType(t *testing.T) {
	f := newFixture(t, nil)
	recorder := f.do(t, http.MethodPost, "/api/v1/generate", map[string]interface{}{
		"topic":        "사기죄",
		"content_type": "poem",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestAdminRequiresAPIKey(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Server.APIKey = "secret-key"
	})

	denied := f.do(t, http.MethodPost, "/api/v1/admin/index/reset", nil, nil)
	require.Equal(t, http.StatusUnauthorized, denied.Code)
	assert.Equal(t, "ApiKey", denied.Header().Get("WWW-Authenticate"))

	f.store.On("Reset", mock.Anything).Return(nil)
	allowed := f.do(t, http.MethodPost, "/api/v1/admin/index/reset", nil,
		map[string]string{"X-API-Key": "secret-key"})
	assert.Equal(t, http.StatusOK, allowed.Code)
}

func TestAdminIndexStatusIsOpen(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Server.APIKey = "secret-key"
	})
	f.store.On("Count", mock.Anything).Return(int64(0), nil)

	recorder := f.do(t, http.MethodGet, "/api/v1/admin/index/status", nil, nil)
	assert.Equal(t, http.StatusOK, recorder.Code, "status read needs no credential")
}

func TestMonitoringStats(t *testing.T) {
	f := newFixture(t, nil)
	recorder := f.do(t, http.MethodGet, "/api/v1/monitoring/stats", nil, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Contains(t, body, "api")
	assert.Contains(t, body, "search")
	assert.Contains(t, body, "llm")
}

func TestMonitoringVectorDB(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("Count", mock.Anything).Return(int64(12), nil)

	recorder := f.do(t, http.MethodGet, "/api/v1/monitoring/vector-db", nil, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	status := body["status"].(map[string]interface{})
	assert.Equal(t, "healthy", status["status"])
	assert.Equal(t, float64(12), status["document_count"])
}

func TestOpenAPIDocument(t *testing.T) {
	f := newFixture(t, nil)
	recorder := f.do(t, http.MethodGet, "/api/v1/openapi.json", nil, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, "3.0.3", body["openapi"])
	paths := body["paths"].(map[string]interface{})
	for _, path := range []string{"/api/v1/search", "/api/v1/ask", "/api/v1/generate"} {
		assert.Contains(t, paths, path)
	}
}

func TestRecovererReturnsJSON500(t *testing.T) {
	f := newFixture(t, nil)
	// A nil LLM usage expectation makes the mock panic inside the handler
	f.stubSearch("doc_001_chunk_0")

	recorder := f.do(t, http.MethodPost, "/api/v1/ask",
		map[string]interface{}{"query": "사기죄란?"}, nil)

	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	body := decodeBody(t, recorder)
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "INTERNAL_SERVER_ERROR", errBody["code"])
}

func TestRecovererWritesPanicToErrorLog(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "errors.jsonl")
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Data.ErrorLogFile = logFile
	})
	// A nil LLM usage expectation makes the mock panic inside the handler
	f.stubSearch("doc_001_chunk_0")

	recorder := f.do(t, http.MethodPost, "/api/v1/ask",
		map[string]interface{}{"query": "사기죄란?"}, nil)
	require.Equal(t, http.StatusInternalServerError, recorder.Code)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error_type":"PanicError"`)
	assert.Contains(t, string(data), `"severity":"critical"`)
	assert.Contains(t, string(data), "/api/v1/ask")
}

func TestUnknownRouteIs404(t *testing.T) {
	f := newFixture(t, nil)
	recorder := f.do(t, http.MethodGet, "/api/v1/nonexistent", nil, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
