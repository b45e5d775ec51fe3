package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"legal-rag-service/internal/api/response"
	"legal-rag-service/internal/cache"
	"legal-rag-service/internal/logging"
	"legal-rag-service/internal/monitoring"
	"legal-rag-service/internal/retrieval"
)

// SearchRequest is the POST /search body
type SearchRequest struct {
	Query         string   `json:"query"`
	NResults      int      `json:"n_results,omitempty"`
	DocumentTypes []string `json:"document_types,omitempty"`
	Category      string   `json:"category,omitempty"`
	SubCategory   string   `json:"sub_category,omitempty"`
}

// SearchResult is one hit on the wire
type SearchResult struct {
	ID       string                 `json:"id"`
	Document string                 `json:"document"`
	Metadata map[string]interface{} `json:"metadata"`
	Distance float64                `json:"distance"`
	Score    float64                `json:"score,omitempty"`
}

// SearchResponse is the POST /search body; Timestamp is stamped per request
// so cached payloads stay comparable.
type SearchResponse struct {
	Query     string         `json:"query"`
	Results   []SearchResult `json:"results"`
	Total     int            `json:"total"`
	Timestamp string         `json:"timestamp"`
}

// SearchHandler serves document search with a query cache in front of the
// retrieval workflow
type SearchHandler struct {
	retriever    *retrieval.Retriever
	cache        *cache.QueryCache
	cacheEnabled bool
	queryLog     *monitoring.QueryLogger
	performance  *monitoring.PerformanceMetrics
	errorLog     *monitoring.ErrorLogger
	logger       logging.Logger
}

// NewSearchHandler wires the search endpoints
func NewSearchHandler(deps *Deps) *SearchHandler {
	return &SearchHandler{
		retriever:    deps.Retriever,
		cache:        deps.Cache,
		cacheEnabled: deps.Config == nil || deps.Config.Cache.Enabled,
		queryLog:     deps.QueryLog,
		performance:  deps.Performance,
		errorLog:     deps.ErrorLog,
		logger:       logging.WithComponent("search_handler"),
	}
}

// Post handles POST /search
func (h *SearchHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ValidationError(w, "body", "invalid JSON")
		return
	}
	h.serve(w, r, &req)
}

// Get handles GET /search with query parameters; document_types is a
// comma-separated list.
func (h *SearchHandler) Get(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	req := SearchRequest{
		Query:       params.Get("query"),
		Category:    params.Get("category"),
		SubCategory: params.Get("sub_category"),
	}
	if raw := params.Get("n_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.ValidationError(w, "n_results", "must be an integer")
			return
		}
		req.NResults = n
	}
	if raw := params.Get("document_types"); raw != "" {
		for _, docType := range strings.Split(raw, ",") {
			if docType = strings.TrimSpace(docType); docType != "" {
				req.DocumentTypes = append(req.DocumentTypes, docType)
			}
		}
	}
	h.serve(w, r, &req)
}

func (h *SearchHandler) serve(w http.ResponseWriter, r *http.Request, req *SearchRequest) {
	if strings.TrimSpace(req.Query) == "" {
		response.ValidationError(w, "query", "must not be empty")
		return
	}

	filters := searchFilters(req.Category, req.SubCategory)
	key := cache.Key(req.Query, req.NResults, req.DocumentTypes, filters)
	if h.cacheEnabled {
		if cached, ok := h.cache.Get(key); ok {
			if payload, ok := cached.(*SearchResponse); ok {
				stamped := *payload
				stamped.Timestamp = response.Timestamp()
				response.JSON(w, http.StatusOK, &stamped)
				return
			}
		}
	}

	start := time.Now()
	result, err := h.retriever.Search(r.Context(), req.Query, req.NResults, req.DocumentTypes, filters)
	if err != nil {
		h.logger.Error("search failed", "query", req.Query, "error", err)
		h.errorLog.LogError("error", errorLogType(err, "SearchError"), err.Error(),
			map[string]interface{}{"query": req.Query})
		response.Error(w, err)
		return
	}
	elapsed := time.Since(start).Seconds()

	payload := &SearchResponse{
		Query:   result.Query,
		Results: wireResults(result.Results),
		Total:   result.Total,
	}
	if h.cacheEnabled {
		h.cache.Set(key, payload)
	}
	h.performance.RecordSearch(payload.Total, elapsed)
	h.queryLog.LogSearch(req.Query, payload.Total, elapsed, searchLogMetadata(req))

	stamped := *payload
	stamped.Timestamp = response.Timestamp()
	response.JSON(w, http.StatusOK, &stamped)
}

func searchFilters(category, subCategory string) map[string]interface{} {
	filters := make(map[string]interface{})
	if category != "" {
		filters["category"] = category
	}
	if subCategory != "" {
		filters["sub_category"] = subCategory
	}
	if len(filters) == 0 {
		return nil
	}
	return filters
}

func searchLogMetadata(req *SearchRequest) map[string]interface{} {
	metadata := make(map[string]interface{})
	if len(req.DocumentTypes) > 0 {
		metadata["document_types"] = req.DocumentTypes
	}
	if req.Category != "" {
		metadata["category"] = req.Category
	}
	if req.SubCategory != "" {
		metadata["sub_category"] = req.SubCategory
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func wireResults(results []retrieval.Result) []SearchResult {
	wire := make([]SearchResult, len(results))
	for i, result := range results {
		wire[i] = SearchResult{
			ID:       result.ID,
			Document: result.Text,
			Metadata: result.Metadata,
			Distance: result.Distance,
			Score:    result.Score,
		}
	}
	return wire
}
