package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"legal-rag-service/internal/config"
	"legal-rag-service/internal/embeddings"
	"legal-rag-service/internal/logging"
	"legal-rag-service/internal/models"
	"legal-rag-service/internal/storage"
)

// Result is one retrieved chunk with its store distance and derived score
type Result struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"document"`
	Metadata map[string]interface{} `json:"metadata"`
	Distance float64                `json:"distance"`
	Score    float64                `json:"score,omitempty"`
}

// State carries a query through the pipeline. Every stage reads from and
// writes to it; the first failure sets Err and the remaining stages
// short-circuit, so earlier stage outputs survive for inspection.
type State struct {
	Query           string
	QueryEmbedding  []float64
	RawResults      []Result
	FilteredResults []Result
	RerankedResults []Result
	Context         string
	MetadataFilters map[string]interface{}
	DocumentTypes   []string
	Err             error
}

// Workflow runs the five retrieval stages in order
type Workflow struct {
	store      storage.VectorStore
	embeddings embeddings.EmbeddingService
	cfg        *config.SearchConfig
	logger     logging.Logger
}

// NewWorkflow wires the pipeline onto the vector store and embedding service
func NewWorkflow(store storage.VectorStore, embeddingService embeddings.EmbeddingService, cfg *config.SearchConfig) *Workflow {
	return &Workflow{
		store:      store,
		embeddings: embeddingService,
		cfg:        cfg,
		logger:     logging.WithComponent("retrieval"),
	}
}

// Run executes analyze → search → filter → rerank → assemble. The returned
// state is always complete up to the failing stage.
func (w *Workflow) Run(ctx context.Context, query string, documentTypes []string, metadataFilters map[string]interface{}) *State {
	state := &State{
		Query:           query,
		MetadataFilters: map[string]interface{}{},
		DocumentTypes:   documentTypes,
	}
	for k, v := range metadataFilters {
		state.MetadataFilters[k] = v
	}

	stages := []func(context.Context, *State){
		w.analyze,
		w.search,
		w.filter,
		w.rerank,
		w.assemble,
	}
	for _, stage := range stages {
		if state.Err != nil {
			break
		}
		stage(ctx, state)
	}
	return state
}

// analyze embeds the query and derives implicit filters from its keywords
func (w *Workflow) analyze(ctx context.Context, state *State) {
	embedding, err := w.embeddings.GenerateEmbedding(ctx, state.Query)
	if err != nil {
		state.Err = fmt.Errorf("query analysis failed: %w", err)
		return
	}
	state.QueryEmbedding = embedding

	// Implicit filters from the query text; explicit caller filters win
	classification := Classify(state.Query)
	if classification.Category != "" {
		if _, ok := state.MetadataFilters["category"]; !ok {
			state.MetadataFilters["category"] = classification.Category
		}
	}
	if classification.SubCategory != "" {
		if _, ok := state.MetadataFilters["sub_category"]; !ok {
			state.MetadataFilters["sub_category"] = classification.SubCategory
		}
	}
	if caseNumber := ExtractCaseNumber(state.Query); caseNumber != "" {
		if _, ok := state.MetadataFilters["case_number"]; !ok {
			state.MetadataFilters["case_number"] = caseNumber
		}
	}

	state.DocumentTypes = normalizeDocumentTypes(state.DocumentTypes, classification.DocumentTypes)
	w.logger.Debug("Query analyzed",
		"filters", state.MetadataFilters, "document_types", state.DocumentTypes)
}

// search queries the vector store with top_k and the derived where clause
func (w *Workflow) search(ctx context.Context, state *State) {
	topK := w.cfg.DefaultTopK
	if topK <= 0 {
		topK = 10
	}

	where := storage.BuildWhere(state.MetadataFilters)
	queryResult, err := w.store.Search(ctx, state.QueryEmbedding, topK, where)
	if err != nil {
		state.Err = fmt.Errorf("vector search failed: %w", err)
		return
	}

	results := make([]Result, 0, len(queryResult.IDs))
	for i, id := range queryResult.IDs {
		result := Result{ID: id}
		if i < len(queryResult.Texts) {
			result.Text = queryResult.Texts[i]
		}
		if i < len(queryResult.Metadatas) {
			result.Metadata = queryResult.Metadatas[i]
		}
		if i < len(queryResult.Distances) {
			result.Distance = queryResult.Distances[i]
		}
		results = append(results, result)
	}
	state.RawResults = results
	w.logger.Debug("Vector search complete", "results", len(results))
}

// filter applies the document-type filter and re-checks residual equality
// filters the store may not have honored.
func (w *Workflow) filter(_ context.Context, state *State) {
	filtered := make([]Result, 0, len(state.RawResults))
	for _, result := range state.RawResults {
		if len(state.DocumentTypes) > 0 {
			docType, _ := result.Metadata["type"].(string)
			if !containsString(state.DocumentTypes, docType) {
				continue
			}
		}
		if !matchesFilters(result.Metadata, state.MetadataFilters) {
			continue
		}
		filtered = append(filtered, result)
	}
	state.FilteredResults = filtered
}

// rerank sorts by distance ascending, truncates to rerank_top_k and assigns
// score = 1/(1+distance).
func (w *Workflow) rerank(_ context.Context, state *State) {
	reranked := make([]Result, len(state.FilteredResults))
	copy(reranked, state.FilteredResults)
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Distance < reranked[j].Distance
	})

	topK := w.cfg.RerankTopK
	if topK <= 0 {
		topK = 5
	}
	if len(reranked) > topK {
		reranked = reranked[:topK]
	}

	for i := range reranked {
		if reranked[i].Distance <= 0 {
			reranked[i].Score = 1.0
		} else {
			reranked[i].Score = 1.0 / (1.0 + reranked[i].Distance)
		}
	}
	state.RerankedResults = reranked
}

// assemble renders the top results as numbered document blocks, truncating
// greedily (largest blocks dropped first) when over the context budget while
// preserving original order.
func (w *Workflow) assemble(_ context.Context, state *State) {
	blocks := make([]string, 0, len(state.RerankedResults))
	for i, result := range state.RerankedResults {
		title := metadataString(result.Metadata, "title")
		docType := metadataString(result.Metadata, "type")
		blocks = append(blocks, fmt.Sprintf("[문서 %d]\n제목: %s\n타입: %s\n내용: %s",
			i+1, title, docType, result.Text))
	}

	budget := w.cfg.ContextMaxLength
	if budget <= 0 {
		budget = 12000
	}
	state.Context = strings.Join(fitBlocks(blocks, budget), "\n\n")
}

// fitBlocks keeps the largest blocks that fit within the character budget;
// survivors keep their original order.
func fitBlocks(blocks []string, budget int) []string {
	total := 0
	for _, block := range blocks {
		total += len(block) + 2 // separator
	}
	if total <= budget {
		return blocks
	}

	type indexed struct {
		index int
		block string
	}
	bySize := make([]indexed, len(blocks))
	for i, block := range blocks {
		bySize[i] = indexed{index: i, block: block}
	}
	sort.SliceStable(bySize, func(i, j int) bool {
		return len(bySize[i].block) > len(bySize[j].block)
	})

	used := 0
	keep := make(map[int]bool)
	for _, candidate := range bySize {
		cost := len(candidate.block) + 2
		if used+cost > budget {
			continue
		}
		used += cost
		keep[candidate.index] = true
	}

	kept := make([]string, 0, len(keep))
	for i, block := range blocks {
		if keep[i] {
			kept = append(kept, block)
		}
	}
	return kept
}

// normalizeDocumentTypes drops the "string" sentinel and unknown values;
// when nothing survives it falls back to the query-extracted types.
func normalizeDocumentTypes(requested, extracted []string) []string {
	var normalized []string
	for _, dt := range requested {
		if dt == storage.Sentinel || dt == "" {
			continue
		}
		if !models.DocumentType(dt).Valid() {
			continue
		}
		normalized = append(normalized, dt)
	}
	if len(normalized) == 0 {
		return extracted
	}
	return normalized
}

func matchesFilters(metadata, filters map[string]interface{}) bool {
	for key, want := range filters {
		if key == "type" {
			continue // handled by the document-type filter
		}
		if got, ok := metadata[key]; ok && fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

func metadataString(metadata map[string]interface{}, key string) string {
	if v, ok := metadata[key].(string); ok && v != "" {
		return v
	}
	return "N/A"
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
