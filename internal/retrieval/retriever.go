package retrieval

import (
	"context"

	"legal-rag-service/internal/config"
	legalerrors "legal-rag-service/internal/errors"
	"legal-rag-service/internal/logging"
)

// SearchResponse is the retriever's result envelope, consumed by the HTTP
// handlers and the query cache.
type SearchResponse struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Context string   `json:"context"`
}

// Retriever is the search facade over the workflow
type Retriever struct {
	workflow *Workflow
	cfg      *config.SearchConfig
	logger   logging.Logger
}

// NewRetriever builds the facade on an already-wired workflow
func NewRetriever(workflow *Workflow, cfg *config.SearchConfig) *Retriever {
	return &Retriever{
		workflow: workflow,
		cfg:      cfg,
		logger:   logging.WithComponent("retriever"),
	}
}

// Search runs the retrieval pipeline and truncates to nResults. nResults <= 0
// uses the configured default; values above max_results are clamped.
func (r *Retriever) Search(ctx context.Context, query string, nResults int, documentTypes []string, metadataFilters map[string]interface{}) (*SearchResponse, error) {
	if nResults <= 0 {
		nResults = r.cfg.DefaultResults
		if nResults <= 0 {
			nResults = 5
		}
	}
	if r.cfg.MaxResults > 0 && nResults > r.cfg.MaxResults {
		nResults = r.cfg.MaxResults
	}

	state := r.workflow.Run(ctx, query, documentTypes, metadataFilters)
	if state.Err != nil {
		return nil, legalerrors.NewSearchError("retrieval failed", state.Err)
	}

	results := state.RerankedResults
	if len(results) > nResults {
		results = results[:nResults]
	}
	return &SearchResponse{
		Query:   query,
		Results: results,
		Total:   len(results),
		Context: state.Context,
	}, nil
}
