package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"legal-rag-service/internal/api/response"
	"legal-rag-service/internal/llm"
	"legal-rag-service/internal/logging"
	"legal-rag-service/internal/monitoring"
	"legal-rag-service/internal/retrieval"
)

// defaultReferences is how many documents back a generation by default
const defaultReferences = 5

// GenerateRequest is the POST /generate body
type GenerateRequest struct {
	Topic           string   `json:"topic"`
	ContentType     string   `json:"content_type"`
	Style           string   `json:"style,omitempty"`
	TargetLength    int      `json:"target_length,omitempty"`
	IncludeSections []string `json:"include_sections,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	DocumentTypes   []string `json:"document_types,omitempty"`
	NReferences     int      `json:"n_references,omitempty"`
}

// Reference cites one document backing generated content
type Reference struct {
	Title     string  `json:"title"`
	Type      string  `json:"type"`
	ID        string  `json:"id"`
	Relevance float64 `json:"relevance,omitempty"`
}

// GenerateResponse is the POST /generate body
type GenerateResponse struct {
	Success    bool                   `json:"success"`
	Content    string                 `json:"content"`
	Title      string                 `json:"title,omitempty"`
	Sections   map[string]string      `json:"sections,omitempty"`
	References []Reference            `json:"references"`
	Metadata   map[string]interface{} `json:"metadata"`
	Timestamp  string                 `json:"timestamp"`
}

// GenerateHandler serves long-form legal content synthesis
type GenerateHandler struct {
	retriever   *retrieval.Retriever
	llm         llm.Client
	performance *monitoring.PerformanceMetrics
	logger      logging.Logger
}

// NewGenerateHandler wires the generate endpoint
func NewGenerateHandler(deps *Deps) *GenerateHandler {
	return &GenerateHandler{
		retriever:   deps.Retriever,
		llm:         deps.LLM,
		performance: deps.Performance,
		logger:      logging.WithComponent("generate_handler"),
	}
}

// Generate handles POST /generate
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ValidationError(w, "body", "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		response.ValidationError(w, "topic", "must not be empty")
		return
	}
	contentType := llm.ContentType(req.ContentType)
	if !contentType.Valid() {
		response.ValidationError(w, "content_type", "must be one of blog, article, opinion, analysis, faq")
		return
	}

	nReferences := req.NReferences
	if nReferences <= 0 {
		nReferences = defaultReferences
	}
	retrieved, err := h.retriever.Search(r.Context(), req.Topic, nReferences, req.DocumentTypes, nil)
	if err != nil {
		h.logger.Error("reference retrieval failed", "topic", req.Topic, "error", err)
		response.Error(w, err)
		return
	}

	opts := llm.GenerationOptions{
		ContentType:     contentType,
		Style:           req.Style,
		TargetLength:    req.TargetLength,
		IncludeSections: req.IncludeSections,
		Keywords:        req.Keywords,
	}

	start := time.Now()
	usageBefore := h.llm.TokenUsage()
	content, err := h.llm.GenerateWithSystem(r.Context(),
		llm.GenerationSystemPrompt(opts),
		llm.GenerationUserPrompt(req.Topic, retrieved.Context, contentType))
	if err != nil {
		h.logger.Error("content generation failed", "topic", req.Topic, "error", err)
		response.Error(w, err)
		return
	}
	usageAfter := h.llm.TokenUsage()
	h.performance.RecordLLMUsage(
		usageAfter.PromptTokens-usageBefore.PromptTokens,
		usageAfter.CompletionTokens-usageBefore.CompletionTokens,
		usageAfter.TotalTokens-usageBefore.TotalTokens,
		time.Since(start).Seconds())

	parsed := llm.ParseGeneratedContent(content, contentType)
	response.JSON(w, http.StatusOK, &GenerateResponse{
		Success:    true,
		Content:    parsed.Content,
		Title:      parsed.Title,
		Sections:   parsed.Sections,
		References: references(retrieved.Results),
		Metadata: map[string]interface{}{
			"content_type": string(contentType),
			"topic":        req.Topic,
			"word_count":   len(strings.Fields(parsed.Content)),
		},
		Timestamp: response.Timestamp(),
	})
}

func references(results []retrieval.Result) []Reference {
	refs := make([]Reference, len(results))
	for i, result := range results {
		refs[i] = Reference{
			Title:     metadataString(result.Metadata, "title"),
			Type:      metadataString(result.Metadata, "type"),
			ID:        result.ID,
			Relevance: result.Score,
		}
	}
	return refs
}
