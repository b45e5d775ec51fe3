package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"legal-rag-service/internal/api/response"
	legalerrors "legal-rag-service/internal/errors"
	"legal-rag-service/internal/llm"
	"legal-rag-service/internal/logging"
	"legal-rag-service/internal/monitoring"
	"legal-rag-service/internal/retrieval"
	"legal-rag-service/internal/session"
)

// maxSourceRefs caps the source references attached to an answer
const maxSourceRefs = 3

// AskRequest is the POST /ask and POST /ask/stream body
type AskRequest struct {
	Query         string   `json:"query"`
	SessionID     string   `json:"session_id,omitempty"`
	Stream        bool     `json:"stream,omitempty"`
	DocumentTypes []string `json:"document_types,omitempty"`
}

// SourceRef cites one retrieved document in an answer
type SourceRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// AskResponse is the POST /ask body
type AskResponse struct {
	Query     string      `json:"query"`
	Response  string      `json:"response"`
	SessionID string      `json:"session_id"`
	Sources   []SourceRef `json:"sources"`
	Timestamp string      `json:"timestamp"`
}

// AskHandler serves question answering over retrieved context with
// conversation sessions
type AskHandler struct {
	retriever   *retrieval.Retriever
	llm         llm.Client
	sessions    *session.Manager
	queryLog    *monitoring.QueryLogger
	performance *monitoring.PerformanceMetrics
	errorLog    *monitoring.ErrorLogger
	logger      logging.Logger
}

// NewAskHandler wires the ask endpoints
func NewAskHandler(deps *Deps) *AskHandler {
	return &AskHandler{
		retriever:   deps.Retriever,
		llm:         deps.LLM,
		sessions:    deps.Sessions,
		queryLog:    deps.QueryLog,
		performance: deps.Performance,
		errorLog:    deps.ErrorLog,
		logger:      logging.WithComponent("ask_handler"),
	}
}

// Ask handles POST /ask. A body with stream=true is served as SSE.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.Stream {
		h.stream(w, r, req)
		return
	}

	start := time.Now()
	sess, prompt, sources, err := h.prepare(r, req)
	if err != nil {
		response.Error(w, err)
		return
	}

	usageBefore := h.llm.TokenUsage()
	answer, err := h.llm.GenerateWithSystem(r.Context(), llm.SystemPrompt(), prompt)
	if err != nil {
		h.logger.Error("generation failed", "session_id", sess.SessionID, "error", err)
		h.errorLog.LogError("error", errorLogType(err, "LLMError"), err.Error(),
			map[string]interface{}{"session_id": sess.SessionID})
		response.Error(w, err)
		return
	}
	if _, err := h.sessions.AppendExchange(r.Context(), sess.SessionID, req.Query, answer); err != nil {
		h.logger.Warn("failed to persist exchange", "session_id", sess.SessionID, "error", err)
	}

	elapsed := time.Since(start).Seconds()
	h.recordUsage(req.Query, sess.SessionID, len(answer), elapsed, usageBefore)

	response.JSON(w, http.StatusOK, &AskResponse{
		Query:     req.Query,
		Response:  answer,
		SessionID: sess.SessionID,
		Sources:   sources,
		Timestamp: response.Timestamp(),
	})
}

// AskStream handles POST /ask/stream as server-sent events
func (h *AskHandler) AskStream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.stream(w, r, req)
}

func (h *AskHandler) stream(w http.ResponseWriter, r *http.Request, req *AskRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.Error(w, legalerrors.NewInternalError("streaming unsupported", nil))
		return
	}

	start := time.Now()
	sess, prompt, _, err := h.prepare(r, req)
	if err != nil {
		response.Error(w, err)
		return
	}

	chunks, err := h.llm.GenerateStreamWithSystem(r.Context(), llm.SystemPrompt(), prompt)
	if err != nil {
		response.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var answer strings.Builder
	failed := false
	for chunk := range chunks {
		if chunk.Err != nil {
			failed = true
			writeSSE(w, flusher, map[string]interface{}{"error": streamErrorPayload(chunk.Err)})
			break
		}
		if chunk.Content == "" {
			continue
		}
		answer.WriteString(chunk.Content)
		writeSSE(w, flusher, map[string]interface{}{"chunk": chunk.Content})
	}
	if failed || r.Context().Err() != nil {
		return
	}
	writeSSE(w, flusher, map[string]interface{}{"done": true, "session_id": sess.SessionID})

	// The session commits only after the final chunk
	if _, err := h.sessions.AppendExchange(r.Context(), sess.SessionID, req.Query, answer.String()); err != nil {
		h.logger.Warn("failed to persist exchange", "session_id", sess.SessionID, "error", err)
	}
	h.queryLog.LogAsk(req.Query, sess.SessionID, answer.Len(), time.Since(start).Seconds(), nil)
}

// prepare resolves the session, retrieves context and builds the user prompt
func (h *AskHandler) prepare(r *http.Request, req *AskRequest) (*session.Session, string, []SourceRef, error) {
	sess, err := h.sessions.GetOrCreate(r.Context(), req.SessionID)
	if err != nil {
		return nil, "", nil, err
	}
	history, err := h.sessions.HistoryContext(r.Context(), sess.SessionID)
	if err != nil {
		h.logger.Warn("failed to load session history", "session_id", sess.SessionID, "error", err)
		history = ""
	}

	retrieved, err := h.retriever.Search(r.Context(), req.Query, 0, req.DocumentTypes, nil)
	if err != nil {
		return nil, "", nil, err
	}

	prompt := llm.UserPrompt(llm.OptimizeContext(retrieved.Context, llm.DefaultContextBudget), req.Query, req.DocumentTypes)
	if history != "" {
		prompt = llm.WithHistory(history, prompt)
	}
	return sess, prompt, sourceRefs(retrieved.Results), nil
}

func (h *AskHandler) decode(w http.ResponseWriter, r *http.Request) (*AskRequest, bool) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ValidationError(w, "body", "invalid JSON")
		return nil, false
	}
	if strings.TrimSpace(req.Query) == "" {
		response.ValidationError(w, "query", "must not be empty")
		return nil, false
	}
	return &req, true
}

func (h *AskHandler) recordUsage(query, sessionID string, responseLength int, elapsed float64, before llm.TokenUsage) {
	after := h.llm.TokenUsage()
	usage := map[string]int{
		"prompt_tokens":     after.PromptTokens - before.PromptTokens,
		"completion_tokens": after.CompletionTokens - before.CompletionTokens,
		"total_tokens":      after.TotalTokens - before.TotalTokens,
	}
	h.performance.RecordLLMUsage(usage["prompt_tokens"], usage["completion_tokens"], usage["total_tokens"], elapsed)
	h.queryLog.LogAsk(query, sessionID, responseLength, elapsed, usage)
}

func sourceRefs(results []retrieval.Result) []SourceRef {
	refs := make([]SourceRef, 0, maxSourceRefs)
	for _, result := range results {
		if len(refs) == maxSourceRefs {
			break
		}
		refs = append(refs, SourceRef{
			ID:    result.ID,
			Title: metadataString(result.Metadata, "title"),
			Type:  metadataString(result.Metadata, "type"),
		})
	}
	return refs
}

func metadataString(metadata map[string]interface{}, key string) string {
	if value, ok := metadata[key].(string); ok {
		return value
	}
	return ""
}

// streamErrorPayload renders a mid-stream failure as the error envelope body
func streamErrorPayload(err error) interface{} {
	if legalErr, ok := legalerrors.AsLegalAIError(err); ok {
		return legalErr
	}
	return map[string]interface{}{
		"code":    legalerrors.ErrorCodeLLM,
		"message": err.Error(),
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
