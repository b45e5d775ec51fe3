package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"

	legalerrors "legal-rag-service/internal/errors"
	"legal-rag-service/internal/llm"
	"legal-rag-service/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The HTTP layer already applies the CORS policy
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsQuestion is one inbound question frame
type wsQuestion struct {
	Query         string   `json:"query"`
	SessionID     string   `json:"session_id,omitempty"`
	DocumentTypes []string `json:"document_types,omitempty"`
}

// AskWS serves GET /ask/ws: each inbound frame is a question, answered as a
// sequence of chunk frames terminated by a done frame carrying the session
// id and sources.
func (h *AskHandler) AskWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.WithComponent("ask_handler").Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var question wsQuestion
		if err := conn.ReadJSON(&question); err != nil {
			return
		}
		if question.Query == "" {
			h.writeWSError(conn, legalerrors.NewValidationError("query", "must not be empty"))
			continue
		}
		if !h.answerWS(r, conn, &question) {
			return
		}
	}
}

// answerWS streams one answer; returns false when the connection is dead
func (h *AskHandler) answerWS(r *http.Request, conn *websocket.Conn, question *wsQuestion) bool {
	req := &AskRequest{
		Query:         question.Query,
		SessionID:     question.SessionID,
		DocumentTypes: question.DocumentTypes,
	}
	sess, prompt, sources, err := h.prepare(r, req)
	if err != nil {
		return h.writeWSError(conn, err)
	}

	chunks, err := h.llm.GenerateStreamWithSystem(r.Context(), llm.SystemPrompt(), prompt)
	if err != nil {
		return h.writeWSError(conn, err)
	}

	var answer []byte
	for chunk := range chunks {
		if chunk.Err != nil {
			return h.writeWSError(conn, chunk.Err)
		}
		if chunk.Content == "" {
			continue
		}
		answer = append(answer, chunk.Content...)
		if err := conn.WriteJSON(map[string]interface{}{"chunk": chunk.Content}); err != nil {
			return false
		}
	}

	if _, err := h.sessions.AppendExchange(r.Context(), sess.SessionID, req.Query, string(answer)); err != nil {
		h.logger.Warn("failed to persist exchange", "session_id", sess.SessionID, "error", err)
	}
	return conn.WriteJSON(map[string]interface{}{
		"done":       true,
		"session_id": sess.SessionID,
		"sources":    sources,
	}) == nil
}

func (h *AskHandler) writeWSError(conn *websocket.Conn, err error) bool {
	return conn.WriteJSON(map[string]interface{}{"error": streamErrorPayload(err)}) == nil
}
