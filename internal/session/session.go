// Package session manages conversation history for the ask endpoints, with an
// in-memory store by default and a Redis store when a redis_url is configured.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is one turn of a conversation
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds a conversation's turns. Mutation goes through the Manager,
// which serializes concurrent AddMessage calls per session id.
type Session struct {
	SessionID string                 `json:"session_id"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Messages  []Message              `json:"messages"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewSession creates a session; an empty id gets a generated UUID
func NewSession(id string) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	return &Session{
		SessionID: id,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Message{},
	}
}

// AddMessage appends a turn and bumps the activity timestamp
func (s *Session) AddMessage(role, content string) {
	now := time.Now().UTC()
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	s.UpdatedAt = now
}

// History returns the last maxTurns exchanges (a turn = question + answer, so
// up to 2*maxTurns messages). maxTurns <= 0 returns everything.
func (s *Session) History(maxTurns int) []Message {
	if maxTurns <= 0 || len(s.Messages) <= maxTurns*2 {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-maxTurns*2:]
}

// ContextString renders recent history as "role: content" lines for prompt
// prefixes.
func (s *Session) ContextString(maxTurns int) string {
	history := s.History(maxTurns)
	if len(history) == 0 {
		return ""
	}
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	return strings.Join(lines, "\n")
}

// ExpiresAfter reports whether the session has been inactive longer than the
// given window.
func (s *Session) ExpiresAfter(window time.Duration) bool {
	return time.Since(s.UpdatedAt) > window
}
