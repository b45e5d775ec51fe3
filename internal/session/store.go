package session

import (
	"context"
	"sort"
	"sync"
	"time"

	legalerrors "legal-rag-service/internal/errors"
	"legal-rag-service/internal/logging"
)

// SessionStore abstracts session persistence. Get returns (nil, nil) for a
// missing or expired session so callers can transparently create a fresh one.
type SessionStore interface {
	Create(ctx context.Context, id string) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
	ListIDs(ctx context.Context) ([]string, error)
	Close() error
}

// MemoryStore keeps sessions in-process. When the session count exceeds
// maxSessions it evicts the oldest half by last activity.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	window      time.Duration
	logger      logging.Logger
}

// NewMemoryStore creates an in-process store capped at maxSessions with the
// given inactivity window.
func NewMemoryStore(maxSessions int, window time.Duration) *MemoryStore {
	if maxSessions <= 0 {
		maxSessions = 1000
	}
	return &MemoryStore{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		window:      window,
		logger:      logging.WithComponent("session-store"),
	}
}

func (ms *MemoryStore) Create(_ context.Context, id string) (*Session, error) {
	session := NewSession(id)

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if len(ms.sessions) >= ms.maxSessions {
		ms.evictOldestLocked()
	}
	ms.sessions[session.SessionID] = session
	return session, nil
}

func (ms *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	session, ok := ms.sessions[id]
	if !ok {
		return nil, nil
	}
	if ms.window > 0 && session.ExpiresAfter(ms.window) {
		delete(ms.sessions, id)
		return nil, nil
	}
	return session, nil
}

func (ms *MemoryStore) Update(_ context.Context, session *Session) error {
	if session == nil || session.SessionID == "" {
		return legalerrors.NewSessionError("cannot update session without id", nil)
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.sessions[session.SessionID] = session
	return nil
}

func (ms *MemoryStore) Delete(_ context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, id)
	return nil
}

func (ms *MemoryStore) ListIDs(_ context.Context) ([]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	ids := make([]string, 0, len(ms.sessions))
	for id := range ms.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (ms *MemoryStore) Close() error {
	return nil
}

// Len returns the current session count
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.sessions)
}

// evictOldestLocked drops the least-recently-active half of the sessions.
// Caller holds the write lock.
func (ms *MemoryStore) evictOldestLocked() {
	type aged struct {
		id        string
		updatedAt time.Time
	}
	candidates := make([]aged, 0, len(ms.sessions))
	for id, session := range ms.sessions {
		candidates = append(candidates, aged{id: id, updatedAt: session.UpdatedAt})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].updatedAt.Before(candidates[j].updatedAt)
	})

	evict := len(candidates) / 2
	if evict == 0 {
		evict = 1
	}
	for i := 0; i < evict; i++ {
		delete(ms.sessions, candidates[i].id)
	}
	ms.logger.Warn("Session capacity reached, evicted oldest sessions",
		"evicted", evict, "max_sessions", ms.maxSessions)
}
