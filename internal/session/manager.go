package session

import (
	"context"
	"sync"
	"time"

	"legal-rag-service/internal/config"
	legalerrors "legal-rag-service/internal/errors"
	"legal-rag-service/internal/logging"
)

// Manager fronts a SessionStore and serializes message appends per session
// id, so concurrent requests on one conversation preserve append order.
// Appends on different sessions do not contend.
type Manager struct {
	store    SessionStore
	maxTurns int
	logger   logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager picks the backend from config: Redis when redis_url is set,
// in-memory otherwise. A Redis dial failure logs a warning and falls back to
// the in-memory store; the choice never changes mid-run.
func NewManager(ctx context.Context, cfg *config.SessionConfig) *Manager {
	window := time.Duration(cfg.TimeoutMinutes) * time.Minute
	logger := logging.WithComponent("session-manager")

	var store SessionStore
	if cfg.RedisURL != "" {
		redisStore, err := NewRedisStore(ctx, cfg.RedisURL, window)
		if err != nil {
			logger.Warn("Redis session store unavailable, using in-memory store", "error", err)
		} else {
			logger.Info("Using Redis session store")
			store = redisStore
		}
	}
	if store == nil {
		store = NewMemoryStore(cfg.MaxSessions, window)
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 3
	}
	return &Manager{
		store:    store,
		maxTurns: maxTurns,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// NewManagerWithStore builds a manager on an explicit store, used by tests
func NewManagerWithStore(store SessionStore, maxTurns int) *Manager {
	if maxTurns <= 0 {
		maxTurns = 3
	}
	return &Manager{
		store:    store,
		maxTurns: maxTurns,
		logger:   logging.WithComponent("session-manager"),
		locks:    make(map[string]*sync.Mutex),
	}
}

// GetOrCreate returns the session for id, creating one when it is missing or
// expired. An empty id always creates a session with a generated id.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	if id != "" {
		session, err := m.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if session != nil {
			return session, nil
		}
	}
	return m.store.Create(ctx, id)
}

// AppendExchange records a question/answer pair on the session. Appends for
// the same session id are serialized.
func (m *Manager) AppendExchange(ctx context.Context, id, question, answer string) (*Session, error) {
	if id == "" {
		return nil, legalerrors.NewSessionError("session id required", nil)
	}

	lock := m.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	session, err := m.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	session.AddMessage("user", question)
	session.AddMessage("assistant", answer)
	if err := m.store.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// HistoryContext returns the session's recent history rendered for a prompt
// prefix; missing sessions yield an empty string.
func (m *Manager) HistoryContext(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	session, err := m.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", nil
	}
	return session.ContextString(m.maxTurns), nil
}

// Delete removes a session
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// ListIDs returns the known session ids
func (m *Manager) ListIDs(ctx context.Context) ([]string, error) {
	return m.store.ListIDs(ctx)
}

// MaxTurns returns the configured history window in turns
func (m *Manager) MaxTurns() int {
	return m.maxTurns
}

// Close shuts down the backing store
func (m *Manager) Close() error {
	return m.store.Close()
}

func (m *Manager) sessionLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}
