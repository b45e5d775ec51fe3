package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal-rag-service/internal/config"
	"legal-rag-service/internal/indexing"
	"legal-rag-service/internal/logging"
	"legal-rag-service/internal/monitoring"
	"legal-rag-service/internal/ratelimit"
	"legal-rag-service/internal/session"
	"legal-rag-service/internal/storage"
)

func testContainer(t *testing.T) (*Container, *storage.MockVectorStore) {
	t.Helper()
	cfg := config.DefaultConfig()
	store := new(storage.MockVectorStore)
	updater := indexing.NewIncrementalUpdater(nil, store, filepath.Join(t.TempDir(), "state.json"))

	c := &Container{
		Config:      cfg,
		Logger:      logging.NewNoOpLogger(),
		Store:       store,
		Sessions:    session.NewManagerWithStore(session.NewMemoryStore(10, 0), 3),
		Updater:     updater,
		APIMonitor:  monitoring.NewAPIMonitor(),
		Performance: monitoring.NewPerformanceMetrics(),
		QueryLog:    monitoring.NewQueryLogger(""),
		ErrorLog:    monitoring.NewErrorLogger(""),
		Limiter:     ratelimit.NewSlidingWindowLimiter(&cfg.RateLimit),
	}
	return c, store
}

func TestHandlerDepsMirrorsContainer(t *testing.T) {
	c, _ := testContainer(t)
	deps := c.HandlerDeps()

	assert.Same(t, c.Config, deps.Config)
	assert.Equal(t, c.Store, deps.Store)
	assert.Same(t, c.Sessions, deps.Sessions)
	assert.Same(t, c.APIMonitor, deps.APIMonitor)
	assert.Same(t, c.Performance, deps.Performance)
	assert.Same(t, c.QueryLog, deps.QueryLog)
	assert.Same(t, c.Updater, deps.Updater)
}

func TestBuildLoggerSurvivesBadLogFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	cfg := config.DefaultConfig()
	// A regular file in the directory position makes the log path unusable
	cfg.Logging.File = filepath.Join(blocker, "service.log")

	logger := buildLogger(cfg)
	require.NotNil(t, logger)
	logger.Info("still usable")
}

func TestShutdownClosesComponents(t *testing.T) {
	c, store := testContainer(t)
	store.On("Close").Return(nil).Once()

	require.NoError(t, c.Shutdown(context.Background()))
	store.AssertExpectations(t)

	// Stop is idempotent
	c.Limiter.Stop()
}
