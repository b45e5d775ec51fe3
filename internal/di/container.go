// Package di wires the service's components in dependency order.
package di

import (
	"context"
	"fmt"

	"legal-rag-service/internal/api/handlers"
	"legal-rag-service/internal/cache"
	"legal-rag-service/internal/chunking"
	"legal-rag-service/internal/config"
	"legal-rag-service/internal/embeddings"
	"legal-rag-service/internal/indexing"
	"legal-rag-service/internal/llm"
	"legal-rag-service/internal/logging"
	"legal-rag-service/internal/monitoring"
	"legal-rag-service/internal/ratelimit"
	"legal-rag-service/internal/retrieval"
	"legal-rag-service/internal/retry"
	"legal-rag-service/internal/session"
	"legal-rag-service/internal/storage"
)

// Container owns every long-lived component. Build order: config → logging →
// monitors → vector store → embeddings → cache → sessions → retrieval → LLM.
type Container struct {
	Config *config.Config
	Logger logging.Logger

	Store      storage.VectorStore
	Embeddings embeddings.EmbeddingService
	Cache      *cache.QueryCache
	Sessions   *session.Manager
	Retriever  *retrieval.Retriever
	LLM        llm.Client

	Chunker      *chunking.Chunker
	Indexer      *indexing.Indexer
	Updater      *indexing.IncrementalUpdater
	IndexMonitor *indexing.IndexMonitor

	APIMonitor    *monitoring.APIMonitor
	Performance   *monitoring.PerformanceMetrics
	VectorMonitor *monitoring.VectorDBMonitor
	QueryLog      *monitoring.QueryLogger
	ErrorLog      *monitoring.ErrorLogger

	Limiter *ratelimit.SlidingWindowLimiter
}

// NewContainer builds and connects every component. The vector store is
// initialized (collection ensured) before anything depends on it.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger := buildLogger(cfg)
	logging.SetDefaultLogger(logger)

	c := &Container{
		Config:      cfg,
		Logger:      logger.WithComponent("container"),
		APIMonitor:  monitoring.NewAPIMonitor(),
		Performance: monitoring.NewPerformanceMetrics(),
		QueryLog:    monitoring.NewQueryLogger(cfg.Data.QueryLogFile),
		ErrorLog:    monitoring.NewErrorLogger(cfg.Data.ErrorLogFile),
	}

	embeddingService := embeddings.NewOpenAIEmbeddingService(&cfg.OpenAI)
	cached, err := embeddings.NewCachedEmbeddingService(embeddingService, cfg.OpenAI.EmbeddingCacheLen)
	if err != nil {
		return nil, fmt.Errorf("building embedding cache: %w", err)
	}
	c.Embeddings = embeddings.NewRetryableEmbeddingService(cached, retry.DefaultConfig())

	qdrant := storage.NewQdrantStore(&cfg.VectorDB.Qdrant, embeddingService.GetDimension())
	if err := qdrant.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initializing vector store: %w", err)
	}
	c.Store = storage.NewRetryableVectorStore(qdrant, retry.DefaultConfig())
	c.VectorMonitor = monitoring.NewVectorDBMonitor(c.Store, cfg.VectorDB.Qdrant.Collection)

	c.Cache, err = cache.NewQueryCache(&cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("building query cache: %w", err)
	}
	c.Sessions = session.NewManager(ctx, &cfg.Session)

	workflow := retrieval.NewWorkflow(c.Store, c.Embeddings, &cfg.Search)
	c.Retriever = retrieval.NewRetriever(workflow, &cfg.Search)
	c.LLM = llm.NewOpenAIClient(&cfg.OpenAI, cfg.Search.ContextMaxLength)

	c.Chunker = chunking.NewChunker(&cfg.Chunking)
	c.Indexer = indexing.NewIndexer(c.Store, c.Embeddings, c.Chunker, cfg.VectorDB.Qdrant.Collection)
	c.Updater = indexing.NewIncrementalUpdater(c.Indexer, c.Store, cfg.Data.IndexStateFile)
	c.IndexMonitor = indexing.NewIndexMonitor(c.Store, c.Updater)

	c.Limiter = ratelimit.NewSlidingWindowLimiter(&cfg.RateLimit)
	return c, nil
}

// HandlerDeps bundles the wired components for the request surface
func (c *Container) HandlerDeps() *handlers.Deps {
	return &handlers.Deps{
		Config:        c.Config,
		Store:         c.Store,
		Embeddings:    c.Embeddings,
		Retriever:     c.Retriever,
		LLM:           c.LLM,
		Sessions:      c.Sessions,
		Cache:         c.Cache,
		Indexer:       c.Indexer,
		Updater:       c.Updater,
		IndexMonitor:  c.IndexMonitor,
		APIMonitor:    c.APIMonitor,
		Performance:   c.Performance,
		VectorMonitor: c.VectorMonitor,
		QueryLog:      c.QueryLog,
		ErrorLog:      c.ErrorLog,
	}
}

// HealthCheck probes the components with external dependencies
func (c *Container) HealthCheck(ctx context.Context) error {
	if err := c.Store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("vector store: %w", err)
	}
	if err := c.Embeddings.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding service: %w", err)
	}
	return nil
}

// Shutdown releases resources in reverse dependency order
func (c *Container) Shutdown(ctx context.Context) error {
	var firstErr error
	c.Limiter.Stop()
	if err := c.Sessions.Close(); err != nil {
		firstErr = err
		c.Logger.Warn("session manager close failed", "error", err)
	}
	if err := c.Updater.State().Save(); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		c.Logger.Warn("index state save failed", "error", err)
	}
	if err := c.Store.Close(); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		c.Logger.Warn("vector store close failed", "error", err)
	}
	return firstErr
}

func buildLogger(cfg *config.Config) logging.Logger {
	level := logging.ParseLogLevel(cfg.Logging.Level)
	if cfg.Logging.File == "" {
		return logging.NewLogger(level)
	}
	logger, err := logging.NewFileLogger(level, cfg.Logging.File)
	if err != nil {
		logger.Warn("log file unavailable, logging to stdout only",
			"file", cfg.Logging.File, "error", err)
	}
	return logger
}
