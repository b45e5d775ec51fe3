package storage

import (
	"context"

	legalerrors "legal-rag-service/internal/errors"
	"legal-rag-service/internal/logging"
	"legal-rag-service/internal/retry"
)

// RetryableVectorStore decorates a VectorStore with the shared adapter retry
// policy. Read and write operations that fail transiently are retried;
// exhaustion surfaces as a VectorStoreError. Initialize and Close are not
// retried: startup failures should be visible immediately.
type RetryableVectorStore struct {
	store   VectorStore
	retrier *retry.Retrier
	logger  logging.Logger
}

// NewRetryableVectorStore wraps the store with retry logic; nil config uses
// the default adapter policy (3 attempts, 1s initial delay, doubling).
func NewRetryableVectorStore(store VectorStore, cfg *retry.Config) *RetryableVectorStore {
	if cfg == nil {
		cfg = retry.DefaultConfig()
	}
	return &RetryableVectorStore{
		store:   store,
		retrier: retry.New(cfg),
		logger:  logging.WithComponent("vector-store"),
	}
}

func (rs *RetryableVectorStore) do(ctx context.Context, operation string, op retry.Operation) error {
	result := rs.retrier.Do(ctx, op)
	if result.Err != nil {
		if result.Attempts > 1 {
			rs.logger.Warn("Vector store operation failed after retries",
				"operation", operation, "attempts", result.Attempts, "error", result.Err)
		}
		return legalerrors.NewVectorStoreError(operation+" failed", result.Err)
	}
	return nil
}

func (rs *RetryableVectorStore) Initialize(ctx context.Context) error {
	return rs.store.Initialize(ctx)
}

func (rs *RetryableVectorStore) Add(ctx context.Context, ids []string, embeddings [][]float64, texts []string, metadatas []map[string]interface{}) error {
	return rs.do(ctx, "add", func(ctx context.Context) error {
		return rs.store.Add(ctx, ids, embeddings, texts, metadatas)
	})
}

func (rs *RetryableVectorStore) Search(ctx context.Context, queryVec []float64, k int, where Where) (*QueryResult, error) {
	var result *QueryResult
	err := rs.do(ctx, "search", func(ctx context.Context) error {
		var opErr error
		result, opErr = rs.store.Search(ctx, queryVec, k, where)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (rs *RetryableVectorStore) DeleteByIDs(ctx context.Context, ids []string) error {
	return rs.do(ctx, "delete", func(ctx context.Context) error {
		return rs.store.DeleteByIDs(ctx, ids)
	})
}

func (rs *RetryableVectorStore) DeleteWhere(ctx context.Context, where Where) error {
	return rs.do(ctx, "delete_where", func(ctx context.Context) error {
		return rs.store.DeleteWhere(ctx, where)
	})
}

func (rs *RetryableVectorStore) Update(ctx context.Context, id string, embedding []float64, text string, metadata map[string]interface{}) error {
	return rs.do(ctx, "update", func(ctx context.Context) error {
		return rs.store.Update(ctx, id, embedding, text, metadata)
	})
}

func (rs *RetryableVectorStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := rs.do(ctx, "count", func(ctx context.Context) error {
		var opErr error
		count, opErr = rs.store.Count(ctx)
		return opErr
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (rs *RetryableVectorStore) Reset(ctx context.Context) error {
	return rs.do(ctx, "reset", func(ctx context.Context) error {
		return rs.store.Reset(ctx)
	})
}

func (rs *RetryableVectorStore) HealthCheck(ctx context.Context) error {
	return rs.store.HealthCheck(ctx)
}

func (rs *RetryableVectorStore) Close() error {
	return rs.store.Close()
}
