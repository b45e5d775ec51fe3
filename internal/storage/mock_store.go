package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockVectorStore is a testify mock of VectorStore shared by package tests
// across the service.
type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) Initialize(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockVectorStore) Add(ctx context.Context, ids []string, embeddings [][]float64, texts []string, metadatas []map[string]interface{}) error {
	args := m.Called(ctx, ids, embeddings, texts, metadatas)
	return args.Error(0)
}

func (m *MockVectorStore) Search(ctx context.Context, queryVec []float64, k int, where Where) (*QueryResult, error) {
	args := m.Called(ctx, queryVec, k, where)
	if result := args.Get(0); result != nil {
		return result.(*QueryResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVectorStore) DeleteByIDs(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockVectorStore) DeleteWhere(ctx context.Context, where Where) error {
	args := m.Called(ctx, where)
	return args.Error(0)
}

func (m *MockVectorStore) Update(ctx context.Context, id string, embedding []float64, text string, metadata map[string]interface{}) error {
	args := m.Called(ctx, id, embedding, text, metadata)
	return args.Error(0)
}

func (m *MockVectorStore) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVectorStore) Reset(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockVectorStore) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockVectorStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
