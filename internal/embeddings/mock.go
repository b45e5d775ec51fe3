package embeddings

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEmbeddingService is a testify mock of EmbeddingService for tests across
// packages.
type MockEmbeddingService struct {
	mock.Mock
}

func (m *MockEmbeddingService) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	args := m.Called(ctx, text)
	if vec := args.Get(0); vec != nil {
		return vec.([]float64), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEmbeddingService) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	args := m.Called(ctx, texts)
	if vecs := args.Get(0); vecs != nil {
		return vecs.([][]float64), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEmbeddingService) GetDimension() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockEmbeddingService) GetModel() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
