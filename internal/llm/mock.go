package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of Client for handler and pipeline tests
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Generate(ctx context.Context, contextText, query string, documentTypes []string) (string, error) {
	args := m.Called(ctx, contextText, query, documentTypes)
	return args.String(0), args.Error(1)
}

func (m *MockClient) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

func (m *MockClient) GenerateStream(ctx context.Context, contextText, query string, documentTypes []string) (<-chan StreamChunk, error) {
	args := m.Called(ctx, contextText, query, documentTypes)
	if ch := args.Get(0); ch != nil {
		return ch.(<-chan StreamChunk), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) GenerateStreamWithSystem(ctx context.Context, systemPrompt, userPrompt string) (<-chan StreamChunk, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	if ch := args.Get(0); ch != nil {
		return ch.(<-chan StreamChunk), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) TokenUsage() TokenUsage {
	args := m.Called()
	return args.Get(0).(TokenUsage)
}

func (m *MockClient) ResetTokenUsage() {
	m.Called()
}

// ChunkChannel turns fixed chunks into the receive-only channel shape the
// mock returns.
func ChunkChannel(chunks ...string) <-chan StreamChunk {
	out := make(chan StreamChunk, len(chunks))
	for _, chunk := range chunks {
		out <- StreamChunk{Content: chunk}
	}
	close(out)
	return out
}
