package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"legal-rag-service/internal/config"
	legalerrors "legal-rag-service/internal/errors"
	"legal-rag-service/internal/logging"
	"legal-rag-service/internal/retry"
)

// TokenUsage accumulates provider-reported token counts
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk is one piece of a streamed completion; Err is set on the final
// chunk when the stream dies mid-way.
type StreamChunk struct {
	Content string
	Err     error
}

// Client generates answers from retrieved context. GenerateStream's channel
// is finite and closed when the completion ends or the context is cancelled;
// it is not restartable.
type Client interface {
	Generate(ctx context.Context, contextText, query string, documentTypes []string) (string, error)
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	GenerateStream(ctx context.Context, contextText, query string, documentTypes []string) (<-chan StreamChunk, error)
	GenerateStreamWithSystem(ctx context.Context, systemPrompt, userPrompt string) (<-chan StreamChunk, error)
	TokenUsage() TokenUsage
	ResetTokenUsage()
}

// OpenAIClient implements Client over chat completions
type OpenAIClient struct {
	client  *openai.Client
	cfg     *config.OpenAIConfig
	budget  int
	retrier *retry.Retrier
	logger  logging.Logger

	mu    sync.Mutex
	usage TokenUsage
}

// NewOpenAIClient builds the chat adapter; contextBudget <= 0 uses the
// default prompt context budget.
func NewOpenAIClient(cfg *config.OpenAIConfig, contextBudget int) *OpenAIClient {
	if contextBudget <= 0 {
		contextBudget = DefaultContextBudget
	}
	return &OpenAIClient{
		client:  openai.NewClient(cfg.APIKey),
		cfg:     cfg,
		budget:  contextBudget,
		retrier: retry.New(retry.DefaultConfig()),
		logger:  logging.WithComponent("llm"),
	}
}

// Generate produces a non-streaming answer for the query over the retrieved
// context. Transient provider failures are retried; exhaustion surfaces as
// an LLMError.
func (c *OpenAIClient) Generate(ctx context.Context, contextText, query string, documentTypes []string) (string, error) {
	userPrompt := UserPrompt(OptimizeContext(contextText, c.budget), query, documentTypes)
	return c.GenerateWithSystem(ctx, SystemPrompt(), userPrompt)
}

// GenerateWithSystem runs a completion with an explicit system prompt, used
// by content generation.
func (c *OpenAIClient) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var answer string
	result := c.retrier.Do(ctx, func(ctx context.Context) error {
		resp, err := c.createCompletion(ctx, systemPrompt, userPrompt, false)
		if err != nil {
			return classifyLLMError(err)
		}
		if len(resp.Choices) == 0 {
			return retry.Permanent(errors.New("completion returned no choices"))
		}
		answer = resp.Choices[0].Message.Content
		c.recordUsage(resp.Usage)
		return nil
	})
	if result.Err != nil {
		if result.Attempts > 1 {
			c.logger.Warn("Completion failed after retries",
				"attempts", result.Attempts, "error", result.Err)
		}
		return "", legalerrors.NewLLMError("failed to generate response", result.Err)
	}
	return answer, nil
}

// GenerateStream starts a streaming completion. The channel yields content
// chunks and closes after the final one; a mid-stream failure is delivered
// as a last chunk with Err set. Streams are not retried.
func (c *OpenAIClient) GenerateStream(ctx context.Context, contextText, query string, documentTypes []string) (<-chan StreamChunk, error) {
	userPrompt := UserPrompt(OptimizeContext(contextText, c.budget), query, documentTypes)
	return c.GenerateStreamWithSystem(ctx, SystemPrompt(), userPrompt)
}

// GenerateStreamWithSystem streams a completion for an already-built prompt
// pair, used when the caller folds history into the prompt itself.
func (c *OpenAIClient) GenerateStreamWithSystem(ctx context.Context, systemPrompt, userPrompt string) (<-chan StreamChunk, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.request(systemPrompt, userPrompt, true))
	if err != nil {
		return nil, legalerrors.NewLLMError("failed to start stream", classifyLLMError(err))
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case out <- StreamChunk{Err: legalerrors.NewLLMError("stream interrupted", err)}:
				case <-ctx.Done():
				}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			select {
			case out <- StreamChunk{Content: resp.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// TokenUsage returns the accumulated token counts
func (c *OpenAIClient) TokenUsage() TokenUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// ResetTokenUsage zeroes the accumulated token counts
func (c *OpenAIClient) ResetTokenUsage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage = TokenUsage{}
}

func (c *OpenAIClient) createCompletion(ctx context.Context, systemPrompt, userPrompt string, stream bool) (openai.ChatCompletionResponse, error) {
	timeout := time.Duration(c.cfg.LLMTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.client.CreateChatCompletion(ctx, c.request(systemPrompt, userPrompt, stream))
}

func (c *OpenAIClient) request(systemPrompt, userPrompt string, stream bool) openai.ChatCompletionRequest {
	temperature := float32(c.cfg.Temperature)
	if temperature <= 0 {
		temperature = 0.3
	}
	return openai.ChatCompletionRequest{
		Model:       c.cfg.LLMModel,
		Temperature: temperature,
		Stream:      stream,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
}

func (c *OpenAIClient) recordUsage(usage openai.Usage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage.PromptTokens += usage.PromptTokens
	c.usage.CompletionTokens += usage.CompletionTokens
	c.usage.TotalTokens += usage.TotalTokens
}

// classifyLLMError splits provider failures for the retry engine: auth,
// quota and context-length problems fail fast; overload and network trouble
// are retryable.
func classifyLLMError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return retry.Permanent(fmt.Errorf("authentication failed: %w", err))
		case http.StatusTooManyRequests:
			return retry.Permanent(fmt.Errorf("quota exceeded: %w", err))
		case http.StatusBadRequest:
			if code, ok := apiErr.Code.(string); ok && strings.Contains(code, "context_length") {
				return retry.Permanent(fmt.Errorf("context too long: %w", err))
			}
			return retry.Permanent(fmt.Errorf("request rejected: %w", err))
		default:
			return retry.Temporary(fmt.Errorf("provider unavailable: %w", err))
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return retry.Temporary(fmt.Errorf("completion failed: %w", err))
}
