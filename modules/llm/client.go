package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoClient is reported by LLM nodes when no API client is configured.
var ErrNoClient = errors.New("llm: no client configured")

// Message is one turn of a chat conversation.
type Message struct {
	Role    string
	Content string
}

// Client is the subset of an LLM provider the nodes need.
type Client interface {
	Chat(ctx context.Context, model string, messages []Message) (string, error)
	Embed(ctx context.Context, model, text string) ([]float32, error)
}

// OpenAIClient implements Client on top of the OpenAI API.
type OpenAIClient struct {
	client *openai.Client

	MaxTokens   int
	Temperature float32
}

// NewOpenAIClient creates a client authenticated with apiKey. A non-empty
// baseURL points it at an OpenAI-compatible server.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(cfg),
		MaxTokens:   1000,
		Temperature: 0.7,
	}
}

// Chat implements Client.
func (c *OpenAIClient) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed implements Client.
func (c *OpenAIClient) Embed(ctx context.Context, model, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("create embedding: no data returned")
	}
	return resp.Data[0].Embedding, nil
}
