// Package openai implements the embedding and completion provider
// contracts against any OpenAI-compatible endpoint (Ollama's /v1 API in
// the default deployment).
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"athena/internal/capabilities"
	"athena/internal/domain/models"
)

// Client wraps the OpenAI SDK for the three calls the engine makes:
// embed, complete, and streaming complete.
type Client struct {
	client       openai.Client
	chatModel    string
	summaryModel string
	embedModel   string
	logger       *slog.Logger
}

// NewClient creates a provider client from the model profile.
func NewClient(baseURL, apiKey string, profile *capabilities.ProviderProfile, logger *slog.Logger) *Client {
	return &Client{
		client: openai.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey(apiKey),
		),
		chatModel:    profile.Chat.ID,
		summaryModel: profile.Summary.ID,
		embedModel:   profile.Embedding.ID,
		logger:       logger,
	}
}

// Embed computes a dense vector for the text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embedModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}

	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}

// Complete runs a single non-streaming completion. Non-interactive
// work (history summarization) goes through here, on the profile's
// summary model.
func (c *Client) Complete(ctx context.Context, messages []models.PromptMessage) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.summaryModel),
		Messages: convertMessages(messages),
	})
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream runs a streaming completion, invoking emit per token.
func (c *Client) Stream(ctx context.Context, messages []models.PromptMessage, emit func(token string) error) (string, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.chatModel),
		Messages: convertMessages(messages),
	})
	defer func() { _ = stream.Close() }()

	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		token := chunk.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		full.WriteString(token)
		if err := emit(token); err != nil {
			return full.String(), fmt.Errorf("emit token: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return full.String(), fmt.Errorf("completion stream: %w", err)
	}
	return full.String(), nil
}

// convertMessages maps the domain roles onto SDK message params.
func convertMessages(messages []models.PromptMessage) []openai.ChatCompletionMessageParamUnion {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			converted = append(converted, openai.SystemMessage(m.Content))
		case models.RoleAssistant:
			converted = append(converted, openai.AssistantMessage(m.Content))
		default:
			converted = append(converted, openai.UserMessage(m.Content))
		}
	}
	return converted
}
