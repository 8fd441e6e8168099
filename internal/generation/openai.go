package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
)

var errNoChoices = errors.New("completion returned no choices")

// OpenAIGenerator produces answers through an OpenAI-compatible chat completions API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIGenerator creates a generator for model with the given OpenAI client.
func NewOpenAIGenerator(client *openai.Client, model string, logger *slog.Logger) *OpenAIGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIGenerator{
		client: client,
		model:  model,
		logger: logger,
	}
}

// Generate sends prompt as a single user message and returns the reply text.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: g.model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		g.logger.Debug("Empty completion", "model", g.model, "finish_reason", resp.Choices[0].FinishReason)
		return "", errEmptyCompletion
	}
	return content, nil
}
