package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaGenerator produces answers with a model served by a local Ollama instance.
type OllamaGenerator struct {
	llm    *ollama.LLM
	model  string
	logger *slog.Logger
}

// NewOllamaGenerator creates a generator for model (e.g. "llama3.2:3b") at serverURL.
func NewOllamaGenerator(serverURL, model string, logger *slog.Logger) (*OllamaGenerator, error) {
	llm, err := ollama.New(ollama.WithServerURL(serverURL), ollama.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaGenerator{llm: llm, model: model, logger: logger}, nil
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := g.llm.Call(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		g.logger.Debug("Empty completion", "model", g.model)
		return "", errEmptyCompletion
	}
	return out, nil
}
