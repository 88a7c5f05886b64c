// Package llm defines the model-endpoint seams used by the workers and the
// query service, plus the OpenAI-compatible implementations.
package llm

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/docinsight/internal/config"
	"github.com/Lllllllleong/docinsight/internal/gcp"
	"github.com/Lllllllleong/docinsight/internal/models"
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts models.GenerationOptions) (string, error)
}

// Embedder maps a piece of text to its embedding vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// GeneratorCloser is a Generator holding a connection that must be released.
type GeneratorCloser interface {
	Generator
	Close() error
}

// NewGenerator builds the generator selected by cfg.Provider.
func NewGenerator(ctx context.Context, cfg config.ModelConfig) (GeneratorCloser, error) {
	switch cfg.Provider {
	case "vertex":
		client, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.Region)
		if err != nil {
			return nil, err
		}
		return client.Generator(cfg.Model), nil
	case "openai":
		return NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model)
	}
	return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
}
