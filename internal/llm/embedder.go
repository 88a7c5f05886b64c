package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// EmbeddingEndpoint implements Embedder against an OpenAI-compatible embeddings API.
type EmbeddingEndpoint struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

var _ Embedder = (*EmbeddingEndpoint)(nil)

// NewEmbeddingEndpoint connects to baseURL. Local endpoints accept the token "none".
func NewEmbeddingEndpoint(baseURL, model, apiKey string) (*EmbeddingEndpoint, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("embedding endpoint must be set")
	}
	if apiKey == "" {
		apiKey = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &EmbeddingEndpoint{
		embedder: embedder,
		logger:   slog.Default().With("component", "embedder", "model", model),
	}, nil
}

// EmbedQuery makes exactly one endpoint call for text.
func (e *EmbeddingEndpoint) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding", "length", len(text))

	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("embedding endpoint returned an empty vector")
	}
	return vector, nil
}
