package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/docinsight/internal/llm"
	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/vectorindex"
)

const (
	// QueryTopK is how many chunks are scored before the best one is picked.
	QueryTopK = 4

	queryMaxTokens   = 512
	queryTemperature = 0.25
)

// ErrNoIndex reports a question about a document that has not been embedded.
var ErrNoIndex = errors.New("could not find vector index")

// QueryService answers questions against one document's vector index.
type QueryService struct {
	mountPoint string
	embedder   llm.Embedder
	generator  llm.Generator
}

func NewQueryService(mountPoint string, embedder llm.Embedder, generator llm.Generator) *QueryService {
	return &QueryService{
		mountPoint: mountPoint,
		embedder:   embedder,
		generator:  generator,
	}
}

// BuildPrompt is the fixed question answering template.
func BuildPrompt(contextText, question string) string {
	return fmt.Sprintf("Context=%s\nQuestion=%s\nAnswer=", contextText, question)
}

// Answer retrieves the best matching chunk for question and asks the generator.
func (q *QueryService) Answer(ctx context.Context, documentID, question string) (string, error) {
	if err := models.ValidateID("docId", documentID); err != nil {
		return "", err
	}
	if strings.TrimSpace(question) == "" {
		return "", errors.New("question is required")
	}
	logCtx := slog.With("documentId", documentID)

	dir := vectorindex.Dir(q.mountPoint, documentID)
	if !vectorindex.Exists(dir) {
		logCtx.Info("No vector index for document.")
		return "", fmt.Errorf("%w for %s", ErrNoIndex, documentID)
	}

	best, err := q.bestChunk(ctx, dir, question)
	if err != nil {
		return "", err
	}
	logCtx.Debug("Selected context chunk.", "score", best.Score)

	prompt := BuildPrompt(strings.ReplaceAll(best.Text, "\n", ""), question)
	answer, err := q.generator.Generate(ctx, prompt, models.GenerationOptions{
		MaxTokens:   queryMaxTokens,
		Temperature: queryTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return strings.TrimSpace(strings.ReplaceAll(answer, "\n", "")), nil
}

// bestChunk picks the highest cosine score among the top matches; higher is closer.
func (q *QueryService) bestChunk(ctx context.Context, dir, question string) (vectorindex.Match, error) {
	vector, err := q.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return vectorindex.Match{}, fmt.Errorf("failed to embed question: %w", err)
	}

	idx, err := vectorindex.Open(dir)
	if err != nil {
		return vectorindex.Match{}, err
	}
	defer idx.Close()

	matches, err := idx.Search(ctx, vector, QueryTopK)
	if err != nil {
		return vectorindex.Match{}, fmt.Errorf("failed to search vector index: %w", err)
	}
	best, ok := vectorindex.Best(matches)
	if !ok {
		return vectorindex.Match{}, errors.New("vector index is empty")
	}
	return best, nil
}
