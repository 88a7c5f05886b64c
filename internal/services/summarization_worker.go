package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/docinsight/internal/config"
	"github.com/Lllllllleong/docinsight/internal/llm"
	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/records"
	"github.com/Lllllllleong/docinsight/internal/textsplit"
)

// ObjectReader reads whole objects from storage.
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, name string) ([]byte, error)
}

// ObjectWriter replaces whole objects in storage.
type ObjectWriter interface {
	WriteObject(ctx context.Context, bucket, name string, data []byte, contentType string) error
}

// SummaryObjects is the storage a summarization worker needs.
type SummaryObjects interface {
	ObjectReader
	ObjectWriter
}

const summarizePrompt = "Summarize this article:\n\n"

// SummarizationWorker runs one summarization job to a terminal status.
type SummarizationWorker struct {
	store     records.Store
	objects   SummaryObjects
	generator llm.Generator
	config    config.SummarizationWorkerConfig
}

func NewSummarizationWorker(store records.Store, objects SummaryObjects, generator llm.Generator, cfg config.SummarizationWorkerConfig) *SummarizationWorker {
	return &SummarizationWorker{store: store, objects: objects, generator: generator, config: cfg}
}

// Run summarizes the job's source text. Any failure marks the job Failed and is returned.
func (w *SummarizationWorker) Run(ctx context.Context) error {
	cfg := w.config
	logCtx := slog.With("documentId", cfg.DocumentID, "jobId", cfg.JobID, "kind", models.JobKindSummarization)
	logCtx.Info("Starting summarization.", "bucket", cfg.Bucket, "name", cfg.Name, "chunkSize", cfg.ChunkSize, "chunkOverlap", cfg.ChunkOverlap)

	summary, err := w.summarize(ctx, logCtx)
	if err != nil {
		return w.handleError(ctx, logCtx, "summarization failed", err)
	}

	if cfg.OutputBucket != "" {
		name := fmt.Sprintf("%s/summary.txt", cfg.DocumentID)
		if err := w.objects.WriteObject(ctx, cfg.OutputBucket, name, []byte(summary), "text/plain; charset=utf-8"); err != nil {
			return w.handleError(ctx, logCtx, "failed to write summary artifact", err)
		}
		logCtx.Info("Summary artifact written.", "uri", fmt.Sprintf("gs://%s/%s", cfg.OutputBucket, name))
	}

	if err := w.store.CompleteJob(ctx, models.JobKindSummarization, cfg.DocumentID, cfg.JobID, summary); err != nil {
		return w.handleError(ctx, logCtx, "failed to complete job", err)
	}
	logCtx.Info("Summarization complete.", "summaryLength", len(summary))
	return nil
}

func (w *SummarizationWorker) summarize(ctx context.Context, logCtx *slog.Logger) (string, error) {
	cfg := w.config

	data, err := w.objects.ReadObject(ctx, cfg.Bucket, cfg.Name)
	if err != nil {
		return "", fmt.Errorf("failed to download source text: %w", err)
	}

	splitter, err := textsplit.NewSummarySplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return "", err
	}
	chunks, err := splitter.SplitText(string(data))
	if err != nil {
		return "", fmt.Errorf("failed to split source text: %w", err)
	}
	logCtx.Info("Source text split.", "chunkCount", len(chunks))

	if err := w.store.MarkJobInProgress(ctx, models.JobKindSummarization, cfg.DocumentID, cfg.JobID); err != nil {
		return "", err
	}

	opts := models.GenerationOptions{
		MaxTokens:   cfg.MaxLength,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		TopK:        cfg.TopK,
		NumBeams:    cfg.NumBeams,
	}
	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		summary, err := w.generator.Generate(ctx, summarizePrompt+chunk, opts)
		if err != nil {
			return "", fmt.Errorf("chunk %d: %w", i, err)
		}
		logCtx.Debug("Chunk summarized.", "chunk", i)
		summaries = append(summaries, summary)
	}
	return strings.Join(summaries, "\n"), nil
}

func (w *SummarizationWorker) handleError(ctx context.Context, logCtx *slog.Logger, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := w.store.FailJob(ctx, models.JobKindSummarization, w.config.DocumentID, w.config.JobID, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update job status to Failed after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}
