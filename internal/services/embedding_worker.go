package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Lllllllleong/docinsight/internal/config"
	"github.com/Lllllllleong/docinsight/internal/llm"
	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/records"
	"github.com/Lllllllleong/docinsight/internal/textsplit"
	"github.com/Lllllllleong/docinsight/internal/vectorindex"
)

// FileDownloader copies an object onto the local (shared) filesystem.
type FileDownloader interface {
	DownloadToFile(ctx context.Context, bucket, name, path string) error
}

// SummaryPath is where the embedding worker keeps the downloaded summary for documentID.
func SummaryPath(mountPoint, documentID string) string {
	return filepath.Join(mountPoint, documentID, "summary", "summary.txt")
}

// EmbeddingWorker runs one embedding job to a terminal status.
type EmbeddingWorker struct {
	store    records.Store
	objects  FileDownloader
	embedder llm.Embedder
	config   config.EmbeddingWorkerConfig
}

func NewEmbeddingWorker(store records.Store, objects FileDownloader, embedder llm.Embedder, cfg config.EmbeddingWorkerConfig) *EmbeddingWorker {
	return &EmbeddingWorker{store: store, objects: objects, embedder: embedder, config: cfg}
}

// Run builds the document's vector index. Any failure marks the job Failed and is returned.
func (w *EmbeddingWorker) Run(ctx context.Context) error {
	cfg := w.config
	logCtx := slog.With("documentId", cfg.DocumentID, "jobId", cfg.JobID, "kind", models.JobKindEmbedding)
	logCtx.Info("Starting embedding.", "bucket", cfg.Bucket, "name", cfg.Name)

	count, err := w.embed(ctx, logCtx)
	if err != nil {
		return w.handleError(ctx, logCtx, "embedding failed", err)
	}

	if err := w.store.CompleteJob(ctx, models.JobKindEmbedding, cfg.DocumentID, cfg.JobID, ""); err != nil {
		return w.handleError(ctx, logCtx, "failed to complete job", err)
	}

	err = w.store.UpdateDocumentStatus(ctx, cfg.DocumentID, models.StatusComplete)
	switch {
	case errors.Is(err, records.ErrNotFound):
		logCtx.Warn("No document record to mark Complete.")
	case err != nil:
		// The index is usable and the job is terminal; only the document status lags.
		logCtx.Error("Failed to mark document Complete", "error", err)
		return err
	}
	logCtx.Info("Embedding complete.", "chunkCount", count)
	return nil
}

func (w *EmbeddingWorker) embed(ctx context.Context, logCtx *slog.Logger) (int, error) {
	cfg := w.config

	summaryPath := SummaryPath(cfg.MountPoint, cfg.DocumentID)
	if err := w.objects.DownloadToFile(ctx, cfg.Bucket, cfg.Name, summaryPath); err != nil {
		return 0, fmt.Errorf("failed to download summary: %w", err)
	}
	data, err := os.ReadFile(summaryPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read summary: %w", err)
	}

	chunks, err := textsplit.NewEmbeddingSplitter().SplitText(string(data))
	if err != nil {
		return 0, fmt.Errorf("failed to split summary: %w", err)
	}
	if len(chunks) == 0 {
		return 0, errors.New("summary is empty")
	}
	logCtx.Info("Summary split.", "chunkCount", len(chunks))

	if err := w.store.MarkJobInProgress(ctx, models.JobKindEmbedding, cfg.DocumentID, cfg.JobID); err != nil {
		return 0, err
	}

	entries := make([]vectorindex.Chunk, 0, len(chunks))
	for i, chunk := range chunks {
		vector, err := w.embedder.EmbedQuery(ctx, chunk)
		if err != nil {
			return 0, fmt.Errorf("chunk %d: %w", i, err)
		}
		entries = append(entries, vectorindex.Chunk{Text: chunk, Vector: vector})
	}

	dir := vectorindex.Dir(cfg.MountPoint, cfg.DocumentID)
	if err := vectorindex.Build(dir, entries); err != nil {
		return 0, fmt.Errorf("failed to build vector index: %w", err)
	}
	logCtx.Info("Vector index written.", "path", dir)
	return len(entries), nil
}

func (w *EmbeddingWorker) handleError(ctx context.Context, logCtx *slog.Logger, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := w.store.FailJob(ctx, models.JobKindEmbedding, w.config.DocumentID, w.config.JobID, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update job status to Failed after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}
