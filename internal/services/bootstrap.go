package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/docinsight/internal/config"
	"github.com/Lllllllleong/docinsight/internal/gcp"
	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/queue"
	"github.com/Lllllllleong/docinsight/internal/records"
)

// These constructors build each function's dependencies from the environment.
// The function binaries call them once, lazily, on the first invocation.

func openRecords(ctx context.Context, cfg config.RecordsConfig) (records.Store, error) {
	store, err := records.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	return store, nil
}

// NewExtractionDispatcherFromEnv wires the dispatcher that starts the OCR workflow.
func NewExtractionDispatcherFromEnv(ctx context.Context) (*DispatcherFunction, error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadDispatcher("extract-dispatcher")
	if err != nil {
		return nil, err
	}
	if cfg.Records.ProjectID == "" {
		return nil, fmt.Errorf("%w: PROJECT_ID", config.ErrMissing)
	}

	store, err := openRecords(ctx, cfg.Records)
	if err != nil {
		return nil, err
	}
	runner, err := gcp.NewWorkflowRunner(ctx, cfg.Records.ProjectID, cfg.WorkflowLocation)
	if err != nil {
		store.Close()
		return nil, err
	}
	detector := &gcp.WorkflowTextDetector{Runner: runner, WorkflowID: cfg.OCRWorkflowID}
	return NewDispatcher(store, nil, detector), nil
}

// NewQueueDispatcherFromEnv wires a dispatcher that enqueues jobs under the given event source.
func NewQueueDispatcherFromEnv(ctx context.Context, source string) (*DispatcherFunction, error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadDispatcher(source)
	if err != nil {
		return nil, err
	}

	publisher, err := queue.NewCloudEventPublisher(cfg.BrokerURL, cfg.EventSource)
	if err != nil {
		return nil, err
	}
	store, err := openRecords(ctx, cfg.Records)
	if err != nil {
		return nil, err
	}
	return NewDispatcher(store, publisher, nil), nil
}

// NewLauncherFromEnv wires the launcher to the per-kind worker workflows.
func NewLauncherFromEnv(ctx context.Context) (*LauncherFunction, error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadLauncher()
	if err != nil {
		return nil, err
	}

	store, err := openRecords(ctx, cfg.Records)
	if err != nil {
		return nil, err
	}
	runner, err := gcp.NewWorkflowRunner(ctx, cfg.Records.ProjectID, cfg.WorkflowLocation)
	if err != nil {
		store.Close()
		return nil, err
	}
	taskRunner := &gcp.WorkflowTaskRunner{
		Runner: runner,
		WorkflowIDs: map[models.JobKind]string{
			models.JobKindSummarization: cfg.SummarizationWorkflowID,
			models.JobKindEmbedding:     cfg.EmbeddingWorkflowID,
		},
		Container: cfg.WorkerContainer,
	}
	return NewLauncher(taskRunner, store), nil
}

func loadOCR(ctx context.Context) (*config.OCRConfig, records.Store, *gcp.ObjectStore, error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, nil, nil, err
	}
	cfg, err := config.LoadOCR()
	if err != nil {
		return nil, nil, nil, err
	}
	objects, err := gcp.NewObjectStore(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := openRecords(ctx, cfg.Records)
	if err != nil {
		objects.Close()
		return nil, nil, nil, err
	}
	return cfg, store, objects, nil
}

// NewOCRSplitterFromEnv wires the OCR splitter step.
func NewOCRSplitterFromEnv(ctx context.Context) (*OCRSplitterFunction, error) {
	cfg, store, objects, err := loadOCR(ctx)
	if err != nil {
		return nil, err
	}
	return NewOCRSplitter(store, objects, *cfg), nil
}

// NewOCRPageFromEnv wires the page OCR step. It does not touch the record store.
func NewOCRPageFromEnv(ctx context.Context) (*OCRPageFunction, error) {
	cfg, store, objects, err := loadOCR(ctx)
	if err != nil {
		return nil, err
	}
	store.Close()

	vertex, err := gcp.NewVertexClient(ctx, cfg.Records.ProjectID, cfg.VertexRegion)
	if err != nil {
		objects.Close()
		return nil, err
	}
	vertex.UseOCRModel(cfg.OCRModel)
	return NewOCRPage(vertex, objects, *cfg), nil
}

// NewOCRFinalizerFromEnv wires the OCR finalizer step.
func NewOCRFinalizerFromEnv(ctx context.Context) (*OCRFinalizerFunction, error) {
	cfg, store, objects, err := loadOCR(ctx)
	if err != nil {
		return nil, err
	}
	return NewOCRFinalizer(store, objects, *cfg), nil
}

// FailLaunchedJob marks a launched worker's job Failed when the worker cannot
// load its configuration. It needs only the job identity and the record store
// from the environment; without those there is nothing to report to.
func FailLaunchedJob(ctx context.Context, kind models.JobKind, cause error) error {
	job, recordsCfg, err := config.LoadWorkerJob(kind)
	if err != nil {
		return fmt.Errorf("cannot report worker failure: %w", err)
	}
	store, err := openRecords(ctx, recordsCfg)
	if err != nil {
		return err
	}
	defer store.Close()

	details := fmt.Sprintf("invalid worker configuration: %v", cause)
	if err := store.FailJob(ctx, kind, job.DocumentID, job.JobID, details); err != nil {
		return fmt.Errorf("failed to mark %s job %s Failed: %w", kind, job.JobID, err)
	}
	slog.Info("Job marked Failed after a worker configuration error.", "documentId", job.DocumentID, "jobId", job.JobID, "kind", kind)
	return nil
}
