// Package config loads the validated, per-process configuration of every
// binary in the pipeline. Values come from the environment, optionally seeded
// from a .env file, and are injected into services at startup.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/joho/godotenv"
)

// EnvFileVar names an optional .env file loaded before the environment is read.
const EnvFileVar = "DOCINSIGHT_ENV_FILE"

// ErrMissing is wrapped by every "required value not set" validation error.
var ErrMissing = errors.New("required configuration missing")

// LoadEnvFile reads DOCINSIGHT_ENV_FILE if set. A missing file is not an error
// so deployments can rely on the real environment alone.
func LoadEnvFile() error {
	path := os.Getenv(EnvFileVar)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	return models.ParseInt(key, strings.TrimSpace(GetEnv(key, "")), fallback)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	return models.ParseFloat(key, strings.TrimSpace(GetEnv(key, "")), fallback)
}

func required(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

// LogLevel parses LOG_LEVEL, defaulting to info.
func LogLevel() slog.Level {
	switch strings.ToLower(GetEnv("LOG_LEVEL", "info")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Backend selects the record store implementation.
type Backend string

const (
	BackendFirestore Backend = "firestore"
	BackendBadger    Backend = "badger"
)

// RecordsConfig locates the record store tables.
type RecordsConfig struct {
	Backend                 Backend
	ProjectID               string
	DatabaseID              string
	BadgerPath              string // empty means in-memory
	DocumentsCollection     string
	SummarizationCollection string
	EmbeddingCollection     string
}

// LoadRecords reads the record store location shared by every process.
func LoadRecords() RecordsConfig {
	return RecordsConfig{
		Backend:                 Backend(GetEnv("RECORDS_BACKEND", string(BackendFirestore))),
		ProjectID:               GetEnv("PROJECT_ID", ""),
		DatabaseID:              GetEnv("FIRESTORE_DATABASE", ""),
		BadgerPath:              GetEnv("RECORDS_BADGER_PATH", ""),
		DocumentsCollection:     GetEnv("DOCUMENTS_TABLE", "documents"),
		SummarizationCollection: GetEnv("SUMMARIZATION_TABLE", "summarizationJobs"),
		EmbeddingCollection:     GetEnv("EMBEDDING_TABLE", "embeddingJobs"),
	}
}

// Validate checks the record store settings.
func (c RecordsConfig) Validate() error {
	switch c.Backend {
	case BackendFirestore:
		if err := required("PROJECT_ID", c.ProjectID); err != nil {
			return err
		}
	case BackendBadger:
	default:
		return fmt.Errorf("RECORDS_BACKEND: unknown backend %q", c.Backend)
	}
	return required(
		"DOCUMENTS_TABLE", c.DocumentsCollection,
		"SUMMARIZATION_TABLE", c.SummarizationCollection,
		"EMBEDDING_TABLE", c.EmbeddingCollection,
	)
}

// DispatcherConfig configures the three HTTP dispatchers.
type DispatcherConfig struct {
	Records          RecordsConfig
	BrokerURL        string
	EventSource      string
	WorkflowLocation string
	OCRWorkflowID    string
}

// LoadDispatcher reads the dispatcher configuration.
func LoadDispatcher(source string) (*DispatcherConfig, error) {
	cfg := &DispatcherConfig{
		Records:          LoadRecords(),
		BrokerURL:        GetEnv("BROKER_URL", ""),
		EventSource:      GetEnv("EVENT_SOURCE", source),
		WorkflowLocation: GetEnv("WORKFLOW_LOCATION", "us-central1"),
		OCRWorkflowID:    GetEnv("OCR_WORKFLOW_ID", "document-ocr"),
	}
	return cfg, cfg.Validate()
}

// Validate checks the dispatcher settings.
func (c *DispatcherConfig) Validate() error {
	if err := c.Records.Validate(); err != nil {
		return err
	}
	return required("EVENT_SOURCE", c.EventSource)
}

// LauncherConfig configures the worker launcher.
type LauncherConfig struct {
	Records                 RecordsConfig
	WorkflowLocation        string
	SummarizationWorkflowID string
	EmbeddingWorkflowID     string
	WorkerContainer         string
}

// LoadLauncher reads the launcher configuration.
func LoadLauncher() (*LauncherConfig, error) {
	cfg := &LauncherConfig{
		Records:                 LoadRecords(),
		WorkflowLocation:        GetEnv("WORKFLOW_LOCATION", "us-central1"),
		SummarizationWorkflowID: GetEnv("SUMMARIZATION_WORKFLOW_ID", "summarization-worker"),
		EmbeddingWorkflowID:     GetEnv("EMBEDDING_WORKFLOW_ID", "embedding-worker"),
		WorkerContainer:         GetEnv("WORKER_CONTAINER", "worker"),
	}
	return cfg, cfg.Validate()
}

// Validate checks the launcher settings.
func (c *LauncherConfig) Validate() error {
	if err := c.Records.Validate(); err != nil {
		return err
	}
	return required(
		"PROJECT_ID", c.Records.ProjectID,
		"SUMMARIZATION_WORKFLOW_ID", c.SummarizationWorkflowID,
		"EMBEDDING_WORKFLOW_ID", c.EmbeddingWorkflowID,
	)
}

// JobEnv holds the per-job values the launcher injects into a worker.
type JobEnv struct {
	DocumentID string
	JobID      string
	Bucket     string
	Name       string
}

func loadJobEnv() JobEnv {
	return JobEnv{
		DocumentID: GetEnv("docId", ""),
		JobID:      GetEnv("jobId", ""),
		Bucket:     GetEnv("bucket", ""),
		Name:       GetEnv("name", ""),
	}
}

func (j JobEnv) validate() error {
	return required("docId", j.DocumentID, "jobId", j.JobID, "bucket", j.Bucket, "name", j.Name)
}

// LoadWorkerJob reads only the job identity and the record store of a launched
// worker, so a worker whose full configuration is invalid can still fail its job.
func LoadWorkerJob(kind models.JobKind) (JobEnv, RecordsConfig, error) {
	job := loadJobEnv()
	records := workerRecords(kind)
	if err := job.validate(); err != nil {
		return job, records, err
	}
	return job, records, records.Validate()
}

func workerRecords(kind models.JobKind) RecordsConfig {
	records := LoadRecords()
	records.ProjectID = GetEnv("project", records.ProjectID)
	switch kind {
	case models.JobKindSummarization:
		records.SummarizationCollection = GetEnv("table", records.SummarizationCollection)
	case models.JobKindEmbedding:
		records.EmbeddingCollection = GetEnv("table", records.EmbeddingCollection)
		records.DocumentsCollection = GetEnv("documents_table", records.DocumentsCollection)
	}
	return records
}

// SummarizationWorkerConfig configures one summarization worker run.
type SummarizationWorkerConfig struct {
	JobEnv
	models.SummarizationSettings
	Records      RecordsConfig
	Model        ModelConfig
	OutputBucket string
}

// LoadSummarizationWorker reads the worker environment, applying the summarization defaults.
func LoadSummarizationWorker() (*SummarizationWorkerConfig, error) {
	records := workerRecords(models.JobKindSummarization)

	cfg := &SummarizationWorkerConfig{
		JobEnv:                loadJobEnv(),
		SummarizationSettings: models.DefaultSummarizationSettings(),
		Records:               records,
		Model:                 loadModel("endpoint", "", records.ProjectID),
		OutputBucket:          GetEnv("output_bucket", ""),
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"chunk_size", &cfg.ChunkSize},
		{"chunk_overlap", &cfg.ChunkOverlap},
		{"max_length", &cfg.MaxLength},
		{"num_beams", &cfg.NumBeams},
		{"top_k", &cfg.TopK},
	}
	for _, f := range ints {
		v, err := getEnvInt(f.key, *f.dst)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	var err error
	if cfg.TopP, err = getEnvFloat("top_p", cfg.TopP); err != nil {
		return nil, err
	}
	if cfg.Temperature, err = getEnvFloat("temperature", cfg.Temperature); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the summarization worker settings.
func (c *SummarizationWorkerConfig) Validate() error {
	if err := c.Records.Validate(); err != nil {
		return err
	}
	if err := c.JobEnv.validate(); err != nil {
		return err
	}
	if err := c.Model.Validate(); err != nil {
		return err
	}
	return c.SummarizationSettings.Validate()
}

// EmbeddingWorkerConfig configures one embedding worker run.
type EmbeddingWorkerConfig struct {
	JobEnv
	Records    RecordsConfig
	Endpoint   string
	Model      string
	APIKey     string
	Region     string
	MountPoint string
}

// LoadEmbeddingWorker reads the embedding worker environment.
func LoadEmbeddingWorker() (*EmbeddingWorkerConfig, error) {
	records := workerRecords(models.JobKindEmbedding)

	cfg := &EmbeddingWorkerConfig{
		JobEnv:     loadJobEnv(),
		Records:    records,
		Endpoint:   GetEnv("endpoint", ""),
		Model:      GetEnv("model", "text-embedding-3-small"),
		APIKey:     GetEnv("EMBEDDING_API_KEY", "none"),
		Region:     GetEnv("region", "us-central1"),
		MountPoint: GetEnv("mountpoint", ""),
	}
	return cfg, cfg.Validate()
}

// Validate checks the embedding worker settings.
func (c *EmbeddingWorkerConfig) Validate() error {
	if err := c.Records.Validate(); err != nil {
		return err
	}
	if err := c.JobEnv.validate(); err != nil {
		return err
	}
	return required("endpoint", c.Endpoint, "mountpoint", c.MountPoint)
}

// ModelConfig selects the hosted generation backend.
type ModelConfig struct {
	Provider  string // "vertex" or "openai"
	ProjectID string
	Region    string
	Model     string
	BaseURL   string
	APIKey    string

	// ModelVar names the variable Model was read from, for error messages.
	ModelVar string
}

// loadModel reads the generation backend shared by the worker and the query
// service. The model name comes from modelVar.
func loadModel(modelVar, fallbackModel, projectID string) ModelConfig {
	return ModelConfig{
		Provider:  GetEnv("GENERATION_PROVIDER", "vertex"),
		ProjectID: projectID,
		Region:    GetEnv("region", "us-central1"),
		Model:     GetEnv(modelVar, fallbackModel),
		BaseURL:   GetEnv("GENERATION_BASE_URL", ""),
		APIKey:    GetEnv("GENERATION_API_KEY", ""),
		ModelVar:  modelVar,
	}
}

// Validate checks the generation backend settings.
func (c ModelConfig) Validate() error {
	modelVar := c.ModelVar
	if modelVar == "" {
		modelVar = "GENERATION_MODEL"
	}
	switch c.Provider {
	case "vertex":
		return required("PROJECT_ID", c.ProjectID, modelVar, c.Model)
	case "openai":
		return required("GENERATION_API_KEY", c.APIKey, modelVar, c.Model)
	}
	return fmt.Errorf("GENERATION_PROVIDER: unknown provider %q", c.Provider)
}

// QueryConfig configures the question answering service.
type QueryConfig struct {
	Port              string
	MountPoint        string
	EmbeddingEndpoint string
	EmbeddingModel    string
	EmbeddingAPIKey   string
	Generation        ModelConfig
}

// LoadQuery reads the query service configuration.
func LoadQuery() (*QueryConfig, error) {
	cfg := &QueryConfig{
		Port:              GetEnv("PORT", "5000"),
		MountPoint:        GetEnv("mountpoint", ""),
		EmbeddingEndpoint: GetEnv("endpoint_embed", ""),
		EmbeddingModel:    GetEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingAPIKey:   GetEnv("EMBEDDING_API_KEY", "none"),
		Generation:        loadModel("endpoint_qa", GetEnv("GENERATION_MODEL", "gemini-1.5-pro"), GetEnv("PROJECT_ID", "")),
	}
	return cfg, cfg.Validate()
}

// Validate checks the query service settings.
func (c *QueryConfig) Validate() error {
	if err := required("mountpoint", c.MountPoint, "endpoint_embed", c.EmbeddingEndpoint); err != nil {
		return err
	}
	return c.Generation.Validate()
}

// OCRConfig configures the OCR workflow steps.
type OCRConfig struct {
	Records          RecordsConfig
	VertexRegion     string
	OCRModel         string
	SplitPagesBucket string
	TextBucket       string
	UploadLimit      int
}

// LoadOCR reads the OCR step configuration.
func LoadOCR() (*OCRConfig, error) {
	cfg := &OCRConfig{
		Records:          LoadRecords(),
		VertexRegion:     GetEnv("VERTEX_AI_REGION", "us-central1"),
		OCRModel:         GetEnv("OCR_MODEL", "gemini-1.5-pro"),
		SplitPagesBucket: GetEnv("SPLIT_PAGES_BUCKET", ""),
		TextBucket:       GetEnv("TEXT_BUCKET", ""),
	}
	var err error
	if cfg.UploadLimit, err = getEnvInt("UPLOAD_CONCURRENCY", 10); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the OCR step settings.
func (c *OCRConfig) Validate() error {
	if err := c.Records.Validate(); err != nil {
		return err
	}
	if c.UploadLimit < 1 {
		return fmt.Errorf("UPLOAD_CONCURRENCY must be at least 1, got %d", c.UploadLimit)
	}
	return required("PROJECT_ID", c.Records.ProjectID, "SPLIT_PAGES_BUCKET", c.SplitPagesBucket, "TEXT_BUCKET", c.TextBucket)
}

// DocumentAPIConfig configures the document status API.
type DocumentAPIConfig struct {
	Port    string
	Records RecordsConfig
}

// LoadDocumentAPI reads the document API configuration.
func LoadDocumentAPI() (*DocumentAPIConfig, error) {
	cfg := &DocumentAPIConfig{
		Port:    GetEnv("PORT", "8080"),
		Records: LoadRecords(),
	}
	return cfg, cfg.Records.Validate()
}
