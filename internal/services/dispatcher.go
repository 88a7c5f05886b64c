package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/queue"
	"github.com/Lllllllleong/docinsight/internal/records"
	"github.com/google/uuid"
)

// TextDetector starts asynchronous OCR for a document and returns the execution handle.
type TextDetector interface {
	StartTextDetection(ctx context.Context, req models.TextDetectionRequest) (string, error)
}

// DispatcherFunction validates job requests, records the job and hands the work off.
type DispatcherFunction struct {
	store     records.Store
	publisher queue.Publisher
	detector  TextDetector
	newJobID  func() string
}

// NewDispatcher wires a dispatcher. publisher may be nil for the extraction
// dispatcher and detector may be nil for the queue-backed ones.
func NewDispatcher(store records.Store, publisher queue.Publisher, detector TextDetector) *DispatcherFunction {
	return &DispatcherFunction{
		store:     store,
		publisher: publisher,
		detector:  detector,
		newJobID:  uuid.NewString,
	}
}

func success(fill func(*models.Response)) models.Response {
	resp := models.Response{Code: http.StatusOK}
	fill(&resp)
	return resp
}

func badRequest(format string, args ...any) models.Response {
	return models.Response{Error: fmt.Sprintf(format, args...), Code: http.StatusBadRequest}
}

func requireFields(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("%s is required", pairs[i])
		}
	}
	return nil
}

// StartExtraction creates the document record first, then starts OCR.
func (f *DispatcherFunction) StartExtraction(ctx context.Context, req models.ExtractionRequest) models.Response {
	if err := models.ValidateID("docId", req.DocumentID); err != nil {
		return badRequest("%v", err)
	}
	if err := requireFields("bucket", req.Bucket, "name", req.Name); err != nil {
		return badRequest("%v", err)
	}
	if f.detector == nil {
		return badRequest("text extraction is not configured")
	}

	jobID := f.newJobID()
	logCtx := slog.With("documentId", req.DocumentID, "jobId", jobID)

	err := f.store.CreateDocument(ctx, req.DocumentID, req.Bucket, req.Name, models.StatusStarted, jobID)
	if errors.Is(err, records.ErrDuplicateKey) {
		logCtx.Info("Document already exists, not starting extraction.")
		return badRequest("Document already exist.")
	}
	if err != nil {
		logCtx.Error("Failed to create document record", "error", err)
		return badRequest("%v", err)
	}

	executionID, err := f.detector.StartTextDetection(ctx, models.TextDetectionRequest{
		DocumentID: req.DocumentID,
		JobID:      jobID,
		Bucket:     req.Bucket,
		Object:     req.Name,
	})
	if err != nil {
		logCtx.Error("Failed to start text detection", "error", err)
		if ferr := f.store.FailDocument(ctx, req.DocumentID, err.Error()); ferr != nil {
			logCtx.Error("CRITICAL: Failed to mark document Failed after a start error.", "updateError", ferr)
		}
		return badRequest("Could not start job: %v", err)
	}

	if err := f.store.SetDocumentExtraction(ctx, req.DocumentID, models.ExtractionFields{ExecutionID: executionID}); err != nil {
		logCtx.Warn("Failed to record execution id", "executionId", executionID, "error", err)
	}
	logCtx.Info("Text extraction started.", "executionId", executionID)

	return success(func(r *models.Response) {
		r.Msg = "Job started"
		r.JobID = jobID
	})
}

// StartSummarization records the summarization job and enqueues it. Parameters
// a worker would reject are refused before any record is written.
func (f *DispatcherFunction) StartSummarization(ctx context.Context, req models.SummarizationRequest) models.Response {
	if _, err := req.SummarizationParams.Settings(); err != nil {
		return badRequest("%v", err)
	}
	msg := models.QueueMessage{
		DocumentID:          req.DocumentID,
		BucketName:          req.Bucket,
		ObjectName:          req.Name,
		JobID:               req.JobID,
		SummarizationParams: req.SummarizationParams,
	}
	return f.enqueueJob(ctx, models.JobKindSummarization, msg, "Summarization started", "Could not summarize doc")
}

// StartEmbedding records the embedding job and enqueues it.
func (f *DispatcherFunction) StartEmbedding(ctx context.Context, req models.EmbeddingRequest) models.Response {
	msg := models.QueueMessage{
		DocumentID: req.DocumentID,
		BucketName: req.Bucket,
		ObjectName: req.Name,
		JobID:      req.JobID,
	}
	return f.enqueueJob(ctx, models.JobKindEmbedding, msg, "Embedding started", "Could not start embeddings job for doc")
}

// enqueueJob defaults the job id to the document id.
func (f *DispatcherFunction) enqueueJob(ctx context.Context, kind models.JobKind, msg models.QueueMessage, started, failed string) models.Response {
	if msg.JobID == "" {
		msg.JobID = msg.DocumentID
	}
	if err := models.ValidateID("docId", msg.DocumentID); err != nil {
		return badRequest("%v", err)
	}
	if err := models.ValidateID("jobId", msg.JobID); err != nil {
		return badRequest("%v", err)
	}
	if err := requireFields("bucket", msg.BucketName, "name", msg.ObjectName); err != nil {
		return badRequest("%v", err)
	}
	if f.publisher == nil {
		return badRequest("%s jobs are not configured", kind)
	}

	logCtx := slog.With("documentId", msg.DocumentID, "jobId", msg.JobID, "kind", kind)

	err := f.store.CreateJob(ctx, kind, msg.DocumentID, models.StatusStarted, msg.JobID)
	if errors.Is(err, records.ErrDuplicateKey) {
		logCtx.Info("Job already exists, not enqueuing.")
		return badRequest("Document job already exist.")
	}
	if err != nil {
		logCtx.Error("Failed to create job record", "error", err)
		return badRequest("%v", err)
	}

	if err := f.publisher.Publish(ctx, kind, msg); err != nil {
		logCtx.Error("Failed to enqueue job", "error", err)
		if ferr := f.store.FailJob(ctx, kind, msg.DocumentID, msg.JobID, err.Error()); ferr != nil {
			logCtx.Error("CRITICAL: Failed to mark job Failed after an enqueue error.", "updateError", ferr)
		}
		return badRequest("%s: %v", failed, err)
	}
	logCtx.Info("Job enqueued.")

	return success(func(r *models.Response) {
		r.Msg = started
		r.Job = msg.JobID
	})
}

// HandleStartExtraction is the HTTP entry point of the extraction dispatcher.
func (f *DispatcherFunction) HandleStartExtraction(w http.ResponseWriter, r *http.Request) {
	var req models.ExtractionRequest
	if resp, ok := decodePost(r, &req); !ok {
		WriteResponse(w, resp)
		return
	}
	WriteResponse(w, f.StartExtraction(r.Context(), req))
}

// HandleStartSummarization is the HTTP entry point of the summarization dispatcher.
func (f *DispatcherFunction) HandleStartSummarization(w http.ResponseWriter, r *http.Request) {
	var req models.SummarizationRequest
	if resp, ok := decodePost(r, &req); !ok {
		WriteResponse(w, resp)
		return
	}
	WriteResponse(w, f.StartSummarization(r.Context(), req))
}

// HandleStartEmbedding is the HTTP entry point of the embedding dispatcher.
func (f *DispatcherFunction) HandleStartEmbedding(w http.ResponseWriter, r *http.Request) {
	var req models.EmbeddingRequest
	if resp, ok := decodePost(r, &req); !ok {
		WriteResponse(w, resp)
		return
	}
	WriteResponse(w, f.StartEmbedding(r.Context(), req))
}

func decodePost(r *http.Request, v any) (models.Response, bool) {
	if r.Method != http.MethodPost {
		return badRequest("Unsupported method %q", r.Method), false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		return badRequest("Bad Request: could not parse JSON: %v", err), false
	}
	return models.Response{}, true
}

// WriteResponse encodes resp with resp.Code as the transport status.
func WriteResponse(w http.ResponseWriter, resp models.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
