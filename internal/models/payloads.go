package models

import "encoding/json"

// These structs define the JSON payloads exchanged between clients, dispatchers,
// the queue, the launcher and the OCR workflow steps.

// Response is the envelope every dispatcher and the query service answer with.
type Response struct {
	Msg    string `json:"msg,omitempty"`
	Error  string `json:"error,omitempty"`
	Job    string `json:"job,omitempty"`
	JobID  string `json:"jobId,omitempty"`
	Answer string `json:"answer,omitempty"`
	Code   int    `json:"code"`
}

// ExtractionRequest is the body of a text extraction request.
type ExtractionRequest struct {
	DocumentID string `json:"docId"`
	Bucket     string `json:"bucket"`
	Name       string `json:"name"`
}

// EmbeddingRequest is the body of an embedding request. Name points at the summary artifact.
type EmbeddingRequest struct {
	DocumentID string `json:"docId"`
	Bucket     string `json:"bucket"`
	Name       string `json:"name"`
	JobID      string `json:"jobId,omitempty"`
}

// SummarizationParams are the chunking and sampling knobs of a summarization job.
// They keep the caller's textual form so the launcher can hand them on verbatim.
type SummarizationParams struct {
	ChunkSize    json.Number `json:"chunkSize,omitempty"`
	ChunkOverlap json.Number `json:"chunkOverlap,omitempty"`
	MaxLength    json.Number `json:"max_length,omitempty"`
	TopP         json.Number `json:"top_p,omitempty"`
	TopK         json.Number `json:"top_k,omitempty"`
	NumBeams     json.Number `json:"num_beams,omitempty"`
	Temperature  json.Number `json:"temperature,omitempty"`
}

// SummarizationRequest is the body of a summarization request.
type SummarizationRequest struct {
	DocumentID string `json:"docId"`
	Bucket     string `json:"bucket"`
	Name       string `json:"name"`
	JobID      string `json:"jobId,omitempty"`
	SummarizationParams
}

// QueueMessage is what dispatchers enqueue for the launcher.
type QueueMessage struct {
	DocumentID string `json:"documentId"`
	BucketName string `json:"bucketName"`
	ObjectName string `json:"objectName"`
	JobID      string `json:"jobId"`
	SummarizationParams
}

// QuestionRequest is the body of a query service call.
type QuestionRequest struct {
	DocumentID string `json:"docId"`
	Question   string `json:"question"`
}

// DocumentPage is one page of ListDocuments.
type DocumentPage struct {
	Documents []*Document `json:"documents"`
	NextToken string      `json:"nextToken,omitempty"`
}

// SplitDocumentRequest is the input for the OCR splitter step.
type SplitDocumentRequest struct {
	DocumentID  string `json:"documentId"`
	JobID       string `json:"jobId"`
	Bucket      string `json:"bucket"`
	Object      string `json:"object"`
	ExecutionID string `json:"executionId"`
}

// SplitDocumentResponse is the output of the OCR splitter step.
type SplitDocumentResponse struct {
	Status    string   `json:"status"`
	PageCount int      `json:"pageCount"`
	PageURIs  []string `json:"pageUris"`
}

// ExtractPageRequest is the input for the page OCR step.
type ExtractPageRequest struct {
	DocumentID  string `json:"documentId"`
	PageNumber  int    `json:"pageNumber"`
	GCSUri      string `json:"gcsUri"`
	ExecutionID string `json:"executionId"`
}

// ExtractPageResponse is the output of the page OCR step.
type ExtractPageResponse struct {
	Status       string `json:"status"`
	OutputGCSUri string `json:"outputGcsUri"`
}

// FinalizeExtractionRequest closes an OCR run. A non-empty Error marks the document Failed.
type FinalizeExtractionRequest struct {
	DocumentID  string `json:"documentId"`
	ExecutionID string `json:"executionId"`
	Error       string `json:"error,omitempty"`
}

// FinalizeExtractionResponse is the output of the OCR finalizer step.
type FinalizeExtractionResponse struct {
	Status  string `json:"status"`
	TextURI string `json:"textUri,omitempty"`
}

// EnvVar is one environment override handed to a launched worker container.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// WorkerLaunch is the argument of a worker workflow execution.
type WorkerLaunch struct {
	Container   string   `json:"container"`
	Environment []EnvVar `json:"environment"`
}

// TextDetectionRequest is the argument of an OCR workflow execution.
type TextDetectionRequest struct {
	DocumentID string `json:"documentId"`
	JobID      string `json:"jobId"`
	Bucket     string `json:"bucket"`
	Object     string `json:"object"`
}
