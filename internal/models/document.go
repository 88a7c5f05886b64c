package models

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state shared by document and job records.
type Status string

const (
	StatusStarted    Status = "Started"
	StatusInProgress Status = "InProgress"
	StatusComplete   Status = "Complete"
	StatusFailed     Status = "Failed"
)

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next keeps the status moving forward.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusStarted:
		return next == StatusInProgress || next == StatusComplete || next == StatusFailed
	case StatusInProgress:
		return next == StatusComplete || next == StatusFailed
	default:
		return false
	}
}

// JobKind selects the job table a job record lives in.
type JobKind string

const (
	JobKindSummarization JobKind = "summarization"
	JobKindEmbedding     JobKind = "embedding"
)

// ParseJobKind validates a job kind coming from a URL or an event type.
func ParseJobKind(s string) (JobKind, error) {
	switch JobKind(s) {
	case JobKindSummarization, JobKindEmbedding:
		return JobKind(s), nil
	}
	return "", fmt.Errorf("unknown job kind %q", s)
}

// Document tracks the overall ingestion lifecycle of one uploaded document.
type Document struct {
	DocumentID   string    `firestore:"documentId" json:"documentId"`
	BucketName   string    `firestore:"bucketName" json:"bucketName"`
	ObjectName   string    `firestore:"objectName" json:"objectName"`
	JobID        string    `firestore:"jobId" json:"jobId"`
	JobStatus    Status    `firestore:"jobStatus" json:"jobStatus"`
	ExecutionID  string    `firestore:"executionId,omitempty" json:"executionId,omitempty"` // OCR workflow execution
	TextURI      string    `firestore:"textUri,omitempty" json:"textUri,omitempty"`
	PageCount    int       `firestore:"pageCount,omitempty" json:"pageCount,omitempty"`
	ErrorDetails string    `firestore:"errorDetails,omitempty" json:"errorDetails,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt,omitempty" json:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt,omitempty" json:"updatedAt"`
}

// Job tracks one asynchronous processing attempt, keyed by (DocumentID, JobID).
type Job struct {
	DocumentID   string    `firestore:"documentId" json:"documentId"`
	JobID        string    `firestore:"jobId" json:"jobId"`
	JobStatus    Status    `firestore:"jobStatus" json:"jobStatus"`
	SummaryText  string    `firestore:"summaryText,omitempty" json:"summaryText,omitempty"`
	ErrorDetails string    `firestore:"errorDetails,omitempty" json:"errorDetails,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt,omitempty" json:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt,omitempty" json:"updatedAt"`
}

// ExtractionFields are the OCR results recorded on a document. Zero values are left untouched.
type ExtractionFields struct {
	ExecutionID string
	TextURI     string
	PageCount   int
}

// ValidateID rejects identifiers that cannot be used as record keys.
func ValidateID(field, id string) error {
	if id == "" {
		return fmt.Errorf("%s is required", field)
	}
	if strings.ContainsAny(id, "/#") {
		return fmt.Errorf("%s %q must not contain '/' or '#'", field, id)
	}
	return nil
}
