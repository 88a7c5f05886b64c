// Package records is the data-access layer over the document and job tables.
//
// Creates are conditional ("first writer wins") and report ErrDuplicateKey
// when the key already exists. Document status updates overwrite the field
// unconditionally, while job status writes refuse to leave a terminal state.
package records

import (
	"context"
	"errors"

	"github.com/Lllllllleong/docinsight/internal/models"
)

// PageSize is the number of documents returned by one ListDocuments call.
const PageSize = 25

var (
	// ErrDuplicateKey indicates a conditional create found an existing record.
	ErrDuplicateKey = errors.New("already exists")

	// ErrNotFound indicates the referenced record is absent.
	ErrNotFound = errors.New("not found")

	// ErrTerminalStatus indicates a job status write on a job that already finished.
	ErrTerminalStatus = errors.New("job already in a terminal status")
)

// Store creates, reads and updates document and job records.
type Store interface {
	CreateDocument(ctx context.Context, documentID, bucket, object string, status models.Status, jobID string) error
	UpdateDocumentStatus(ctx context.Context, documentID string, status models.Status) error
	FailDocument(ctx context.Context, documentID, details string) error
	SetDocumentExtraction(ctx context.Context, documentID string, fields models.ExtractionFields) error
	GetDocument(ctx context.Context, documentID string) (*models.Document, error)
	ListDocuments(ctx context.Context, pageToken string) (*models.DocumentPage, error)
	DeleteDocument(ctx context.Context, documentID string) error

	CreateJob(ctx context.Context, kind models.JobKind, documentID string, status models.Status, jobID string) error
	GetJob(ctx context.Context, kind models.JobKind, documentID, jobID string) (*models.Job, error)
	MarkJobInProgress(ctx context.Context, kind models.JobKind, documentID, jobID string) error
	CompleteJob(ctx context.Context, kind models.JobKind, documentID, jobID, summaryText string) error
	FailJob(ctx context.Context, kind models.JobKind, documentID, jobID, details string) error

	Close() error
}

// jobKey is the single-string key of a job record.
func jobKey(documentID, jobID string) string {
	return documentID + "#" + jobID
}

// jobTransition is the change a job status write applies.
type jobTransition struct {
	status      models.Status
	summaryText string
	details     string
}

// check enforces forward-only job status movement.
func (t jobTransition) check(current models.Status) error {
	if current.Terminal() {
		return ErrTerminalStatus
	}
	if current == t.status {
		return nil
	}
	if !current.CanTransitionTo(t.status) {
		return ErrTerminalStatus
	}
	return nil
}
