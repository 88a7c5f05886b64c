package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/docinsight/internal/models"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreConfig names the collections backing each table.
type FirestoreConfig struct {
	DocumentsCollection     string
	SummarizationCollection string
	EmbeddingCollection     string
}

// FirestoreStore implements Store on Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
	config FirestoreConfig
	now    func() time.Time
}

var _ Store = (*FirestoreStore)(nil)

// NewFirestoreStore wraps an already constructed client. The store owns the client from then on.
func NewFirestoreStore(client *firestore.Client, config FirestoreConfig) *FirestoreStore {
	return &FirestoreStore{client: client, config: config, now: time.Now}
}

func (s *FirestoreStore) documents() *firestore.CollectionRef {
	return s.client.Collection(s.config.DocumentsCollection)
}

func (s *FirestoreStore) jobs(kind models.JobKind) (*firestore.CollectionRef, error) {
	switch kind {
	case models.JobKindSummarization:
		return s.client.Collection(s.config.SummarizationCollection), nil
	case models.JobKindEmbedding:
		return s.client.Collection(s.config.EmbeddingCollection), nil
	}
	return nil, fmt.Errorf("unknown job kind %q", kind)
}

// CreateDocument inserts a document record unless one with the same ID exists.
func (s *FirestoreStore) CreateDocument(ctx context.Context, documentID, bucket, object string, st models.Status, jobID string) error {
	now := s.now().UTC()
	doc := models.Document{
		DocumentID: documentID,
		BucketName: bucket,
		ObjectName: object,
		JobID:      jobID,
		JobStatus:  st,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.documents().Doc(documentID).Create(ctx, doc); err != nil {
		return classify(err, "create document %s", documentID)
	}
	return nil
}

// UpdateDocumentStatus overwrites the status of an existing document.
func (s *FirestoreStore) UpdateDocumentStatus(ctx context.Context, documentID string, st models.Status) error {
	return s.updateDocument(ctx, documentID, []firestore.Update{
		{Path: "jobStatus", Value: st},
	})
}

// FailDocument marks a document Failed and records why.
func (s *FirestoreStore) FailDocument(ctx context.Context, documentID, details string) error {
	return s.updateDocument(ctx, documentID, []firestore.Update{
		{Path: "jobStatus", Value: models.StatusFailed},
		{Path: "errorDetails", Value: details},
	})
}

// SetDocumentExtraction records OCR bookkeeping fields on a document.
func (s *FirestoreStore) SetDocumentExtraction(ctx context.Context, documentID string, fields models.ExtractionFields) error {
	var updates []firestore.Update
	if fields.ExecutionID != "" {
		updates = append(updates, firestore.Update{Path: "executionId", Value: fields.ExecutionID})
	}
	if fields.TextURI != "" {
		updates = append(updates, firestore.Update{Path: "textUri", Value: fields.TextURI})
	}
	if fields.PageCount > 0 {
		updates = append(updates, firestore.Update{Path: "pageCount", Value: fields.PageCount})
	}
	return s.updateDocument(ctx, documentID, updates)
}

// updateDocument relies on Firestore's Update failing with NotFound for a missing document.
func (s *FirestoreStore) updateDocument(ctx context.Context, documentID string, updates []firestore.Update) error {
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: s.now().UTC()})
	if _, err := s.documents().Doc(documentID).Update(ctx, updates); err != nil {
		return classify(err, "update document %s", documentID)
	}
	return nil
}

// GetDocument returns the document or ErrNotFound.
func (s *FirestoreStore) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	snap, err := s.documents().Doc(documentID).Get(ctx)
	if err != nil {
		return nil, classify(err, "get document %s", documentID)
	}
	var doc models.Document
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", documentID, err)
	}
	return &doc, nil
}

// ListDocuments returns up to PageSize documents ordered by ID, starting after pageToken.
func (s *FirestoreStore) ListDocuments(ctx context.Context, pageToken string) (*models.DocumentPage, error) {
	query := s.documents().OrderBy(firestore.DocumentID, firestore.Asc).Limit(PageSize + 1)
	if pageToken != "" {
		query = query.StartAfter(pageToken)
	}

	it := query.Documents(ctx)
	defer it.Stop()

	page := &models.DocumentPage{Documents: make([]*models.Document, 0, PageSize)}
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		if len(page.Documents) == PageSize {
			page.NextToken = page.Documents[PageSize-1].DocumentID
			break
		}
		var doc models.Document
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", snap.Ref.ID, err)
		}
		doc.DocumentID = snap.Ref.ID
		page.Documents = append(page.Documents, &doc)
	}
	return page, nil
}

// DeleteDocument removes the document record. Deleting an absent document succeeds.
func (s *FirestoreStore) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := s.documents().Doc(documentID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", documentID, err)
	}
	return nil
}

// CreateJob inserts a job record unless (documentID, jobID) already exists.
func (s *FirestoreStore) CreateJob(ctx context.Context, kind models.JobKind, documentID string, st models.Status, jobID string) error {
	coll, err := s.jobs(kind)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	job := models.Job{
		DocumentID: documentID,
		JobID:      jobID,
		JobStatus:  st,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := coll.Doc(jobKey(documentID, jobID)).Create(ctx, job); err != nil {
		return classify(err, "create %s job %s/%s", kind, documentID, jobID)
	}
	return nil
}

// GetJob returns the job or ErrNotFound.
func (s *FirestoreStore) GetJob(ctx context.Context, kind models.JobKind, documentID, jobID string) (*models.Job, error) {
	coll, err := s.jobs(kind)
	if err != nil {
		return nil, err
	}
	snap, err := coll.Doc(jobKey(documentID, jobID)).Get(ctx)
	if err != nil {
		return nil, classify(err, "get %s job %s/%s", kind, documentID, jobID)
	}
	var job models.Job
	if err := snap.DataTo(&job); err != nil {
		return nil, fmt.Errorf("failed to decode %s job %s/%s: %w", kind, documentID, jobID, err)
	}
	return &job, nil
}

// MarkJobInProgress moves a Started job to InProgress.
func (s *FirestoreStore) MarkJobInProgress(ctx context.Context, kind models.JobKind, documentID, jobID string) error {
	return s.transitionJob(ctx, kind, documentID, jobID, jobTransition{status: models.StatusInProgress})
}

// CompleteJob marks a job Complete, storing summaryText when non-empty.
func (s *FirestoreStore) CompleteJob(ctx context.Context, kind models.JobKind, documentID, jobID, summaryText string) error {
	return s.transitionJob(ctx, kind, documentID, jobID, jobTransition{status: models.StatusComplete, summaryText: summaryText})
}

// FailJob marks a job Failed with the reason.
func (s *FirestoreStore) FailJob(ctx context.Context, kind models.JobKind, documentID, jobID, details string) error {
	return s.transitionJob(ctx, kind, documentID, jobID, jobTransition{status: models.StatusFailed, details: details})
}

func (s *FirestoreStore) transitionJob(ctx context.Context, kind models.JobKind, documentID, jobID string, t jobTransition) error {
	coll, err := s.jobs(kind)
	if err != nil {
		return err
	}
	ref := coll.Doc(jobKey(documentID, jobID))

	err = s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		current, err := snap.DataAt("jobStatus")
		if err != nil {
			return fmt.Errorf("job has no status: %w", err)
		}
		currentStatus, _ := current.(string)
		if err := t.check(models.Status(currentStatus)); err != nil {
			return err
		}

		updates := []firestore.Update{
			{Path: "jobStatus", Value: t.status},
			{Path: "updatedAt", Value: s.now().UTC()},
		}
		if t.summaryText != "" {
			updates = append(updates, firestore.Update{Path: "summaryText", Value: t.summaryText})
		}
		if t.details != "" {
			updates = append(updates, firestore.Update{Path: "errorDetails", Value: t.details})
		}
		return tx.Update(ref, updates)
	})
	if errors.Is(err, ErrTerminalStatus) {
		return fmt.Errorf("%s job %s/%s: %w", kind, documentID, jobID, ErrTerminalStatus)
	}
	if err != nil {
		return classify(err, "update %s job %s/%s", kind, documentID, jobID)
	}
	return nil
}

// Close releases the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// classify maps Firestore status codes onto the package sentinels; everything else propagates unchanged.
func classify(err error, format string, args ...any) error {
	op := fmt.Sprintf(format, args...)
	switch status.Code(err) {
	case codes.AlreadyExists:
		return fmt.Errorf("%s: %w", op, ErrDuplicateKey)
	case codes.NotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
