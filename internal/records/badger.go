package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Lllllllleong/docinsight/internal/kvstore"
	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/dgraph-io/badger/v4"
)

const (
	documentPrefix = "doc/"
	jobPrefix      = "job/"
)

// BadgerStore implements Store on an embedded Badger database. It backs local
// runs and tests; production deployments use FirestoreStore.
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

var _ Store = (*BadgerStore)(nil)

// OpenBadgerStore opens (or creates) a store at dir. With inMemory set, dir is ignored.
func OpenBadgerStore(dir string, inMemory bool) (*BadgerStore, error) {
	db, err := kvstore.Open(dir, inMemory)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db, now: time.Now}, nil
}

func documentKey(documentID string) []byte {
	return []byte(documentPrefix + documentID)
}

func jobRecordKey(kind models.JobKind, documentID, jobID string) []byte {
	return []byte(jobPrefix + string(kind) + "/" + jobKey(documentID, jobID))
}

func readJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func writeJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// insert writes v under key only when key is absent.
func (s *BadgerStore) insert(key []byte, v any) error {
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrDuplicateKey
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return writeJSON(txn, key, v)
	})
}

func (s *BadgerStore) CreateDocument(ctx context.Context, documentID, bucket, object string, st models.Status, jobID string) error {
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
	if err := s.insert(documentKey(documentID), doc); err != nil {
		return fmt.Errorf("create document %s: %w", documentID, err)
	}
	return nil
}

func (s *BadgerStore) updateDocument(documentID string, mutate func(*models.Document)) error {
	key := documentKey(documentID)
	err := s.db.Update(func(txn *badger.Txn) error {
		var doc models.Document
		if err := readJSON(txn, key, &doc); err != nil {
			return err
		}
		mutate(&doc)
		doc.UpdatedAt = s.now().UTC()
		return writeJSON(txn, key, doc)
	})
	if err != nil {
		return fmt.Errorf("update document %s: %w", documentID, err)
	}
	return nil
}

func (s *BadgerStore) UpdateDocumentStatus(ctx context.Context, documentID string, st models.Status) error {
	return s.updateDocument(documentID, func(doc *models.Document) {
		doc.JobStatus = st
	})
}

func (s *BadgerStore) FailDocument(ctx context.Context, documentID, details string) error {
	return s.updateDocument(documentID, func(doc *models.Document) {
		doc.JobStatus = models.StatusFailed
		doc.ErrorDetails = details
	})
}

func (s *BadgerStore) SetDocumentExtraction(ctx context.Context, documentID string, fields models.ExtractionFields) error {
	return s.updateDocument(documentID, func(doc *models.Document) {
		if fields.ExecutionID != "" {
			doc.ExecutionID = fields.ExecutionID
		}
		if fields.TextURI != "" {
			doc.TextURI = fields.TextURI
		}
		if fields.PageCount > 0 {
			doc.PageCount = fields.PageCount
		}
	})
}

func (s *BadgerStore) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	var doc models.Document
	err := s.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, documentKey(documentID), &doc)
	})
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", documentID, err)
	}
	return &doc, nil
}

// ListDocuments walks the document prefix in key order, which matches ID order.
func (s *BadgerStore) ListDocuments(ctx context.Context, pageToken string) (*models.DocumentPage, error) {
	page := &models.DocumentPage{Documents: make([]*models.Document, 0, PageSize)}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Rewind()
		if pageToken != "" {
			after := documentKey(pageToken)
			it.Seek(after)
			if it.Valid() && string(it.Item().Key()) == string(after) {
				it.Next()
			}
		}
		for ; it.Valid(); it.Next() {
			if len(page.Documents) == PageSize {
				page.NextToken = page.Documents[PageSize-1].DocumentID
				return nil
			}
			var doc models.Document
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				return err
			}
			page.Documents = append(page.Documents, &doc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return page, nil
}

func (s *BadgerStore) DeleteDocument(ctx context.Context, documentID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(documentKey(documentID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", documentID, err)
	}
	return nil
}

func (s *BadgerStore) CreateJob(ctx context.Context, kind models.JobKind, documentID string, st models.Status, jobID string) error {
	if _, err := models.ParseJobKind(string(kind)); err != nil {
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
	if err := s.insert(jobRecordKey(kind, documentID, jobID), job); err != nil {
		return fmt.Errorf("create %s job %s/%s: %w", kind, documentID, jobID, err)
	}
	return nil
}

func (s *BadgerStore) GetJob(ctx context.Context, kind models.JobKind, documentID, jobID string) (*models.Job, error) {
	var job models.Job
	err := s.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, jobRecordKey(kind, documentID, jobID), &job)
	})
	if err != nil {
		return nil, fmt.Errorf("get %s job %s/%s: %w", kind, documentID, jobID, err)
	}
	return &job, nil
}

func (s *BadgerStore) MarkJobInProgress(ctx context.Context, kind models.JobKind, documentID, jobID string) error {
	return s.transitionJob(kind, documentID, jobID, jobTransition{status: models.StatusInProgress})
}

func (s *BadgerStore) CompleteJob(ctx context.Context, kind models.JobKind, documentID, jobID, summaryText string) error {
	return s.transitionJob(kind, documentID, jobID, jobTransition{status: models.StatusComplete, summaryText: summaryText})
}

func (s *BadgerStore) FailJob(ctx context.Context, kind models.JobKind, documentID, jobID, details string) error {
	return s.transitionJob(kind, documentID, jobID, jobTransition{status: models.StatusFailed, details: details})
}

func (s *BadgerStore) transitionJob(kind models.JobKind, documentID, jobID string, t jobTransition) error {
	key := jobRecordKey(kind, documentID, jobID)
	err := s.db.Update(func(txn *badger.Txn) error {
		var job models.Job
		if err := readJSON(txn, key, &job); err != nil {
			return err
		}
		if err := t.check(job.JobStatus); err != nil {
			return err
		}
		job.JobStatus = t.status
		if t.summaryText != "" {
			job.SummaryText = t.summaryText
		}
		if t.details != "" {
			job.ErrorDetails = t.details
		}
		job.UpdatedAt = s.now().UTC()
		return writeJSON(txn, key, job)
	})
	if err != nil {
		return fmt.Errorf("update %s job %s/%s: %w", kind, documentID, jobID, err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
