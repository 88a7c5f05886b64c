package records

import (
	"context"
	"fmt"
	"testing"

	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := OpenBadgerStore("", true)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateDocument_FirstWriterWins(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateDocument(ctx, "doc1", "in", "a.pdf", models.StatusStarted, "job-a"))

	err := store.CreateDocument(ctx, "doc1", "other", "b.pdf", models.StatusStarted, "job-b")
	require.ErrorIs(t, err, ErrDuplicateKey)

	doc, err := store.GetDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, "in", doc.BucketName)
	assert.Equal(t, "a.pdf", doc.ObjectName)
	assert.Equal(t, "job-a", doc.JobID)
	assert.Equal(t, models.StatusStarted, doc.JobStatus)
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestUpdateDocumentStatus_MissingDocument(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	err := store.UpdateDocumentStatus(ctx, "ghost", models.StatusComplete)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetDocument(ctx, "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateDocumentStatus_Unconditional(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateDocument(ctx, "doc1", "in", "a.pdf", models.StatusStarted, "j"))

	require.NoError(t, store.UpdateDocumentStatus(ctx, "doc1", models.StatusComplete))
	require.NoError(t, store.UpdateDocumentStatus(ctx, "doc1", models.StatusStarted))

	doc, err := store.GetDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusStarted, doc.JobStatus)
}

func TestFailDocumentAndExtractionFields(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateDocument(ctx, "doc1", "in", "a.pdf", models.StatusStarted, "j"))

	require.NoError(t, store.SetDocumentExtraction(ctx, "doc1", models.ExtractionFields{ExecutionID: "exec-1"}))
	require.NoError(t, store.SetDocumentExtraction(ctx, "doc1", models.ExtractionFields{TextURI: "gs://text/doc1/text.txt", PageCount: 3}))
	require.NoError(t, store.FailDocument(ctx, "doc1", "ocr failed"))

	doc, err := store.GetDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, "exec-1", doc.ExecutionID)
	assert.Equal(t, "gs://text/doc1/text.txt", doc.TextURI)
	assert.Equal(t, 3, doc.PageCount)
	assert.Equal(t, models.StatusFailed, doc.JobStatus)
	assert.Equal(t, "ocr failed", doc.ErrorDetails)
}

func TestListDocuments_Pagination(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("doc%02d", i)
		require.NoError(t, store.CreateDocument(ctx, id, "in", id+".pdf", models.StatusStarted, "j"))
	}

	first, err := store.ListDocuments(ctx, "")
	require.NoError(t, err)
	require.Len(t, first.Documents, PageSize)
	assert.Equal(t, "doc00", first.Documents[0].DocumentID)
	assert.Equal(t, "doc24", first.NextToken)

	second, err := store.ListDocuments(ctx, first.NextToken)
	require.NoError(t, err)
	require.Len(t, second.Documents, 5)
	assert.Equal(t, "doc25", second.Documents[0].DocumentID)
	assert.Empty(t, second.NextToken)
}

func TestListDocuments_ExactPageHasNoToken(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()
	for i := 0; i < PageSize; i++ {
		id := fmt.Sprintf("doc%02d", i)
		require.NoError(t, store.CreateDocument(ctx, id, "in", id+".pdf", models.StatusStarted, "j"))
	}

	page, err := store.ListDocuments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, page.Documents, PageSize)
	assert.Empty(t, page.NextToken)
}

func TestDeleteDocument(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateDocument(ctx, "doc1", "in", "a.pdf", models.StatusStarted, "j"))

	require.NoError(t, store.DeleteDocument(ctx, "doc1"))
	require.NoError(t, store.DeleteDocument(ctx, "doc1"))

	_, err := store.GetDocument(ctx, "doc1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateJob_KeyedByDocumentAndJob(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateJob(ctx, models.JobKindSummarization, "doc1", models.StatusStarted, "j1"))
	require.NoError(t, store.CreateJob(ctx, models.JobKindSummarization, "doc1", models.StatusStarted, "j2"))
	require.NoError(t, store.CreateJob(ctx, models.JobKindEmbedding, "doc1", models.StatusStarted, "j1"))

	err := store.CreateJob(ctx, models.JobKindSummarization, "doc1", models.StatusStarted, "j1")
	require.ErrorIs(t, err, ErrDuplicateKey)

	_, err = store.GetJob(ctx, models.JobKindEmbedding, "doc1", "j2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateJob_UnknownKind(t *testing.T) {
	store := newMemoryStore(t)
	err := store.CreateJob(context.Background(), models.JobKind("translation"), "doc1", models.StatusStarted, "j1")
	assert.Error(t, err)
}

func TestJobLifecycle(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()
	kind := models.JobKindSummarization
	require.NoError(t, store.CreateJob(ctx, kind, "doc1", models.StatusStarted, "j1"))

	require.NoError(t, store.MarkJobInProgress(ctx, kind, "doc1", "j1"))
	require.NoError(t, store.CompleteJob(ctx, kind, "doc1", "j1", "a short summary"))

	job, err := store.GetJob(ctx, kind, "doc1", "j1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, job.JobStatus)
	assert.Equal(t, "a short summary", job.SummaryText)
	assert.Empty(t, job.ErrorDetails)
}

func TestJobStatus_TerminalIsFinal(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()
	kind := models.JobKindEmbedding
	require.NoError(t, store.CreateJob(ctx, kind, "doc1", models.StatusStarted, "j1"))
	require.NoError(t, store.FailJob(ctx, kind, "doc1", "j1", "boom"))

	err := store.CompleteJob(ctx, kind, "doc1", "j1", "")
	require.ErrorIs(t, err, ErrTerminalStatus)
	err = store.MarkJobInProgress(ctx, kind, "doc1", "j1")
	require.ErrorIs(t, err, ErrTerminalStatus)

	job, err := store.GetJob(ctx, kind, "doc1", "j1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, job.JobStatus)
	assert.Equal(t, "boom", job.ErrorDetails)
}

func TestJobStatus_MissingJob(t *testing.T) {
	store := newMemoryStore(t)
	err := store.FailJob(context.Background(), models.JobKindSummarization, "doc1", "nope", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobTransitionCheck(t *testing.T) {
	tests := []struct {
		current models.Status
		next    models.Status
		wantErr bool
	}{
		{models.StatusStarted, models.StatusInProgress, false},
		{models.StatusStarted, models.StatusComplete, false},
		{models.StatusInProgress, models.StatusInProgress, false},
		{models.StatusInProgress, models.StatusFailed, false},
		{models.StatusInProgress, models.StatusStarted, true},
		{models.StatusComplete, models.StatusFailed, true},
		{models.StatusFailed, models.StatusFailed, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.current, tt.next), func(t *testing.T) {
			err := jobTransition{status: tt.next}.check(tt.current)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTerminalStatus)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
