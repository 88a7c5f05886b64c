package services

import (
	"context"
	"testing"

	"github.com/Lllllllleong/docinsight/internal/config"
	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedJobOnDisk(t *testing.T, kind models.JobKind) string {
	t.Helper()
	dir := t.TempDir()
	store, err := records.OpenBadgerStore(dir, false)
	require.NoError(t, err)
	require.NoError(t, store.CreateJob(context.Background(), kind, "doc1", models.StatusStarted, "j1"))
	require.NoError(t, store.Close())
	return dir
}

func setLaunchedJobEnv(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("RECORDS_BACKEND", "badger")
	t.Setenv("RECORDS_BADGER_PATH", dir)
	t.Setenv("docId", "doc1")
	t.Setenv("jobId", "j1")
	t.Setenv("bucket", "texts")
	t.Setenv("name", "doc1/text.txt")
}

func TestFailLaunchedJob_InvalidWorkerConfig(t *testing.T) {
	dir := seedJobOnDisk(t, models.JobKindSummarization)
	setLaunchedJobEnv(t, dir)
	t.Setenv("endpoint", "gemini-1.5-flash")
	t.Setenv("PROJECT_ID", "p")
	t.Setenv("chunk_size", "100")
	t.Setenv("chunk_overlap", "500")

	_, cfgErr := config.LoadSummarizationWorker()
	require.Error(t, cfgErr)

	require.NoError(t, FailLaunchedJob(context.Background(), models.JobKindSummarization, cfgErr))

	store, err := records.OpenBadgerStore(dir, false)
	require.NoError(t, err)
	defer store.Close()
	job, err := store.GetJob(context.Background(), models.JobKindSummarization, "doc1", "j1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, job.JobStatus)
	assert.Contains(t, job.ErrorDetails, "chunk_overlap must be in [0, chunk_size)")
}

func TestFailLaunchedJob_WithoutJobIdentity(t *testing.T) {
	dir := seedJobOnDisk(t, models.JobKindEmbedding)
	setLaunchedJobEnv(t, dir)
	t.Setenv("jobId", "")

	err := FailLaunchedJob(context.Background(), models.JobKindEmbedding, errBoom)

	require.ErrorIs(t, err, config.ErrMissing)
	assert.Contains(t, err.Error(), "jobId")
}
