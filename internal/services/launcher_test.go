package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/queue"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerEnv_SummarizationParamsVerbatim(t *testing.T) {
	msg := models.QueueMessage{
		DocumentID: "doc1",
		BucketName: "texts",
		ObjectName: "doc1/text.txt",
		JobID:      "j1",
		SummarizationParams: models.SummarizationParams{
			ChunkSize:   "1500",
			TopP:        "0.90",
			NumBeams:    "3",
			Temperature: "1e-1",
		},
	}

	env := WorkerEnv(models.JobKindSummarization, msg)

	assert.Equal(t, []models.EnvVar{
		{Name: "docId", Value: "doc1"},
		{Name: "jobId", Value: "j1"},
		{Name: "bucket", Value: "texts"},
		{Name: "name", Value: "doc1/text.txt"},
		{Name: "chunk_size", Value: "1500"},
		{Name: "top_p", Value: "0.90"},
		{Name: "num_beams", Value: "3"},
		{Name: "temperature", Value: "1e-1"},
	}, env)
}

func TestWorkerEnv_EmbeddingIgnoresParams(t *testing.T) {
	msg := models.QueueMessage{
		DocumentID:          "doc1",
		BucketName:          "summaries",
		ObjectName:          "doc1/summary.txt",
		JobID:               "doc1",
		SummarizationParams: models.SummarizationParams{ChunkSize: "10"},
	}

	env := envMap(WorkerEnv(models.JobKindEmbedding, msg))

	assert.Len(t, env, 4)
	assert.Equal(t, "summaries", env["bucket"])
	assert.NotContains(t, env, "chunk_size")
}

func TestLauncher_Launch(t *testing.T) {
	runner := &fakeRunner{}
	launcher := NewLauncher(runner, newTestStore(t))

	result := launcher.Launch(context.Background(), models.JobKindEmbedding, models.QueueMessage{DocumentID: "doc1", JobID: "doc1", BucketName: "b", ObjectName: "n"})

	assert.True(t, result.Launched)
	assert.Equal(t, "executions/1", result.Execution)
	require.Len(t, runner.kinds, 1)
	assert.Equal(t, models.JobKindEmbedding, runner.kinds[0])
}

func TestLauncher_LaunchFailureFailsJob(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateJob(ctx, models.JobKindSummarization, "doc1", models.StatusStarted, "j1"))
	runner := &fakeRunner{err: errBoom}
	launcher := NewLauncher(runner, store)

	result := launcher.Launch(ctx, models.JobKindSummarization, models.QueueMessage{DocumentID: "doc1", JobID: "j1", BucketName: "b", ObjectName: "n"})

	assert.False(t, result.Launched)
	assert.Contains(t, result.Output, "failed to launch summarization worker")
	assert.Len(t, runner.kinds, 1, "launches are not retried")

	job, err := store.GetJob(ctx, models.JobKindSummarization, "doc1", "j1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, job.JobStatus)
	assert.Equal(t, "launch failed: boom", job.ErrorDetails)
}

func newJobEvent(t *testing.T, eventType string, data any) cloudevents.Event {
	t.Helper()
	e := cloudevents.NewEvent()
	e.SetID("evt-1")
	e.SetSource("test")
	e.SetType(eventType)
	require.NoError(t, e.SetData(cloudevents.ApplicationJSON, data))
	return e
}

func TestLauncher_HandleEvent(t *testing.T) {
	runner := &fakeRunner{}
	launcher := NewLauncher(runner, newTestStore(t))
	msg := models.QueueMessage{
		DocumentID:          "doc1",
		BucketName:          "texts",
		ObjectName:          "doc1/text.txt",
		JobID:               "doc1",
		SummarizationParams: models.SummarizationParams{MaxLength: "256"},
	}

	err := launcher.HandleEvent(context.Background(), newJobEvent(t, queue.EventType(models.JobKindSummarization), msg))

	require.NoError(t, err)
	require.Len(t, runner.envs, 1)
	assert.Equal(t, models.JobKindSummarization, runner.kinds[0])
	assert.Equal(t, "256", envMap(runner.envs[0])["max_length"])
}

func TestLauncher_HandleEventSwallowsLaunchFailure(t *testing.T) {
	launcher := NewLauncher(&fakeRunner{err: errBoom}, newTestStore(t))
	msg := models.QueueMessage{DocumentID: "doc1", JobID: "doc1", BucketName: "b", ObjectName: "n"}

	err := launcher.HandleEvent(context.Background(), newJobEvent(t, queue.EventType(models.JobKindEmbedding), msg))

	assert.NoError(t, err)
}

func TestLauncher_HandleEventRejectsBadEvents(t *testing.T) {
	runner := &fakeRunner{}
	launcher := NewLauncher(runner, newTestStore(t))
	ctx := context.Background()

	err := launcher.HandleEvent(ctx, newJobEvent(t, "com.example.other", map[string]string{}))
	assert.Error(t, err)

	err = launcher.HandleEvent(ctx, newJobEvent(t, queue.EventType(models.JobKindEmbedding), json.RawMessage(`"just a string"`)))
	assert.Error(t, err)

	assert.Empty(t, runner.envs)
}
