package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/queue"
	"github.com/Lllllllleong/docinsight/internal/records"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// TaskRunner starts one worker container of kind with env as its environment.
type TaskRunner interface {
	RunTask(ctx context.Context, kind models.JobKind, env []models.EnvVar) (string, error)
}

// LaunchResult reports what happened to one queue message.
type LaunchResult struct {
	Launched  bool
	Execution string
	Output    string
}

// LauncherFunction turns queue messages into worker launches.
type LauncherFunction struct {
	runner TaskRunner
	store  records.Store
}

func NewLauncher(runner TaskRunner, store records.Store) *LauncherFunction {
	return &LauncherFunction{runner: runner, store: store}
}

// WorkerEnv is the environment handed to a worker for msg. Parameters keep the
// caller's textual form; empty ones are left out so the worker defaults apply.
func WorkerEnv(kind models.JobKind, msg models.QueueMessage) []models.EnvVar {
	env := []models.EnvVar{
		{Name: "docId", Value: msg.DocumentID},
		{Name: "jobId", Value: msg.JobID},
		{Name: "bucket", Value: msg.BucketName},
		{Name: "name", Value: msg.ObjectName},
	}
	if kind != models.JobKindSummarization {
		return env
	}

	params := []struct {
		name  string
		value json.Number
	}{
		{"chunk_size", msg.ChunkSize},
		{"chunk_overlap", msg.ChunkOverlap},
		{"max_length", msg.MaxLength},
		{"top_p", msg.TopP},
		{"top_k", msg.TopK},
		{"num_beams", msg.NumBeams},
		{"temperature", msg.Temperature},
	}
	for _, p := range params {
		if p.value != "" {
			env = append(env, models.EnvVar{Name: p.name, Value: p.value.String()})
		}
	}
	return env
}

// Launch starts exactly one worker for msg. A failed launch is logged, reported
// in the result and recorded on the job; it is not retried.
func (f *LauncherFunction) Launch(ctx context.Context, kind models.JobKind, msg models.QueueMessage) LaunchResult {
	logCtx := slog.With("documentId", msg.DocumentID, "jobId", msg.JobID, "kind", kind)

	execution, err := f.runner.RunTask(ctx, kind, WorkerEnv(kind, msg))
	if err != nil {
		logCtx.Error("Failed to launch worker", "error", err)
		if f.store != nil {
			if ferr := f.store.FailJob(ctx, kind, msg.DocumentID, msg.JobID, "launch failed: "+err.Error()); ferr != nil {
				logCtx.Error("Failed to mark job Failed after a launch error.", "updateError", ferr)
			}
		}
		return LaunchResult{Output: fmt.Sprintf("failed to launch %s worker: %v", kind, err)}
	}

	logCtx.Info("Worker launched.", "execution", execution)
	return LaunchResult{
		Launched:  true,
		Execution: execution,
		Output:    fmt.Sprintf("launched %s worker %s", kind, execution),
	}
}

// HandleEvent is the CloudEvent entry point. Only undecodable events return an
// error; launch failures are swallowed so the broker does not redeliver.
func (f *LauncherFunction) HandleEvent(ctx context.Context, e cloudevents.Event) error {
	kind, err := queue.KindFromEventType(e.Type())
	if err != nil {
		slog.Error("Ignoring event of unexpected type", "type", e.Type(), "id", e.ID())
		return err
	}

	var msg models.QueueMessage
	if err := json.Unmarshal(e.Data(), &msg); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	result := f.Launch(ctx, kind, msg)
	slog.Info("Launcher finished.", "eventId", e.ID(), "launched", result.Launched, "output", result.Output)
	return nil
}
