package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/googleapis/gax-go/v2"
)

// ExecutionsAPI is the subset of the Workflows Executions client the runner needs.
type ExecutionsAPI interface {
	CreateExecution(ctx context.Context, req *executionspb.CreateExecutionRequest, opts ...gax.CallOption) (*executionspb.Execution, error)
	Close() error
}

// WorkflowRunner starts Cloud Workflows executions in one project and location.
type WorkflowRunner struct {
	client    ExecutionsAPI
	projectID string
	location  string
}

// NewWorkflowRunner creates an Executions client.
func NewWorkflowRunner(ctx context.Context, projectID, location string) (*WorkflowRunner, error) {
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return NewWorkflowRunnerWithClient(client, projectID, location), nil
}

// NewWorkflowRunnerWithClient wraps an existing client.
func NewWorkflowRunnerWithClient(client ExecutionsAPI, projectID, location string) *WorkflowRunner {
	return &WorkflowRunner{client: client, projectID: projectID, location: location}
}

// Execute starts workflowID with argument encoded as JSON and returns the execution name.
func (r *WorkflowRunner) Execute(ctx context.Context, workflowID string, argument any) (string, error) {
	payload, err := json.Marshal(argument)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow argument: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", r.projectID, r.location, workflowID),
		Execution: &executionspb.Execution{
			Argument: string(payload),
		},
	}
	exec, err := r.client.CreateExecution(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to trigger workflow execution of %s: %w", workflowID, err)
	}
	slog.Debug("Workflow execution created.", "workflowId", workflowID, "execution", exec.GetName())
	return exec.GetName(), nil
}

func (r *WorkflowRunner) Close() error {
	return r.client.Close()
}

// WorkflowTextDetector starts the OCR workflow for a document.
type WorkflowTextDetector struct {
	Runner     *WorkflowRunner
	WorkflowID string
}

// StartTextDetection returns the OCR execution name.
func (d *WorkflowTextDetector) StartTextDetection(ctx context.Context, req models.TextDetectionRequest) (string, error) {
	return d.Runner.Execute(ctx, d.WorkflowID, req)
}

// WorkflowTaskRunner launches one worker container per call through a per-kind workflow.
type WorkflowTaskRunner struct {
	Runner      *WorkflowRunner
	WorkflowIDs map[models.JobKind]string
	Container   string
}

// RunTask starts the worker for kind with env as its environment overrides.
func (t *WorkflowTaskRunner) RunTask(ctx context.Context, kind models.JobKind, env []models.EnvVar) (string, error) {
	workflowID, ok := t.WorkflowIDs[kind]
	if !ok {
		return "", fmt.Errorf("no worker workflow configured for %s", kind)
	}
	return t.Runner.Execute(ctx, workflowID, models.WorkerLaunch{
		Container:   t.Container,
		Environment: env,
	})
}
