package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// WorkflowHandoff schedules a stage by starting an execution of the stage
// dispatcher workflow. The workflow calls the stage worker with the payload.
type WorkflowHandoff struct {
	client     *executions.Client
	projectID  string
	location   string
	workflowID string
}

var _ pipeline.Handoff = (*WorkflowHandoff)(nil)

func NewWorkflowHandoff(client *executions.Client, projectID, location, workflowID string) *WorkflowHandoff {
	return &WorkflowHandoff{
		client:     client,
		projectID:  projectID,
		location:   location,
		workflowID: workflowID,
	}
}

// Trigger returns the execution name as the task ID.
func (h *WorkflowHandoff) Trigger(ctx context.Context, projectID string, stage models.StageName) (string, error) {
	payloadBytes, err := json.Marshal(models.StageRequest{ProjectID: projectID, Stage: stage})
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", h.projectID, h.location, h.workflowID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	exec, err := h.client.CreateExecution(ctx, req)
	if err != nil {
		return "", classify("failed to trigger workflow execution", err)
	}
	slog.Info("Workflow execution created.", "projectId", projectID, "stage", stage, "execution", exec.GetName())
	return exec.GetName(), nil
}
