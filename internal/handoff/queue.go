// Package handoff provides an in-process stage hand-off for local runs.
package handoff

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// Queue records triggered stages in FIFO order so a caller can run them one
// after another in the same process.
type Queue struct {
	mu      sync.Mutex
	pending []models.StageRequest
	seq     int
}

var _ pipeline.Handoff = (*Queue)(nil)

func NewQueue() *Queue {
	return &Queue{}
}

// Trigger enqueues the stage and returns a local task id.
func (q *Queue) Trigger(_ context.Context, projectID string, stage models.StageName) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	taskID := fmt.Sprintf("local-%d", q.seq)
	q.pending = append(q.pending, models.StageRequest{
		ProjectID:   projectID,
		Stage:       stage,
		ExecutionID: taskID,
	})
	return taskID, nil
}

// Next removes and returns the oldest pending request.
func (q *Queue) Next() (models.StageRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return models.StageRequest{}, false
	}
	req := q.pending[0]
	q.pending = q.pending[1:]
	return req, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain runs handle for every pending request, including ones enqueued while
// draining, until the queue is empty. It stops at the first error.
func (q *Queue) Drain(ctx context.Context, handle func(context.Context, models.StageRequest) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		req, ok := q.Next()
		if !ok {
			return nil
		}
		slog.Info("Running queued stage.", "projectId", req.ProjectID, "stage", req.Stage, "taskId", req.ExecutionID)
		if err := handle(ctx, req); err != nil {
			return fmt.Errorf("stage %s for project %s: %w", req.Stage, req.ProjectID, err)
		}
	}
}
