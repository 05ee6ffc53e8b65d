package testsupport

import (
	"context"
	"fmt"
	"sync"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// Handoff records triggers instead of scheduling anything.
type Handoff struct {
	mu       sync.Mutex
	Err      error
	Triggers []models.StageRequest
}

var _ pipeline.Handoff = (*Handoff)(nil)

func (h *Handoff) Trigger(_ context.Context, projectID string, stage models.StageName) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Err != nil {
		return "", h.Err
	}
	h.Triggers = append(h.Triggers, models.StageRequest{ProjectID: projectID, Stage: stage})
	return fmt.Sprintf("task-%d", len(h.Triggers)), nil
}
