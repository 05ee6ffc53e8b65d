package pipeline

import (
	"context"

	"github.com/Lllllllleong/bookcastflow/internal/models"
)

// Repository is the persistence the pipeline needs. Implementations return
// the most recently written state and wrap missing records with ErrNotFound.
// Nothing beyond last-write-wins per entity is assumed.
type Repository interface {
	FindProject(ctx context.Context, id string) (*models.Project, error)
	FindProjectByHash(ctx context.Context, fileHash string) (*models.Project, error)
	CreateProject(ctx context.Context, p *models.Project) error
	UpdateProject(ctx context.Context, p *models.Project) error
	SelectChaptersByProjectID(ctx context.Context, projectID string) ([]*models.Chapter, error)
	UpdateChapter(ctx context.Context, c *models.Chapter) error
	BulkCreateChapters(ctx context.Context, chapters []*models.Chapter) error
}

// ObjectStore holds binary artifacts addressed by slash-separated paths.
// Write overwrites; WriteIfAbsent leaves an existing object untouched.
// Download wraps a missing object with ErrNotFound.
type ObjectStore interface {
	Write(ctx context.Context, path string, data []byte) (string, error)
	WriteIfAbsent(ctx context.Context, path string, data []byte) (string, error)
	Download(ctx context.Context, path string) ([]byte, error)
}

// Handoff schedules a stage without waiting for it. Delivery may repeat.
type Handoff interface {
	Trigger(ctx context.Context, projectID string, stage models.StageName) (string, error)
}
