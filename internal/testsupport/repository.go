package testsupport

import (
	"context"
	"fmt"
	"sync"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// Repository is an in-memory pipeline.Repository. It stores copies so tests
// observe only what was written through it.
type Repository struct {
	mu       sync.Mutex
	projects map[string]models.Project
	chapters map[string]models.Chapter
	nextID   int

	// Writes counts every UpdateProject/UpdateChapter/Create call.
	Writes int
	// FailChapterUpdate, when set, is returned by UpdateChapter.
	FailChapterUpdate error
}

var _ pipeline.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{
		projects: make(map[string]models.Project),
		chapters: make(map[string]models.Chapter),
	}
}

// Seed stores a project and its chapters, assigning IDs where missing.
func (r *Repository) Seed(p *models.Project, chapters ...*models.Chapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		r.nextID++
		p.ID = fmt.Sprintf("project-%d", r.nextID)
	}
	r.projects[p.ID] = *p
	for _, ch := range chapters {
		ch.ProjectID = p.ID
		if ch.ID == "" {
			ch.ID = models.ChapterID(p.ID, ch.ChapterNumber)
		}
		r.chapters[ch.ID] = *ch
	}
}

func (r *Repository) FindProject(_ context.Context, id string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, pipeline.ErrNotFound)
	}
	return &p, nil
}

func (r *Repository) FindProjectByHash(_ context.Context, fileHash string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.FileHash == fileHash {
			found := p
			return &found, nil
		}
	}
	return nil, fmt.Errorf("project with hash %s: %w", fileHash, pipeline.ErrNotFound)
}

func (r *Repository) CreateProject(_ context.Context, p *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = fmt.Sprintf("project-%d", r.nextID)
	r.projects[p.ID] = *p
	r.Writes++
	return nil
}

func (r *Repository) UpdateProject(_ context.Context, p *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID] = *p
	r.Writes++
	return nil
}

func (r *Repository) SelectChaptersByProjectID(_ context.Context, projectID string) ([]*models.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Chapter
	for _, ch := range r.chapters {
		if ch.ProjectID == projectID {
			c := ch
			out = append(out, &c)
		}
	}
	models.SortChapters(out)
	return out, nil
}

func (r *Repository) UpdateChapter(_ context.Context, c *models.Chapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailChapterUpdate != nil {
		return r.FailChapterUpdate
	}
	r.chapters[c.ID] = *c
	r.Writes++
	return nil
}

func (r *Repository) BulkCreateChapters(_ context.Context, chapters []*models.Chapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range chapters {
		if ch.ID == "" {
			ch.ID = models.ChapterID(ch.ProjectID, ch.ChapterNumber)
		}
		r.chapters[ch.ID] = *ch
		r.Writes++
	}
	return nil
}

// Project returns the stored copy of a project, or nil.
func (r *Repository) Project(id string) *models.Project {
	p, err := r.FindProject(context.Background(), id)
	if err != nil {
		return nil
	}
	return p
}

// Chapters returns the stored chapters of a project ordered by number.
func (r *Repository) Chapters(projectID string) []*models.Chapter {
	chapters, _ := r.SelectChaptersByProjectID(context.Background(), projectID)
	return chapters
}

// WriteCount returns Writes under the lock.
func (r *Repository) WriteCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Writes
}
