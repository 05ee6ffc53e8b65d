package gcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
	"google.golang.org/api/iterator"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// FirestoreRepository stores projects and chapters in two top-level
// collections. Chapter document IDs are derived from the project ID and the
// chapter number.
type FirestoreRepository struct {
	client            *firestore.Client
	projectCollection string
	chapterCollection string
}

var _ pipeline.Repository = (*FirestoreRepository)(nil)

// NewFirestoreRepository wraps client. Empty collection names fall back to
// "projects" and "chapters".
func NewFirestoreRepository(client *firestore.Client, projectCollection, chapterCollection string) *FirestoreRepository {
	if projectCollection == "" {
		projectCollection = "projects"
	}
	if chapterCollection == "" {
		chapterCollection = "chapters"
	}
	return &FirestoreRepository{
		client:            client,
		projectCollection: projectCollection,
		chapterCollection: chapterCollection,
	}
}

func (r *FirestoreRepository) projects() *firestore.CollectionRef {
	return r.client.Collection(r.projectCollection)
}

func (r *FirestoreRepository) chapters() *firestore.CollectionRef {
	return r.client.Collection(r.chapterCollection)
}

func (r *FirestoreRepository) FindProject(ctx context.Context, id string) (*models.Project, error) {
	snap, err := r.projects().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("project %s: %w", id, pipeline.ErrNotFound)
		}
		return nil, classify("failed to read project", err)
	}
	var p models.Project
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to decode project %s: %w", id, err)
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

func (r *FirestoreRepository) FindProjectByHash(ctx context.Context, fileHash string) (*models.Project, error) {
	docs, err := r.projects().Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, classify("failed to query for duplicates", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("project with hash %s: %w", fileHash, pipeline.ErrNotFound)
	}
	var p models.Project
	if err := docs[0].DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to decode project %s: %w", docs[0].Ref.ID, err)
	}
	p.ID = docs[0].Ref.ID
	return &p, nil
}

// CreateProject assigns a fresh document ID to p and stores it. It fails if
// the document already exists.
func (r *FirestoreRepository) CreateProject(ctx context.Context, p *models.Project) error {
	ref := r.projects().NewDoc()
	if _, err := ref.Create(ctx, p); err != nil {
		return classify("failed to create project", err)
	}
	p.ID = ref.ID
	return nil
}

func (r *FirestoreRepository) UpdateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		return errors.New("update project: missing id")
	}
	if _, err := r.projects().Doc(p.ID).Set(ctx, p); err != nil {
		return classify(fmt.Sprintf("failed to update project %s", p.ID), err)
	}
	return nil
}

// SelectChaptersByProjectID returns the chapters ordered by chapter number.
// Ordering happens client side so no composite index is needed.
func (r *FirestoreRepository) SelectChaptersByProjectID(ctx context.Context, projectID string) ([]*models.Chapter, error) {
	iter := r.chapters().Where("projectId", "==", projectID).Documents(ctx)
	defer iter.Stop()

	var out []*models.Chapter
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classify("failed to list chapters", err)
		}
		var ch models.Chapter
		if err := snap.DataTo(&ch); err != nil {
			return nil, fmt.Errorf("failed to decode chapter %s: %w", snap.Ref.ID, err)
		}
		ch.ID = snap.Ref.ID
		out = append(out, &ch)
	}
	models.SortChapters(out)
	return out, nil
}

func (r *FirestoreRepository) UpdateChapter(ctx context.Context, c *models.Chapter) error {
	if c.ID == "" {
		return errors.New("update chapter: missing id")
	}
	if _, err := r.chapters().Doc(c.ID).Set(ctx, c); err != nil {
		return classify(fmt.Sprintf("failed to update chapter %s", c.ID), err)
	}
	return nil
}

// BulkCreateChapters writes every chapter through a BulkWriter and reports
// the first failed write.
func (r *FirestoreRepository) BulkCreateChapters(ctx context.Context, chapters []*models.Chapter) error {
	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(chapters))
	for _, ch := range chapters {
		if ch.ID == "" {
			ch.ID = models.ChapterID(ch.ProjectID, ch.ChapterNumber)
		}
		job, err := bw.Set(r.chapters().Doc(ch.ID), ch)
		if err != nil {
			bw.End()
			return fmt.Errorf("failed to enqueue chapter %s: %w", ch.ID, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	var firstErr error
	failed := 0
	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			failed++
			if firstErr == nil {
				firstErr = classify(fmt.Sprintf("failed to write chapter %s", chapters[i].ID), err)
			}
		}
	}
	if firstErr != nil {
		slog.Error("Bulk chapter creation incomplete.", "failed", failed, "total", len(chapters))
		return firstErr
	}
	return nil
}
