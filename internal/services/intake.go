package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// BucketOpener returns the object store of an upload bucket.
type BucketOpener func(bucket string) pipeline.ObjectStore

// Intake turns an uploaded manifest and its PDF into a project with chapters
// and schedules extraction.
type Intake struct {
	repo    pipeline.Repository
	store   pipeline.ObjectStore
	uploads BucketOpener
	handoff pipeline.Handoff
	pdf     PDFTool
	finder  ChapterFinder
	retry   pipeline.RetryPolicy
	now     func() time.Time
}

func NewIntake(repo pipeline.Repository, store pipeline.ObjectStore, uploads BucketOpener, handoff pipeline.Handoff, pdf PDFTool) *Intake {
	return &Intake{repo: repo, store: store, uploads: uploads, handoff: handoff, pdf: pdf, now: time.Now}
}

// WithChapterFinder lets manifests omit their chapters, which are then read
// from the book's table of contents.
func (f *Intake) WithChapterFinder(finder ChapterFinder, retry pipeline.RetryPolicy) *Intake {
	f.finder = finder
	f.retry = retry
	return f
}

// Process handles one object-finalized event. Objects other than JSON
// manifests are ignored, and so are PDFs that were already ingested.
// It returns the created project, or nil when nothing was created.
func (f *Intake) Process(ctx context.Context, e models.GCSEvent) (*models.Project, error) {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !strings.HasSuffix(strings.ToLower(e.Name), ".json") {
		logCtx.Info("Not a manifest, ignoring.")
		return nil, nil
	}
	logCtx.Info("Processing new manifest.")
	uploads := f.uploads(e.Bucket)

	raw, err := uploads.Download(ctx, e.Name)
	if err != nil {
		logCtx.Error("Failed to download manifest", "error", err)
		return nil, err
	}
	var manifest models.IntakeManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, pipeline.Wrap(pipeline.ErrDataIntegrity, "intake", "manifest", "invalid JSON", err)
	}
	if manifest.SourceObject == "" {
		return nil, pipeline.Wrap(pipeline.ErrDataIntegrity, "intake", "manifest", "sourceObject is required", nil)
	}
	if len(manifest.Chapters) == 0 && f.finder == nil {
		return nil, pipeline.Wrap(pipeline.ErrDataIntegrity, "intake", "manifest", "chapters are required", nil)
	}
	if manifest.Filename == "" {
		manifest.Filename = path.Base(manifest.SourceObject)
	}

	source, err := uploads.Download(ctx, manifest.SourceObject)
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return nil, err
	}
	fileHash := calculateHash(source)
	logCtx = logCtx.With("fileHash", fileHash)

	existing, err := f.repo.FindProjectByHash(ctx, fileHash)
	switch {
	case err == nil:
		logCtx.Info("Duplicate file detected. Skipping.", "existingProjectId", existing.ID)
		return nil, nil
	case !errors.Is(err, pipeline.ErrNotFound):
		logCtx.Error("Failed to check for duplicate", "error", err)
		return nil, err
	}

	optimized, pageCount, err := f.pdf.Optimize(source)
	if err != nil {
		logCtx.Error("Source PDF rejected", "error", err)
		return nil, pipeline.Wrap(pipeline.ErrDataIntegrity, "intake", "validate", "source PDF rejected", err)
	}

	if len(manifest.Chapters) == 0 {
		manifest.Chapters, err = f.detectChapters(ctx, optimized, pageCount, manifest.PageOffset)
		if err != nil {
			logCtx.Error("Chapter detection failed", "error", err)
			return nil, err
		}
		logCtx.Info("Chapters read from table of contents.", "chapters", len(manifest.Chapters))
	}

	chapters := make([]*models.Chapter, 0, len(manifest.Chapters))
	for _, cm := range manifest.Chapters {
		chapters = append(chapters, &models.Chapter{
			ChapterNumber: cm.ChapterNumber,
			Title:         cm.Title,
			StartPage:     cm.StartPage,
			EndPage:       cm.EndPage,
			Status:        models.StatusNotStarted,
		})
	}
	if err := models.ValidateChapterRanges(chapters, pageCount); err != nil {
		logCtx.Error("Chapter layout rejected", "error", err, "pageCount", pageCount)
		return nil, pipeline.Wrap(pipeline.ErrDataIntegrity, "intake", "validate chapters", "", err)
	}

	now := f.now()
	project := &models.Project{
		Filename:  manifest.Filename,
		FileHash:  fileHash,
		PageCount: pageCount,
		Status:    models.StatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.repo.CreateProject(ctx, project); err != nil {
		logCtx.Error("Failed to create project", "error", err)
		return nil, err
	}
	logCtx = logCtx.With("projectId", project.ID)
	logCtx.Info("Created project.", "pageCount", pageCount, "chapters", len(chapters))

	if _, err := f.store.Write(ctx, models.SourcePath(project), optimized); err != nil {
		return nil, f.handleError(ctx, logCtx, project, "failed to store source PDF", err)
	}
	for _, ch := range chapters {
		ch.ProjectID = project.ID
		ch.ID = models.ChapterID(project.ID, ch.ChapterNumber)
		ch.CreatedAt = now
		ch.UpdatedAt = now
	}
	if err := f.repo.BulkCreateChapters(ctx, chapters); err != nil {
		return nil, f.handleError(ctx, logCtx, project, "failed to create chapters", err)
	}

	if f.handoff == nil {
		logCtx.Warn("No hand-off configured; extraction must be started manually.")
		return project, nil
	}
	taskID, err := f.handoff.Trigger(ctx, project.ID, models.StageExtraction)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, project, "failed to trigger extraction",
			pipeline.Wrap(pipeline.ErrHandoff, "intake", "trigger extraction", "", err))
	}
	logCtx.Info("Hand-off to extraction complete.", "taskId", taskID)
	return project, nil
}

// handleError records the failure on the project so an operator can see why
// it never started, then returns err.
func (f *Intake) handleError(ctx context.Context, logCtx *slog.Logger, project *models.Project, message string, err error) error {
	logCtx.Error(message, "error", err)
	project.ErrorDetails = fmt.Sprintf("%s: %v", message, err)
	project.UpdatedAt = f.now()
	if uerr := f.repo.UpdateProject(ctx, project); uerr != nil {
		logCtx.Error("CRITICAL: Failed to record error details on project.", "updateError", uerr)
	}
	return fmt.Errorf("%s: %w", message, err)
}

func calculateHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
