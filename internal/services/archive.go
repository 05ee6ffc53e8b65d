package services

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// Archiver bundles the mastered chapter audio of a project.
type Archiver struct {
	repo  pipeline.Repository
	store pipeline.ObjectStore
}

func NewArchiver(repo pipeline.Repository, store pipeline.ObjectStore) *Archiver {
	return &Archiver{repo: repo, store: store}
}

// Write streams a zip with one chapter_NNN.wav entry per mastered chapter, in
// chapter order, and returns the number of entries.
func (a *Archiver) Write(ctx context.Context, projectID string, w io.Writer) (int, error) {
	chapters, err := a.repo.SelectChaptersByProjectID(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("select chapters for project %s: %w", projectID, err)
	}
	models.SortChapters(chapters)

	zw := zip.NewWriter(w)
	count := 0
	for _, ch := range chapters {
		if ch.Status != models.StatusMastered {
			continue
		}
		data, err := a.store.Download(ctx, models.ChapterAudioPath(projectID, ch.ChapterNumber))
		if err != nil {
			_ = zw.Close()
			return count, fmt.Errorf("chapter %d: %w", ch.ChapterNumber, err)
		}
		entry, err := zw.Create(models.ArchiveEntryName(ch.ChapterNumber))
		if err != nil {
			_ = zw.Close()
			return count, fmt.Errorf("chapter %d: %w", ch.ChapterNumber, err)
		}
		if _, err := entry.Write(data); err != nil {
			_ = zw.Close()
			return count, fmt.Errorf("chapter %d: %w", ch.ChapterNumber, err)
		}
		count++
	}
	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("finalize archive: %w", err)
	}
	slog.Info("Archive written.", "projectId", projectID, "entries", count)
	return count, nil
}
