package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// chapterPlan is the unit expansion of one chapter. A chapter with a planning
// error gets no units and is reported as failed.
type chapterPlan struct {
	chapter *models.Chapter
	units   int
	err     error
}

// pending returns the chapters in status, the others are counted as skipped.
func pending(chapters []*models.Chapter, status models.Status) ([]*models.Chapter, int) {
	var todo []*models.Chapter
	skipped := 0
	for _, ch := range chapters {
		if ch.Status == status {
			todo = append(todo, ch)
			continue
		}
		skipped++
	}
	return todo, skipped
}

func groupByChapter[T models.UnitResult](results []T) map[string][]T {
	grouped := make(map[string][]T)
	for _, r := range results {
		grouped[r.OwnerChapterID()] = append(grouped[r.OwnerChapterID()], r)
	}
	return grouped
}

// settle folds unit results into their chapters and persists every chapter
// whose units all succeeded with the stage's completed status. Chapters with
// a missing result keep their in-progress status.
func settle[T models.UnitResult](
	ctx context.Context,
	repo pipeline.Repository,
	logCtx *slog.Logger,
	completed models.Status,
	plans []chapterPlan,
	results []T,
	runErr error,
	fold func(ch *models.Chapter, results []T) error,
) (pipeline.StageReport, error) {
	grouped := groupByChapter(results)
	var report pipeline.StageReport
	errs := []error{runErr}

	for _, plan := range plans {
		ch := plan.chapter
		if plan.err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("chapter %d: %w", ch.ChapterNumber, plan.err))
			continue
		}
		got := grouped[ch.ID]
		if len(got) != plan.units {
			report.Failed++
			logCtx.Warn("Chapter incomplete; keeping it in progress.",
				"chapter", ch.ChapterNumber, "completedUnits", len(got), "units", plan.units)
			continue
		}

		previous := *ch
		if err := fold(ch, got); err != nil {
			*ch = previous
			report.Failed++
			errs = append(errs, fmt.Errorf("chapter %d: %w", ch.ChapterNumber, err))
			continue
		}
		ch.Status = completed
		ch.UpdatedAt = time.Now()
		if err := repo.UpdateChapter(ctx, ch); err != nil {
			*ch = previous
			report.Failed++
			errs = append(errs, fmt.Errorf("persist chapter %d: %w", ch.ChapterNumber, err))
			continue
		}
		report.Succeeded++
		logCtx.Info("Chapter completed.", "chapter", ch.ChapterNumber)
	}

	if report.Failed > 0 {
		joined := errors.Join(errs...)
		if joined == nil {
			joined = errors.New("units missing")
		}
		return report, fmt.Errorf("%d of %d chapters failed: %w", report.Failed, len(plans), joined)
	}
	return report, nil
}

func completedStatus(stage models.StageName) models.Status {
	spec, _ := pipeline.SpecFor(stage)
	return spec.Completed
}

func inProgressStatus(stage models.StageName) models.Status {
	spec, _ := pipeline.SpecFor(stage)
	return spec.InProgress
}
