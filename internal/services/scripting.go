package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// Scripting writes one narration script per chapter.
type Scripting struct {
	repo   pipeline.Repository
	store  pipeline.ObjectStore
	writer ScriptWriter
	limit  int
}

var _ pipeline.Stage = (*Scripting)(nil)

func NewScripting(repo pipeline.Repository, store pipeline.ObjectStore, writer ScriptWriter, limit int, retry pipeline.RetryPolicy) *Scripting {
	return &Scripting{repo: repo, store: withRetry(store, retry), writer: writer, limit: limit}
}

func (s *Scripting) Name() models.StageName { return models.StageScripting }

func (s *Scripting) Run(ctx context.Context, project *models.Project, chapters []*models.Chapter) (pipeline.StageReport, error) {
	logCtx := slog.With("projectId", project.ID, "stage", string(s.Name()))
	todo, skipped := pending(chapters, inProgressStatus(s.Name()))
	logCtx.Info("Writing scripts.", "chapters", len(todo), "skipped", skipped)

	plans := make([]chapterPlan, 0, len(todo))
	units := make([]pipeline.Unit[models.ScriptingUnitResult], 0, len(todo))
	for _, ch := range todo {
		plans = append(plans, chapterPlan{chapter: ch, units: 1})
		units = append(units, s.chapterUnit(project.ID, ch))
	}

	results, runErr := pipeline.RunBounded(ctx, s.limit, units)
	report, err := settle(ctx, s.repo, logCtx, completedStatus(s.Name()), plans, results, runErr,
		func(ch *models.Chapter, results []models.ScriptingUnitResult) error {
			ch.Script = results[0].Script
			return nil
		})
	report.Skipped = skipped
	return report, err
}

func (s *Scripting) chapterUnit(projectID string, ch *models.Chapter) pipeline.Unit[models.ScriptingUnitResult] {
	source := ch.ExtractedText
	number := ch.ChapterNumber
	id := ch.ID
	return func(ctx context.Context) (models.ScriptingUnitResult, error) {
		script, err := s.writer.WriteScript(ctx, source)
		if err != nil {
			return models.ScriptingUnitResult{}, fmt.Errorf("chapter %d: %w", number, err)
		}
		location, err := s.store.Write(ctx, models.ScriptPath(projectID, number), []byte(script))
		if err != nil {
			return models.ScriptingUnitResult{}, fmt.Errorf("chapter %d: store script: %w", number, err)
		}
		return models.ScriptingUnitResult{ChapterID: id, Script: script, Location: location}, nil
	}
}
