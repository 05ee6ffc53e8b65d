package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/bookcastflow/internal/audio"
	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// Mastering mixes the synthesized segments of each chapter with the shared
// opening and background music.
type Mastering struct {
	repo   pipeline.Repository
	store  pipeline.ObjectStore
	assets AssetConfig
	mix    audio.MixConfig
	limit  int
}

var _ pipeline.Stage = (*Mastering)(nil)

func NewMastering(repo pipeline.Repository, store pipeline.ObjectStore, assets AssetConfig, mix audio.MixConfig, limit int, retry pipeline.RetryPolicy) *Mastering {
	return &Mastering{repo: repo, store: withRetry(store, retry), assets: assets, mix: mix, limit: limit}
}

func (m *Mastering) Name() models.StageName { return models.StageMastering }

func (m *Mastering) Run(ctx context.Context, project *models.Project, chapters []*models.Chapter) (pipeline.StageReport, error) {
	logCtx := slog.With("projectId", project.ID, "stage", string(m.Name()))
	todo, skipped := pending(chapters, inProgressStatus(m.Name()))
	if len(todo) == 0 {
		return pipeline.StageReport{Skipped: skipped}, nil
	}

	// Assets are decoded once per run and shared read-only by every unit.
	jingle, err := m.loadAsset(ctx, m.assets.Jingle)
	if err != nil {
		return pipeline.StageReport{Failed: len(todo), Skipped: skipped}, err
	}
	call, err := m.loadAsset(ctx, m.assets.OpeningCall)
	if err != nil {
		return pipeline.StageReport{Failed: len(todo), Skipped: skipped}, err
	}
	bgm, err := m.loadAsset(ctx, m.assets.BGM)
	if err != nil {
		return pipeline.StageReport{Failed: len(todo), Skipped: skipped}, err
	}
	opening, err := audio.BuildOpening(m.mix, jingle, call)
	if err != nil {
		return pipeline.StageReport{Failed: len(todo), Skipped: skipped}, err
	}
	logCtx.Info("Opening built.", "duration", opening.Duration().String(), "chapters", len(todo))

	plans := make([]chapterPlan, 0, len(todo))
	var units []pipeline.Unit[models.MasteringUnitResult]
	for _, ch := range todo {
		if ch.SegmentCount < 1 {
			plans = append(plans, chapterPlan{chapter: ch, err: pipeline.Wrap(pipeline.ErrDataIntegrity, string(m.Name()), "plan", "chapter has no synthesized segments", nil)})
			continue
		}
		plans = append(plans, chapterPlan{chapter: ch, units: 1})
		units = append(units, m.chapterUnit(project.ID, ch, opening, bgm))
	}

	results, runErr := pipeline.RunBounded(ctx, m.limit, units)
	report, err := settle(ctx, m.repo, logCtx, completedStatus(m.Name()), plans, results, runErr,
		func(ch *models.Chapter, results []models.MasteringUnitResult) error { return nil })
	report.Skipped = skipped
	return report, err
}

func (m *Mastering) loadAsset(ctx context.Context, name string) (*audio.Buffer, error) {
	path := m.assets.path(name)
	data, err := m.store.Download(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load asset %s: %w", path, err)
	}
	buf, err := audio.Decode(name, data, m.mix.SampleRate)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrDataIntegrity, string(m.Name()), "load asset", path, err)
	}
	return buf, nil
}

func (m *Mastering) chapterUnit(projectID string, ch *models.Chapter, opening, bgm *audio.Buffer) pipeline.Unit[models.MasteringUnitResult] {
	number := ch.ChapterNumber
	id := ch.ID
	count := ch.SegmentCount
	return func(ctx context.Context) (models.MasteringUnitResult, error) {
		segments := make([]*audio.Buffer, 0, count)
		for i := 0; i < count; i++ {
			path := models.SegmentPath(projectID, number, i)
			data, err := m.store.Download(ctx, path)
			if err != nil {
				return models.MasteringUnitResult{}, fmt.Errorf("chapter %d: segment %d: %w", number, i, err)
			}
			seg, err := audio.Decode(path, data, m.mix.SampleRate)
			if err != nil {
				return models.MasteringUnitResult{}, fmt.Errorf("chapter %d: segment %d: %w", number, i, err)
			}
			segments = append(segments, seg)
		}

		mixed, err := audio.AssembleChapter(m.mix, opening, bgm, segments)
		if err != nil {
			return models.MasteringUnitResult{}, fmt.Errorf("chapter %d: %w", number, err)
		}
		wav, err := audio.EncodeWAV(mixed)
		if err != nil {
			return models.MasteringUnitResult{}, fmt.Errorf("chapter %d: %w", number, err)
		}
		location, err := m.store.Write(ctx, models.ChapterAudioPath(projectID, number), wav)
		if err != nil {
			return models.MasteringUnitResult{}, fmt.Errorf("chapter %d: store output: %w", number, err)
		}
		return models.MasteringUnitResult{ChapterID: id, Location: location, Samples: mixed.Len()}, nil
	}
}
