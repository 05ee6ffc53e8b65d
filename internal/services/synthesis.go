package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/bookcastflow/internal/audio"
	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
	"github.com/Lllllllleong/bookcastflow/internal/script"
)

// Synthesizer renders text as mono signed 16-bit PCM.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Synthesis chunks each chapter script and renders every chunk into its own
// segment slot.
type Synthesis struct {
	repo         pipeline.Repository
	store        pipeline.ObjectStore
	synth        Synthesizer
	sampleRate   int
	maxChunkSize int
	limit        int
	retry        pipeline.RetryPolicy
}

var _ pipeline.Stage = (*Synthesis)(nil)

func NewSynthesis(repo pipeline.Repository, store pipeline.ObjectStore, synth Synthesizer, sampleRate, maxChunkSize, limit int, retry pipeline.RetryPolicy) *Synthesis {
	return &Synthesis{
		repo:         repo,
		store:        withRetry(store, retry),
		synth:        synth,
		sampleRate:   sampleRate,
		maxChunkSize: maxChunkSize,
		limit:        limit,
		retry:        retry,
	}
}

func (s *Synthesis) Name() models.StageName { return models.StageSynthesis }

func (s *Synthesis) Run(ctx context.Context, project *models.Project, chapters []*models.Chapter) (pipeline.StageReport, error) {
	logCtx := slog.With("projectId", project.ID, "stage", string(s.Name()))
	todo, skipped := pending(chapters, inProgressStatus(s.Name()))

	plans := make([]chapterPlan, 0, len(todo))
	var units []pipeline.Unit[models.SynthesisUnitResult]
	for _, ch := range todo {
		chunks := script.SplitScript(ch.Script, s.maxChunkSize)
		if len(chunks) == 0 {
			plans = append(plans, chapterPlan{chapter: ch, err: pipeline.Wrap(pipeline.ErrDataIntegrity, string(s.Name()), "plan", "chapter has no script", nil)})
			continue
		}
		plans = append(plans, chapterPlan{chapter: ch, units: len(chunks)})
		for i, chunk := range chunks {
			units = append(units, s.segmentUnit(project.ID, ch, i, chunk))
		}
	}
	logCtx.Info("Synthesizing segments.", "chapters", len(todo), "segments", len(units), "skipped", skipped)

	results, runErr := pipeline.RunBounded(ctx, s.limit, units)
	report, err := settle(ctx, s.repo, logCtx, completedStatus(s.Name()), plans, results, runErr,
		func(ch *models.Chapter, results []models.SynthesisUnitResult) error {
			ch.SegmentCount = len(results)
			return nil
		})
	report.Skipped = skipped
	return report, err
}

func (s *Synthesis) segmentUnit(projectID string, ch *models.Chapter, index int, text string) pipeline.Unit[models.SynthesisUnitResult] {
	number := ch.ChapterNumber
	id := ch.ID
	return func(ctx context.Context) (models.SynthesisUnitResult, error) {
		op := fmt.Sprintf("synthesize chapter %d segment %d", number, index)
		pcm, err := pipeline.Retry(ctx, s.retry, op, func(ctx context.Context) ([]byte, error) {
			pcm, err := s.synth.Synthesize(ctx, text)
			if err != nil {
				return nil, err
			}
			if len(pcm) == 0 {
				return nil, fmt.Errorf("%w: empty audio payload", pipeline.ErrMalformedResponse)
			}
			return pcm, nil
		})
		if err != nil {
			return models.SynthesisUnitResult{}, fmt.Errorf("%s: %w", op, err)
		}

		wav, err := audio.PCM16ToWAV(pcm, s.sampleRate)
		if err != nil {
			return models.SynthesisUnitResult{}, fmt.Errorf("%s: %w", op, err)
		}
		location, err := s.store.Write(ctx, models.SegmentPath(projectID, number, index), wav)
		if err != nil {
			return models.SynthesisUnitResult{}, fmt.Errorf("%s: store segment: %w", op, err)
		}
		return models.SynthesisUnitResult{ChapterID: id, Index: index, Location: location}, nil
	}
}
