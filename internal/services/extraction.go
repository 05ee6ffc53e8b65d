package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// PageExtractor reads the text of a single-page PDF.
type PageExtractor interface {
	ExtractPageText(ctx context.Context, page []byte) (string, error)
}

// Extraction turns every page of a chapter into text, one unit per page.
type Extraction struct {
	repo      pipeline.Repository
	store     pipeline.ObjectStore
	extractor PageExtractor
	pdf       PDFTool
	limit     int
	retry     pipeline.RetryPolicy
}

var _ pipeline.Stage = (*Extraction)(nil)

func NewExtraction(repo pipeline.Repository, store pipeline.ObjectStore, extractor PageExtractor, pdf PDFTool, limit int, retry pipeline.RetryPolicy) *Extraction {
	return &Extraction{repo: repo, store: withRetry(store, retry), extractor: extractor, pdf: pdf, limit: limit, retry: retry}
}

func (e *Extraction) Name() models.StageName { return models.StageExtraction }

func (e *Extraction) Run(ctx context.Context, project *models.Project, chapters []*models.Chapter) (pipeline.StageReport, error) {
	logCtx := slog.With("projectId", project.ID, "stage", string(e.Name()))
	todo, skipped := pending(chapters, inProgressStatus(e.Name()))
	if len(todo) == 0 {
		logCtx.Info("No chapters left to extract.")
		return pipeline.StageReport{Skipped: skipped}, nil
	}

	source, err := e.store.Download(ctx, models.SourcePath(project))
	if err != nil {
		return pipeline.StageReport{Failed: len(todo), Skipped: skipped}, fmt.Errorf("download source PDF: %w", err)
	}
	pages, err := e.pdf.SplitPages(source)
	if err != nil {
		return pipeline.StageReport{Failed: len(todo), Skipped: skipped},
			pipeline.Wrap(pipeline.ErrDataIntegrity, string(e.Name()), "split", "source PDF unreadable", err)
	}
	logCtx.Info("Source PDF split.", "pageCount", len(pages), "chapters", len(todo))

	plans := make([]chapterPlan, 0, len(todo))
	var units []pipeline.Unit[models.ExtractionUnitResult]
	for _, ch := range todo {
		chapterPages := ch.Pages()
		if last := ch.EndPage - 1; last > len(pages) {
			plans = append(plans, chapterPlan{chapter: ch, err: pipeline.Wrap(pipeline.ErrDataIntegrity, string(e.Name()), "plan",
				fmt.Sprintf("page %d is outside the %d-page document", last, len(pages)), nil)})
			continue
		}
		plans = append(plans, chapterPlan{chapter: ch, units: len(chapterPages)})
		for _, page := range chapterPages {
			units = append(units, e.pageUnit(project.ID, ch.ID, page, pages[page-1]))
		}
	}

	results, runErr := pipeline.RunBounded(ctx, e.limit, units)
	report, err := settle(ctx, e.repo, logCtx, completedStatus(e.Name()), plans, results, runErr, foldPages)
	report.Skipped = skipped
	return report, err
}

// pageUnit reuses a stored page text when one exists so a re-run only pays
// for pages that never finished.
func (e *Extraction) pageUnit(projectID, chapterID string, page int, pdf []byte) pipeline.Unit[models.ExtractionUnitResult] {
	return func(ctx context.Context) (models.ExtractionUnitResult, error) {
		path := models.PageTextPath(projectID, page)
		cached, err := e.store.Download(ctx, path)
		if err == nil {
			return models.ExtractionUnitResult{ChapterID: chapterID, PageNumber: page, Text: string(cached)}, nil
		}
		if !errors.Is(err, pipeline.ErrNotFound) {
			return models.ExtractionUnitResult{}, fmt.Errorf("page %d: %w", page, err)
		}

		text, err := pipeline.Retry(ctx, e.retry, fmt.Sprintf("extract page %d", page), func(ctx context.Context) (string, error) {
			return e.extractor.ExtractPageText(ctx, pdf)
		})
		if err != nil {
			return models.ExtractionUnitResult{}, fmt.Errorf("page %d: %w", page, err)
		}
		if _, err := e.store.WriteIfAbsent(ctx, path, []byte(text)); err != nil {
			return models.ExtractionUnitResult{}, fmt.Errorf("page %d: store text: %w", page, err)
		}
		return models.ExtractionUnitResult{ChapterID: chapterID, PageNumber: page, Text: text}, nil
	}
}

// foldPages joins page texts in page order, whatever order they finished in.
func foldPages(ch *models.Chapter, results []models.ExtractionUnitResult) error {
	sort.Slice(results, func(i, j int) bool { return results[i].PageNumber < results[j].PageNumber })
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	ch.ExtractedText = strings.Join(texts, "\n")
	return nil
}
