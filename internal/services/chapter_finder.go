package services

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// ChapterFinder reads chapter starts from a single-page PDF that may hold a
// table of contents.
type ChapterFinder interface {
	FindChapterStarts(ctx context.Context, page []byte) (models.TableOfContents, error)
}

const (
	// tocScanPages is how far into a book the table of contents is looked for.
	tocScanPages   = 20
	tocConcurrency = 10
)

// detectChapters scans the first pages of a book for its table of contents
// and lays the chapters out from the starts found there.
func (f *Intake) detectChapters(ctx context.Context, pdf []byte, pageCount, offset int) ([]models.ChapterManifest, error) {
	pages, err := f.pdf.SplitPages(pdf)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrDataIntegrity, "intake", "detect chapters", "failed to split PDF", err)
	}
	if len(pages) > tocScanPages {
		pages = pages[:tocScanPages]
	}

	units := make([]pipeline.Unit[models.TableOfContents], 0, len(pages))
	for i, page := range pages {
		op := fmt.Sprintf("read table of contents on page %d", i+1)
		units = append(units, func(ctx context.Context) (models.TableOfContents, error) {
			return pipeline.Retry(ctx, f.retry, op, func(ctx context.Context) (models.TableOfContents, error) {
				return f.finder.FindChapterStarts(ctx, page)
			})
		})
	}
	results, err := pipeline.RunBounded(ctx, tocConcurrency, units)
	if err != nil {
		return nil, err
	}

	var starts []models.ChapterStart
	for _, toc := range results {
		if toc.IsTableOfContentsPage {
			starts = append(starts, toc.ChapterPages...)
		}
	}
	layout := models.ChapterLayout(starts, offset, pageCount)
	if len(layout) == 0 {
		return nil, pipeline.Wrap(pipeline.ErrDataIntegrity, "intake", "detect chapters",
			fmt.Sprintf("no table of contents in the first %d pages", len(pages)), nil)
	}
	return layout, nil
}
