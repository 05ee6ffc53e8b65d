package models

import (
	"fmt"
	"sort"
	"time"
)

// Status is the lifecycle value shared by projects and their chapters.
// Every stage owns an in-progress ("...ING") and a completed ("...ED") value.
type Status string

const (
	StatusNotStarted   Status = "NOT_STARTED"
	StatusExtracting   Status = "EXTRACTING"
	StatusExtracted    Status = "EXTRACTED"
	StatusScripting    Status = "SCRIPTING"
	StatusScripted     Status = "SCRIPTED"
	StatusSynthesizing Status = "SYNTHESIZING"
	StatusSynthesized  Status = "SYNTHESIZED"
	StatusMastering    Status = "MASTERING"
	StatusMastered     Status = "MASTERED"
)

// Project is the top-level unit of work, one uploaded book.
// It is stored in Firestore (or SQLite for local runs) and mutated only
// through the pipeline controller's status transitions.
type Project struct {
	ID           string    `firestore:"-" json:"id"`
	Filename     string    `firestore:"filename" json:"filename"`
	FileHash     string    `firestore:"fileHash,omitempty" json:"fileHash,omitempty"`
	PageCount    int       `firestore:"pageCount" json:"pageCount"`
	Status       Status    `firestore:"status" json:"status"`
	ErrorDetails string    `firestore:"errorDetails,omitempty" json:"errorDetails,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// Chapter is a contiguous page range of a project.
// Pages are 1-based; StartPage is inclusive and EndPage is exclusive.
type Chapter struct {
	ID            string    `firestore:"-" json:"id"`
	ProjectID     string    `firestore:"projectId" json:"projectId"`
	ChapterNumber int       `firestore:"chapterNumber" json:"chapterNumber"`
	Title         string    `firestore:"title,omitempty" json:"title,omitempty"`
	StartPage     int       `firestore:"startPage" json:"startPage"`
	EndPage       int       `firestore:"endPage" json:"endPage"`
	ExtractedText string    `firestore:"extractedText,omitempty" json:"extractedText,omitempty"`
	Script        string    `firestore:"script,omitempty" json:"script,omitempty"`
	SegmentCount  int       `firestore:"segmentCount" json:"segmentCount"`
	Status        Status    `firestore:"status" json:"status"`
	CreatedAt     time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// Pages returns the page numbers covered by the chapter in ascending order.
func (c *Chapter) Pages() []int {
	if c.EndPage <= c.StartPage {
		return nil
	}
	pages := make([]int, 0, c.EndPage-c.StartPage)
	for p := c.StartPage; p < c.EndPage; p++ {
		pages = append(pages, p)
	}
	return pages
}

func (c *Chapter) String() string {
	return fmt.Sprintf("chapter %d (pages %d-%d)", c.ChapterNumber, c.StartPage, c.EndPage-1)
}

// ChapterID derives the stable identifier of a chapter from its project and
// number so that repeated bulk creation overwrites instead of duplicating.
func ChapterID(projectID string, chapterNumber int) string {
	return fmt.Sprintf("%s-%03d", projectID, chapterNumber)
}

// SortChapters orders chapters by chapter number in place.
func SortChapters(chapters []*Chapter) {
	sort.Slice(chapters, func(i, j int) bool {
		return chapters[i].ChapterNumber < chapters[j].ChapterNumber
	})
}

// RangeError describes a chapter page range that cannot be processed.
type RangeError struct {
	ChapterNumber int
	Reason        string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("chapter %d: %s", e.ChapterNumber, e.Reason)
}

// ValidateChapterRanges checks that chapter numbers are positive and unique,
// that every range is non-empty, starts at page 1 or later and ends no later
// than pageCount+1 (when pageCount > 0), and that no two ranges overlap.
// Chapter IDs and object paths derive from the number, so a repeated number
// would make two chapters share storage. It does not try to repair anything.
func ValidateChapterRanges(chapters []*Chapter, pageCount int) error {
	seen := make(map[int]bool, len(chapters))
	for _, ch := range chapters {
		if ch.ChapterNumber < 1 {
			return &RangeError{ChapterNumber: ch.ChapterNumber, Reason: "chapter number must be 1 or greater"}
		}
		if seen[ch.ChapterNumber] {
			return &RangeError{ChapterNumber: ch.ChapterNumber, Reason: "duplicate chapter number"}
		}
		seen[ch.ChapterNumber] = true
	}

	ordered := make([]*Chapter, len(chapters))
	copy(ordered, chapters)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].StartPage == ordered[j].StartPage {
			return ordered[i].ChapterNumber < ordered[j].ChapterNumber
		}
		return ordered[i].StartPage < ordered[j].StartPage
	})

	for i, ch := range ordered {
		if ch.StartPage < 1 {
			return &RangeError{ChapterNumber: ch.ChapterNumber, Reason: fmt.Sprintf("start page %d is before page 1", ch.StartPage)}
		}
		if ch.EndPage <= ch.StartPage {
			return &RangeError{ChapterNumber: ch.ChapterNumber, Reason: fmt.Sprintf("empty page range [%d, %d)", ch.StartPage, ch.EndPage)}
		}
		if pageCount > 0 && ch.EndPage > pageCount+1 {
			return &RangeError{ChapterNumber: ch.ChapterNumber, Reason: fmt.Sprintf("end page %d is past the last page %d", ch.EndPage-1, pageCount)}
		}
		if i > 0 {
			prev := ordered[i-1]
			if ch.StartPage < prev.EndPage {
				return &RangeError{
					ChapterNumber: ch.ChapterNumber,
					Reason:        fmt.Sprintf("pages [%d, %d) overlap chapter %d [%d, %d)", ch.StartPage, ch.EndPage, prev.ChapterNumber, prev.StartPage, prev.EndPage),
				}
			}
		}
	}
	return nil
}
