package models

import "sort"

// These structs define the JSON payloads exchanged between the hand-off
// workflow and the stage worker functions.

// StageName identifies one of the four pipeline stages.
type StageName string

const (
	StageExtraction StageName = "extraction"
	StageScripting  StageName = "scripting"
	StageSynthesis  StageName = "synthesis"
	StageMastering  StageName = "mastering"
)

// StageRequest is the input for a stage worker invocation.
// Resume admits a project that is still in the stage's in-progress status
// after an interrupted run.
type StageRequest struct {
	ProjectID   string    `json:"projectId"`
	Stage       StageName `json:"stage"`
	Resume      bool      `json:"resume,omitempty"`
	ExecutionID string    `json:"executionId,omitempty"`
}

// NextTask describes the hand-off scheduled after a successful stage.
type NextTask struct {
	Stage  StageName `json:"stage"`
	TaskID string    `json:"taskId"`
}

// StageResponse is the output of a successful stage invocation.
type StageResponse struct {
	Status               string    `json:"status"`
	ProjectID            string    `json:"projectId"`
	Stage                StageName `json:"stage"`
	ProjectStatus        Status    `json:"projectStatus"`
	ProcessedChapters    int       `json:"processedChapters"`
	ExecutionTimeSeconds float64   `json:"executionTimeSeconds"`
	NextTask             *NextTask `json:"nextTask,omitempty"`
}

// StageFailure is the structured body returned when a stage invocation fails.
type StageFailure struct {
	Status    string    `json:"status"`
	ProjectID string    `json:"projectId"`
	Stage     StageName `json:"stage"`
	ErrorKind string    `json:"errorKind"`
	Message   string    `json:"message"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
}

// GCSEvent is the payload of a storage object-finalized event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// ChapterManifest is one chapter entry of an intake manifest.
type ChapterManifest struct {
	ChapterNumber int    `json:"chapterNumber"`
	Title         string `json:"title"`
	StartPage     int    `json:"startPage"`
	EndPage       int    `json:"endPage"`
}

// IntakeManifest describes a book upload: the PDF object in the same bucket
// and its chapter layout. When Chapters is empty the layout is read from the
// book's table of contents, and PageOffset is added to every printed page
// number found there.
type IntakeManifest struct {
	SourceObject string            `json:"sourceObject"`
	Filename     string            `json:"filename"`
	Chapters     []ChapterManifest `json:"chapters,omitempty"`
	PageOffset   int               `json:"pageOffset,omitempty"`
}

// ChapterStart is a chapter title and the page it starts on, as printed in a
// table of contents.
type ChapterStart struct {
	PageNumber int    `json:"pageNumber"`
	Title      string `json:"title"`
}

// TableOfContents is what one scanned page contributes to chapter detection.
type TableOfContents struct {
	ChapterPages          []ChapterStart `json:"chapterPages"`
	IsTableOfContentsPage bool           `json:"isTableOfContentsPage"`
}

// ChapterLayout turns chapter starts into contiguous chapters numbered from 1.
// Each chapter runs until the next one starts and the last one ends with the
// book. Starts shifted by offset that fall outside 1..pageCount are dropped,
// and when two starts share a page the first title wins.
func ChapterLayout(starts []ChapterStart, offset, pageCount int) []ChapterManifest {
	byPage := make(map[int]string, len(starts))
	pages := make([]int, 0, len(starts))
	for _, s := range starts {
		page := s.PageNumber + offset
		if page < 1 || page > pageCount {
			continue
		}
		if _, ok := byPage[page]; ok {
			continue
		}
		byPage[page] = s.Title
		pages = append(pages, page)
	}
	sort.Ints(pages)

	layout := make([]ChapterManifest, 0, len(pages))
	for i, page := range pages {
		end := pageCount + 1
		if i+1 < len(pages) {
			end = pages[i+1]
		}
		layout = append(layout, ChapterManifest{
			ChapterNumber: i + 1,
			Title:         byPage[page],
			StartPage:     page,
			EndPage:       end,
		})
	}
	return layout
}
