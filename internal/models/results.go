package models

// UnitResult is the value produced by one unit of work inside a stage.
// The set of implementations is closed: the unexported marker method keeps
// folding code exhaustive over the four kinds below.
type UnitResult interface {
	OwnerChapterID() string
	unitResult()
}

// ExtractionUnitResult is the text of one page.
type ExtractionUnitResult struct {
	ChapterID  string
	PageNumber int
	Text       string
}

// ScriptingUnitResult is the narration script of one chapter.
type ScriptingUnitResult struct {
	ChapterID string
	Script    string
	Location  string
}

// SynthesisUnitResult marks one synthesized segment slot as written.
type SynthesisUnitResult struct {
	ChapterID string
	Index     int
	Location  string
}

// MasteringUnitResult is the exported mix of one chapter.
type MasteringUnitResult struct {
	ChapterID string
	Location  string
	Samples   int
}

func (r ExtractionUnitResult) OwnerChapterID() string { return r.ChapterID }
func (r ScriptingUnitResult) OwnerChapterID() string  { return r.ChapterID }
func (r SynthesisUnitResult) OwnerChapterID() string  { return r.ChapterID }
func (r MasteringUnitResult) OwnerChapterID() string  { return r.ChapterID }

func (ExtractionUnitResult) unitResult() {}
func (ScriptingUnitResult) unitResult()  {}
func (SynthesisUnitResult) unitResult()  {}
func (MasteringUnitResult) unitResult()  {}
