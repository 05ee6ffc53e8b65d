package pipeline

import (
	"context"
	"time"

	"github.com/Lllllllleong/bookcastflow/internal/models"
)

// Stage is a stage executor. Run receives every chapter of the project and
// must only touch chapters in the stage's in-progress status.
type Stage interface {
	Name() models.StageName
	Run(ctx context.Context, project *models.Project, chapters []*models.Chapter) (StageReport, error)
}

// StageReport counts chapters by outcome for one executor run.
type StageReport struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// StageSpec is one row of the project state machine.
type StageSpec struct {
	Name       models.StageName
	Entry      models.Status
	InProgress models.Status
	Completed  models.Status
	Next       models.StageName
	Timeout    time.Duration
}

// Admits reports whether a project in status may enter the stage: either
// freshly from the previous stage, or again after an interrupted run.
func (s StageSpec) Admits(status models.Status) bool {
	return status == s.Entry || status == s.InProgress
}

// Terminal reports whether no stage follows.
func (s StageSpec) Terminal() bool { return s.Next == "" }

var stageSpecs = []StageSpec{
	{
		Name:       models.StageExtraction,
		Entry:      models.StatusNotStarted,
		InProgress: models.StatusExtracting,
		Completed:  models.StatusExtracted,
		Next:       models.StageScripting,
	},
	{
		Name:       models.StageScripting,
		Entry:      models.StatusExtracted,
		InProgress: models.StatusScripting,
		Completed:  models.StatusScripted,
		Next:       models.StageSynthesis,
	},
	{
		Name:       models.StageSynthesis,
		Entry:      models.StatusScripted,
		InProgress: models.StatusSynthesizing,
		Completed:  models.StatusSynthesized,
		Next:       models.StageMastering,
		Timeout:    time.Hour,
	},
	{
		Name:       models.StageMastering,
		Entry:      models.StatusSynthesized,
		InProgress: models.StatusMastering,
		Completed:  models.StatusMastered,
	},
}

// SpecFor returns the state machine row for a stage.
func SpecFor(name models.StageName) (StageSpec, bool) {
	for _, s := range stageSpecs {
		if s.Name == name {
			return s, true
		}
	}
	return StageSpec{}, false
}

// Stages lists the stages in pipeline order.
func Stages() []models.StageName {
	names := make([]models.StageName, 0, len(stageSpecs))
	for _, s := range stageSpecs {
		names = append(names, s.Name)
	}
	return names
}
