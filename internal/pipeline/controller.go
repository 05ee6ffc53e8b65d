package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Lllllllleong/bookcastflow/internal/models"
)

// Controller advances projects through the stage state machine.
//
// Admission is a plain read-then-write status check. The controller keeps no
// state between calls and takes no lock, so it assumes a single writer per
// project: two concurrent AdvanceStage calls for the same project and stage
// can both pass the guard. Supporting concurrent re-entry means replacing the
// guard with a conditional status update in the repository.
type Controller struct {
	repo     Repository
	handoff  Handoff
	logger   *slog.Logger
	now      func() time.Time
	timeouts map[models.StageName]time.Duration
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// WithClock replaces time.Now for timestamps and elapsed time.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

// WithStageTimeout overrides the wall-clock limit of one stage; zero disables it.
func WithStageTimeout(stage models.StageName, d time.Duration) ControllerOption {
	return func(c *Controller) { c.timeouts[stage] = d }
}

// NewController wires a controller. handoff may be nil, in which case
// completed stages are not followed by anything.
func NewController(repo Repository, handoff Handoff, opts ...ControllerOption) *Controller {
	c := &Controller{
		repo:     repo,
		handoff:  handoff,
		logger:   slog.Default(),
		now:      time.Now,
		timeouts: make(map[models.StageName]time.Duration),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Outcome is the result of a successful AdvanceStage call.
type Outcome struct {
	Project           *models.Project
	Stage             models.StageName
	ProcessedChapters int
	SkippedChapters   int
	Elapsed           time.Duration
	NextTask          *models.NextTask
}

// AdvanceStage runs stage for project if the project currently holds
// expected and expected is a status the stage may start from.
//
// The project and every chapter not yet completed for the stage are marked
// in-progress before the executor runs. On executor failure nothing is rolled
// back. On success project and chapters get the completed status and the next
// stage is handed off without waiting for it. A failed hand-off leaves the
// project in the completed status and returns ErrHandoff.
func (c *Controller) AdvanceStage(ctx context.Context, project *models.Project, expected models.Status, stage Stage) (*Outcome, error) {
	spec, ok := SpecFor(stage.Name())
	if !ok {
		return nil, Wrap(ErrConfiguration, string(stage.Name()), "admit", "unknown stage", nil)
	}
	if project.Status != expected {
		return nil, Wrap(ErrInvalidTransition, string(spec.Name), "admit",
			fmt.Sprintf("project %s is %s, caller expected %s", project.ID, project.Status, expected), nil)
	}
	if !spec.Admits(expected) {
		return nil, Wrap(ErrInvalidTransition, string(spec.Name), "admit",
			fmt.Sprintf("stage cannot start from %s (needs %s or %s)", expected, spec.Entry, spec.InProgress), nil)
	}

	logCtx := c.logger.With("projectId", project.ID, "stage", string(spec.Name), "runId", uuid.NewString())

	chapters, err := c.repo.SelectChaptersByProjectID(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("select chapters for project %s: %w", project.ID, err)
	}
	if err := models.ValidateChapterRanges(chapters, project.PageCount); err != nil {
		logCtx.Error("Chapter page ranges are invalid.", "error", err)
		return nil, Wrap(ErrDataIntegrity, string(spec.Name), "validate chapters", "", err)
	}

	current := *project
	if err := c.markInProgress(ctx, spec, &current, chapters); err != nil {
		logCtx.Error("Failed to mark stage in progress.", "error", err)
		return nil, err
	}
	logCtx.Info("Stage started.", "chapterCount", len(chapters))

	start := c.now()
	report, runErr := c.runStage(ctx, spec, stage, &current, chapters)
	elapsed := c.now().Sub(start)
	if runErr != nil {
		logCtx.Error("Stage failed; statuses left in progress for a safe re-run.",
			"succeeded", report.Succeeded,
			"failed", report.Failed,
			"elapsed", elapsed.String(),
			"error", runErr,
		)
		return nil, &StageError{
			ProjectID: project.ID,
			Stage:     spec.Name,
			Succeeded: report.Succeeded,
			Failed:    report.Failed,
			Err:       runErr,
		}
	}

	if err := c.markCompleted(ctx, spec, &current, chapters); err != nil {
		logCtx.Error("Failed to mark stage completed.", "error", err)
		return nil, &StageError{ProjectID: project.ID, Stage: spec.Name, Succeeded: report.Succeeded, Err: err}
	}
	logCtx.Info("Stage completed.",
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"elapsed", elapsed.String(),
	)

	out := &Outcome{
		Project:           &current,
		Stage:             spec.Name,
		ProcessedChapters: report.Succeeded,
		SkippedChapters:   report.Skipped,
		Elapsed:           elapsed,
	}
	if spec.Terminal() {
		return out, nil
	}
	if c.handoff == nil {
		logCtx.Warn("No hand-off configured; next stage must be started manually.", "nextStage", string(spec.Next))
		return out, nil
	}

	taskID, err := c.handoff.Trigger(ctx, current.ID, spec.Next)
	if err != nil {
		logCtx.Error("FATAL: could not schedule next stage; project left completed for a manual re-trigger.",
			"nextStage", string(spec.Next),
			"error", err,
		)
		return nil, &StageError{
			ProjectID: project.ID,
			Stage:     spec.Name,
			Succeeded: report.Succeeded,
			Err:       Wrap(ErrHandoff, string(spec.Name), "trigger "+string(spec.Next), "", err),
		}
	}
	out.NextTask = &models.NextTask{Stage: spec.Next, TaskID: taskID}
	logCtx.Info("Next stage handed off.", "nextStage", string(spec.Next), "taskId", taskID)
	return out, nil
}

func (c *Controller) markInProgress(ctx context.Context, spec StageSpec, project *models.Project, chapters []*models.Chapter) error {
	now := c.now()
	project.Status = spec.InProgress
	project.UpdatedAt = now
	if err := c.repo.UpdateProject(ctx, project); err != nil {
		return fmt.Errorf("set project %s to %s: %w", project.ID, spec.InProgress, err)
	}
	for _, ch := range chapters {
		// Chapters finished by an earlier partial run keep their result.
		if ch.Status == spec.Completed {
			continue
		}
		ch.Status = spec.InProgress
		ch.UpdatedAt = now
		if err := c.repo.UpdateChapter(ctx, ch); err != nil {
			return fmt.Errorf("set chapter %s to %s: %w", ch.ID, spec.InProgress, err)
		}
	}
	return nil
}

func (c *Controller) markCompleted(ctx context.Context, spec StageSpec, project *models.Project, chapters []*models.Chapter) error {
	now := c.now()
	for _, ch := range chapters {
		if ch.Status == spec.Completed {
			continue
		}
		ch.Status = spec.Completed
		ch.UpdatedAt = now
		if err := c.repo.UpdateChapter(ctx, ch); err != nil {
			return fmt.Errorf("set chapter %s to %s: %w", ch.ID, spec.Completed, err)
		}
	}
	project.Status = spec.Completed
	project.UpdatedAt = now
	if err := c.repo.UpdateProject(ctx, project); err != nil {
		return fmt.Errorf("set project %s to %s: %w", project.ID, spec.Completed, err)
	}
	return nil
}

// runStage applies the stage's wall-clock limit. On expiry the executor is
// abandoned, not cancelled: its in-flight units may still finish and write
// their own output slots, which a re-run overwrites.
func (c *Controller) runStage(ctx context.Context, spec StageSpec, stage Stage, project *models.Project, chapters []*models.Chapter) (StageReport, error) {
	timeout := spec.Timeout
	if d, ok := c.timeouts[spec.Name]; ok {
		timeout = d
	}
	if timeout <= 0 {
		return stage.Run(ctx, project, chapters)
	}

	type result struct {
		report StageReport
		err    error
	}
	done := make(chan result, 1)
	snapshot := *project
	// The executor outlives this call on expiry, so it must not inherit the
	// caller's cancellation (an HTTP request context ends with the response).
	runCtx := context.WithoutCancel(ctx)
	go func() {
		report, err := stage.Run(runCtx, &snapshot, chapters)
		done <- result{report: report, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-done:
		return r.report, r.err
	case <-timer.C:
		return StageReport{}, Wrap(ErrTimeout, string(spec.Name), "run",
			fmt.Sprintf("exceeded %s; in-flight units abandoned", timeout), nil)
	case <-ctx.Done():
		return StageReport{}, ctx.Err()
	}
}
