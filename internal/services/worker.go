package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// StageWorker is the entry point for stage requests. It loads the project,
// picks the expected status and lets the controller run the stage.
type StageWorker struct {
	repo       pipeline.Repository
	controller *pipeline.Controller
	stages     map[models.StageName]pipeline.Stage
}

func NewStageWorker(repo pipeline.Repository, controller *pipeline.Controller, stages ...pipeline.Stage) *StageWorker {
	byName := make(map[models.StageName]pipeline.Stage, len(stages))
	for _, s := range stages {
		byName[s.Name()] = s
	}
	return &StageWorker{repo: repo, controller: controller, stages: byName}
}

// Process runs one stage for one project. The project must hold the stage's
// entry status, or its in-progress status when req.Resume is set.
func (w *StageWorker) Process(ctx context.Context, req models.StageRequest) (*models.StageResponse, error) {
	logCtx := slog.With("projectId", req.ProjectID, "stage", string(req.Stage), "executionId", req.ExecutionID)
	if req.ProjectID == "" {
		return nil, pipeline.Wrap(pipeline.ErrInvalidTransition, string(req.Stage), "admit", "projectId is required", nil)
	}
	stage, ok := w.stages[req.Stage]
	spec, known := pipeline.SpecFor(req.Stage)
	if !ok || !known {
		return nil, pipeline.Wrap(pipeline.ErrInvalidTransition, string(req.Stage), "admit", "unknown stage", nil)
	}

	project, err := w.repo.FindProject(ctx, req.ProjectID)
	if err != nil {
		logCtx.Error("Failed to load project.", "error", err)
		if errors.Is(err, pipeline.ErrNotFound) {
			return nil, pipeline.Wrap(pipeline.ErrInvalidTransition, string(req.Stage), "admit", "unknown project", err)
		}
		return nil, err
	}

	expected := spec.Entry
	if req.Resume {
		expected = spec.InProgress
	}
	outcome, err := w.controller.AdvanceStage(ctx, project, expected, stage)
	if err != nil {
		return nil, err
	}
	return &models.StageResponse{
		Status:               "success",
		ProjectID:            outcome.Project.ID,
		Stage:                outcome.Stage,
		ProjectStatus:        outcome.Project.Status,
		ProcessedChapters:    outcome.ProcessedChapters,
		ExecutionTimeSeconds: outcome.Elapsed.Seconds(),
		NextTask:             outcome.NextTask,
	}, nil
}

// HTTPStatus maps a stage error to a response code: precondition violations
// are the caller's fault, integrity problems are a conflict with stored data.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrDataIntegrity):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Failure builds the structured failure body for err.
func Failure(req models.StageRequest, err error) models.StageFailure {
	f := models.StageFailure{
		Status:    "error",
		ProjectID: req.ProjectID,
		Stage:     req.Stage,
		ErrorKind: pipeline.Kind(err),
		Message:   err.Error(),
	}
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		f.Succeeded = stageErr.Succeeded
		f.Failed = stageErr.Failed
	}
	return f
}

// ServeHTTP decodes a StageRequest body and writes a StageResponse or a
// StageFailure.
func (w *StageWorker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	var req models.StageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		writeJSON(rw, http.StatusBadRequest, Failure(req, fmt.Errorf("%w: bad request: %w", pipeline.ErrInvalidTransition, err)))
		return
	}
	w.serve(rw, r, req)
}

// StageHandler serves a single stage; the body only needs the project ID.
func (w *StageWorker) StageHandler(stage models.StageName) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var req models.StageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Error("Failed to decode request body", "error", err, "stage", string(stage))
			req.Stage = stage
			writeJSON(rw, http.StatusBadRequest, Failure(req, fmt.Errorf("%w: bad request: %w", pipeline.ErrInvalidTransition, err)))
			return
		}
		req.Stage = stage
		w.serve(rw, r, req)
	}
}

func (w *StageWorker) serve(rw http.ResponseWriter, r *http.Request, req models.StageRequest) {
	resp, err := w.Process(r.Context(), req)
	if err != nil {
		slog.Error("Stage request failed.", "projectId", req.ProjectID, "stage", string(req.Stage), "errorKind", pipeline.Kind(err), "error", err)
		writeJSON(rw, HTTPStatus(err), Failure(req, err))
		return
	}
	writeJSON(rw, http.StatusOK, resp)
}

func writeJSON(rw http.ResponseWriter, status int, body any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
