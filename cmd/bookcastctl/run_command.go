package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/services"
	"github.com/spf13/cobra"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		projectID string
		stage     string
		resume    bool
		follow    bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one pipeline stage for a project",
		Example: "  bookcastctl run --project 7f3c --stage extraction --follow\n" +
			"  bookcastctl run --project 7f3c --stage synthesis --resume",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" {
				return fmt.Errorf("--project is required")
			}
			worker, err := ctx.newWorker(cmd.Context())
			if err != nil {
				return err
			}
			req := models.StageRequest{
				ProjectID: projectID,
				Stage:     models.StageName(stage),
				Resume:    resume,
			}
			if err := runStage(cmd.Context(), worker, req, cmd.OutOrStdout()); err != nil {
				return err
			}
			if !follow {
				return nil
			}
			return ctx.queue.Drain(cmd.Context(), func(runCtx context.Context, next models.StageRequest) error {
				return runStage(runCtx, worker, next, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID")
	cmd.Flags().StringVarP(&stage, "stage", "s", string(models.StageExtraction), "Stage to run (extraction, scripting, synthesis, mastering)")
	cmd.Flags().BoolVar(&resume, "resume", false, "Admit a project left in the stage's in-progress status")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep running the stages each run hands off to")
	return cmd
}

// runStage processes req and prints either the response or the structured
// failure as JSON.
func runStage(ctx context.Context, worker *services.StageWorker, req models.StageRequest, out io.Writer) error {
	resp, err := worker.Process(ctx, req)
	if err != nil {
		_ = writeJSON(out, services.Failure(req, err))
		return err
	}
	return writeJSON(out, resp)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
