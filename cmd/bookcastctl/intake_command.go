package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
	"github.com/Lllllllleong/bookcastflow/internal/services"
	"github.com/spf13/cobra"
)

func newIntakeCommand(ctx *commandContext) *cobra.Command {
	var (
		bucket string
		follow bool
		toc    bool
	)
	cmd := &cobra.Command{
		Use:   "intake <manifest>",
		Short: "Create a project from an upload manifest",
		Long: "Create a project from an upload manifest. Without PROJECT_BUCKET the manifest\n" +
			"and the PDF it names are read from the local directory given by --bucket\n" +
			"(default: the manifest's directory). With --toc a manifest without chapters\n" +
			"has them read from the book's table of contents.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			event := models.GCSEvent{Bucket: bucket, Name: args[0]}
			if event.Bucket == "" {
				event.Bucket = filepath.Dir(args[0])
				event.Name = filepath.Base(args[0])
			}

			b, err := ctx.ensureBackends(cmd.Context())
			if err != nil {
				return err
			}
			intake := services.NewIntake(b.Repo, b.Store, b.Uploads, b.Handoff, services.PDFCPU{})
			if toc {
				cfg, err := services.LoadLocalConfig()
				if err != nil {
					return fmt.Errorf("failed to load configuration: %w", err)
				}
				finder, err := services.NewChapterFinder(cmd.Context(), cfg, b)
				if err != nil {
					return err
				}
				intake.WithChapterFinder(finder, pipeline.DefaultRetryPolicy())
			}
			project, err := intake.Process(cmd.Context(), event)
			if err != nil {
				return err
			}
			if project == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to do: not a manifest or already uploaded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s\n", project.ID)
			if !follow {
				return nil
			}

			worker, err := ctx.newWorker(cmd.Context())
			if err != nil {
				return err
			}
			return ctx.queue.Drain(cmd.Context(), func(runCtx context.Context, next models.StageRequest) error {
				return runStage(runCtx, worker, next, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "Upload bucket, or a local directory without PROJECT_BUCKET")
	cmd.Flags().BoolVar(&toc, "toc", false, "Read missing chapters from the table of contents")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Run every stage after intake")
	return cmd
}
