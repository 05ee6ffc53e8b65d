package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Lllllllleong/bookcastflow/internal/services"
	"github.com/spf13/cobra"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	var (
		projectID string
		outPath   string
	)
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Write the mastered chapters of a project to a zip file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" {
				return fmt.Errorf("--project is required")
			}
			if outPath == "" {
				outPath = projectID + ".zip"
			}
			b, err := ctx.ensureBackends(cmd.Context())
			if err != nil {
				return err
			}

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create archive: %w", err)
			}
			count, err := services.NewArchiver(b.Repo, b.Store).Write(cmd.Context(), projectID, f)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return errors.Join(err, os.Remove(outPath))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d chapters to %s\n", count, outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Archive path (default <project>.zip)")
	return cmd
}
