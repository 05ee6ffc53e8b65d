package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
	"github.com/spf13/cobra"
)

// projectLister is implemented by repositories that can enumerate projects.
type projectLister interface {
	ListProjects(ctx context.Context) ([]*models.Project, error)
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show projects, or the chapters of one project",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ctx.ensureBackends(cmd.Context())
			if err != nil {
				return err
			}
			if projectID == "" {
				lister, ok := b.Repo.(projectLister)
				if !ok {
					return fmt.Errorf("repository cannot list projects; pass --project")
				}
				projects, err := lister.ListProjects(cmd.Context())
				if err != nil {
					return err
				}
				return renderProjects(cmd.OutOrStdout(), projects)
			}
			return showProject(cmd.Context(), b.Repo, projectID, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID")
	return cmd
}

func showProject(ctx context.Context, repo pipeline.Repository, projectID string, out io.Writer) error {
	project, err := repo.FindProject(ctx, projectID)
	if err != nil {
		return err
	}
	chapters, err := repo.SelectChaptersByProjectID(ctx, projectID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Project %s (%s)\n", project.ID, project.Filename)
	fmt.Fprintf(out, "Status:  %s\n", project.Status)
	fmt.Fprintf(out, "Pages:   %d\n", project.PageCount)
	if project.ErrorDetails != "" {
		fmt.Fprintf(out, "Error:   %s\n", project.ErrorDetails)
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHAPTER\tPAGES\tSTATUS\tSEGMENTS\tTITLE")
	for _, ch := range chapters {
		fmt.Fprintf(tw, "%d\t%d-%d\t%s\t%d\t%s\n", ch.ChapterNumber, ch.StartPage, ch.EndPage-1, ch.Status, ch.SegmentCount, ch.Title)
	}
	return tw.Flush()
}

func renderProjects(out io.Writer, projects []*models.Project) error {
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tSTATUS\tPAGES\tUPDATED")
	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Filename, p.Status, p.PageCount, p.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}
