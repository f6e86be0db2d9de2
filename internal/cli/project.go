package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/reelplan/reelplan/internal/asset"
)

// NewProjectCommand creates the project command group.
func NewProjectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	cmd.AddCommand(newProjectCreateCommand(rootOpts))
	cmd.AddCommand(newProjectListCommand(rootOpts))
	cmd.AddCommand(newProjectShowCommand(rootOpts))
	return cmd
}

func newProjectCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <title>",
		Short: "Create a new project",
		Long: `Create a new project.

Example:
  reelplan project create "Harbor Lights" --db ./reelplan.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.svc.CreateProject(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(p)
			}
			return f.Success(fmt.Sprintf("Project created: %s (%q)", p.ProjectID, p.Title))
		},
	}
}

func newProjectListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List all projects",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			projects, err := a.svc.ListProjects(cmd.Context())
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(projects)
			}
			w := table.NewWriter()
			w.AppendHeader(table.Row{"project_id", "title", "created_at", "active_plan", "active_shot_plan"})
			for _, p := range projects {
				w.AppendRow(table.Row{p.ProjectID, p.Title, p.CreatedAt.Format(time.RFC3339), p.ActivePlanRef, p.ActiveShotPlanRef})
			}
			return f.Success(w.Render())
		},
	}
}

func newProjectShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <project-id>",
		Short:         "Show one project",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.svc.GetProject(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(p)
			}
			return f.Success(renderProject(p))
		},
	}
}

func renderProject(p *asset.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project:     %s\n", p.ProjectID)
	fmt.Fprintf(&b, "Title:       %s\n", p.Title)
	fmt.Fprintf(&b, "Created:     %s\n", p.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Script:      %s\n", orNone(p.ActiveScriptRef))
	fmt.Fprintf(&b, "Plan:        %s\n", orNone(p.ActivePlanRef))
	fmt.Fprintf(&b, "Shot plan:   %s\n", orNone(p.ActiveShotPlanRef))
	fmt.Fprintf(&b, "Style frame: %s", orNone(p.ActiveStyleFrameRef))
	return b.String()
}

func orNone(ref string) string {
	if ref == "" {
		return "(none)"
	}
	return ref
}
