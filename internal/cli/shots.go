package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/reelplan/reelplan/internal/asset"
)

// NewShotsCommand creates the shots command group.
func NewShotsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shots",
		Short: "Generate the shot plan and inspect continuity reports",
	}
	cmd.AddCommand(newShotsGenerateCommand(rootOpts))
	cmd.AddCommand(newShotsReportCommand(rootOpts))
	return cmd
}

func newShotsGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <project-id>",
		Short: "Cut the active plan into shots",
		Long: `Cut the active plan into a shot list, run continuity validation with
auto-repair, and commit the result as a new shot plan version. The version
is committed even when issues remain, but the project's active shot plan
only advances when no unrepaired errors are left.

Example:
  reelplan shots generate 0192f3a1 --db ./reelplan.db`,
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

			result, err := a.svc.GenerateShots(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(map[string]any{
					"version":   result.Version,
					"activated": result.Activated,
					"issues":    result.Issues,
				})
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Shot plan committed: version %d\n", result.Version)
			if result.Activated {
				b.WriteString("Activated: yes")
			} else {
				b.WriteString("Activated: no (unrepaired errors remain)")
			}
			if len(result.Issues) > 0 {
				b.WriteString("\n")
				b.WriteString(renderIssues(result.Issues))
			}
			return f.Success(b.String())
		},
	}
}

// ShotsReportOptions holds flags for shots report.
type ShotsReportOptions struct {
	*RootOptions
	Version int64
}

func newShotsReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShotsReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "report <project-id>",
		Short:         "Show the continuity report for a shot plan version",
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

			issues, err := a.svc.GetContinuityReport(cmd.Context(), args[0], opts.Version)
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(issues)
			}
			if len(issues) == 0 {
				return f.Success("No continuity issues.")
			}
			return f.Success(renderIssues(issues))
		},
	}

	cmd.Flags().Int64Var(&opts.Version, "plan-version", 0, "shot plan version (0 = head)")

	return cmd
}

func renderIssues(issues []asset.ContinuityIssue) string {
	w := table.NewWriter()
	w.AppendHeader(table.Row{"severity", "kind", "location", "repaired", "description"})
	for _, issue := range issues {
		repaired := ""
		if issue.AutoRepaired {
			repaired = "yes"
		}
		w.AppendRow(table.Row{issue.Severity, issue.Kind, issue.Location, repaired, issue.Description})
	}
	return w.Render()
}
