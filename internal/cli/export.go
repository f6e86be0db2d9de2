package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reelplan/reelplan/internal/export"
)

// ExportOptions holds flags shared by the export subcommands.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command group.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export committed project state",
	}
	cmd.AddCommand(newExportStoryboardCommand(rootOpts))
	cmd.AddCommand(newExportCSVCommand(rootOpts, "characters", "Export the character table as CSV"))
	cmd.AddCommand(newExportCSVCommand(rootOpts, "shots", "Export the shot list as CSV"))
	cmd.AddCommand(newExportCSVCommand(rootOpts, "images", "Export the image inventory as CSV"))
	return cmd
}

func newExportStoryboardCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "storyboard <project-id>",
		Short: "Export the full storyboard as JSON",
		Long: `Export the project's committed head assets as one storyboard JSON
document: project, plan, shot plan, and all image versions.

Example:
  reelplan export storyboard 0192f3a1 -o storyboard.json`,
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

			sb, err := a.svc.BuildStoryboard(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			out, err := export.StoryboardJSON(sb)
			if err != nil {
				return f.Fail(err)
			}
			return writeExport(f, opts.Output, string(out))
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to file instead of stdout")

	return cmd
}

// newExportCSVCommand builds one CSV export subcommand. The three tables
// share everything except which slice of the storyboard they render.
func newExportCSVCommand(rootOpts *RootOptions, name, short string) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           name + " <project-id>",
		Short:         short,
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

			sb, err := a.svc.BuildStoryboard(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}

			var out string
			switch name {
			case "characters":
				if sb.Plan == nil {
					return f.Fail(fmt.Errorf("project %s has no plan yet", args[0]))
				}
				out = export.CharactersCSV(sb.Plan)
			case "shots":
				if sb.ShotPlan == nil {
					return f.Fail(fmt.Errorf("project %s has no shot plan yet", args[0]))
				}
				out = export.ShotsCSV(sb.ShotPlan)
			case "images":
				out = export.ImagesCSV(sb.Images)
			}
			return writeExport(f, opts.Output, out)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to file instead of stdout")

	return cmd
}

// writeExport sends rendered output to a file or the formatter. Exports are
// documents, not status lines, so even json format writes them raw.
func writeExport(f *OutputFormatter, path, content string) error {
	if path != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return WrapExitError(ExitCommandError, "write export", err)
		}
		f.VerboseLog("wrote %d bytes to %s", len(content), path)
		return nil
	}
	fmt.Fprintln(f.Writer, content)
	return nil
}
