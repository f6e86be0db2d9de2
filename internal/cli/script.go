package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// NewScriptCommand creates the script command group.
func NewScriptCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Manage the project script",
	}
	cmd.AddCommand(newScriptPutCommand(rootOpts))
	return cmd
}

func newScriptPutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "put <project-id> <file>",
		Short: "Commit script text as a new version",
		Long: `Commit the contents of a text file as a new script version.
Pass "-" as the file to read the script from stdin.

Example:
  reelplan script put 0192f3a1 ./script.txt --db ./reelplan.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			content, err := readScript(cmd, args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "read script", err)
			}

			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			version, err := a.svc.CreateOrUpdateScript(cmd.Context(), args[0], content)
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(map[string]any{"version": version})
			}
			return f.Success(fmt.Sprintf("Script committed: version %d", version))
		},
	}
}

func readScript(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
