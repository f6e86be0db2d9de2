package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/reelplan/reelplan/internal/asset"
)

// NewVersionsCommand creates the versions command group.
func NewVersionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Inspect asset version history",
	}
	cmd.AddCommand(newVersionsListCommand(rootOpts))
	return cmd
}

func newVersionsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id> <kind> [stable-id]",
		Short: "List every committed version of an asset",
		Long: `List every committed version of one asset, oldest first.

Kind is one of script, plan, shot_plan, image. The stable id defaults to
the project's singleton asset for that kind; image assets have per-entity
ids (img_style, img_char_<id>, img_shot_<id>, ...) and require one.

Example:
  reelplan versions list 0192f3a1 plan`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			kind := asset.Kind(args[1])
			stableID, err := defaultStableID(kind, args)
			if err != nil {
				return WrapExitError(ExitCommandError, "resolve stable id", err)
			}

			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			recs, err := a.st.ListVersions(cmd.Context(), args[0], kind, stableID)
			if err != nil {
				return f.Fail(err)
			}
			head, err := a.st.Head(cmd.Context(), args[0], kind, stableID)
			if err != nil {
				return f.Fail(err)
			}

			if f.Format == "json" {
				out := make([]map[string]any, 0, len(recs))
				for _, rec := range recs {
					out = append(out, map[string]any{
						"version":    rec.Version,
						"status":     rec.Status,
						"created_at": rec.CreatedAt,
						"head":       rec.Version == head,
					})
				}
				return f.Success(map[string]any{"stable_id": stableID, "versions": out})
			}

			w := table.NewWriter()
			w.AppendHeader(table.Row{"version", "status", "created_at", "head"})
			for _, rec := range recs {
				mark := ""
				if rec.Version == head {
					mark = "*"
				}
				w.AppendRow(table.Row{rec.Version, rec.Status, rec.CreatedAt.Format(time.RFC3339), mark})
			}
			return f.Success(w.Render())
		},
	}
}

func defaultStableID(kind asset.Kind, args []string) (string, error) {
	if len(args) == 3 {
		return args[2], nil
	}
	switch kind {
	case asset.KindScript:
		return scriptStableID, nil
	case asset.KindPlan:
		return planStableID, nil
	case asset.KindShotPlan:
		return shotPlanStableID, nil
	case asset.KindImage:
		return "", fmt.Errorf("image versions need an explicit stable id")
	default:
		return "", fmt.Errorf("unknown kind %q: must be script, plan, shot_plan, or image", kind)
	}
}
