package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reelplan/reelplan/internal/asset"
	"github.com/reelplan/reelplan/internal/patch"
	"github.com/reelplan/reelplan/internal/planner"
)

// NewPlanCommand creates the plan command group.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate, patch, and inspect the project plan",
	}
	cmd.AddCommand(newPlanGenerateCommand(rootOpts))
	cmd.AddCommand(newPlanPatchCommand(rootOpts))
	cmd.AddCommand(newPlanShowCommand(rootOpts))
	return cmd
}

// PlanGenerateOptions holds flags for plan generate.
type PlanGenerateOptions struct {
	*RootOptions
	Prefs planner.Preferences
}

func newPlanGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanGenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <project-id>",
		Short: "Extract a plan from the active script",
		Long: `Extract a structured plan from the project's active script and commit it
as a new plan version. Preference flags override the project bible fields;
unset fields fall back to configured defaults.

Example:
  reelplan plan generate 0192f3a1 --genre noir --tone moody`,
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

			version, err := a.svc.GeneratePlan(cmd.Context(), args[0], opts.Prefs)
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(map[string]any{"version": version})
			}
			return f.Success(fmt.Sprintf("Plan generated: version %d", version))
		},
	}

	cmd.Flags().StringVar(&opts.Prefs.Title, "title", "", "project bible title")
	cmd.Flags().StringVar(&opts.Prefs.Genre, "genre", "", "genre")
	cmd.Flags().StringVar(&opts.Prefs.Tone, "tone", "", "tone")
	cmd.Flags().StringVar(&opts.Prefs.Style, "style", "", "visual style")
	cmd.Flags().StringVar(&opts.Prefs.AspectRatio, "aspect-ratio", "", "aspect ratio, e.g. 16:9")
	cmd.Flags().Int64Var(&opts.Prefs.TargetDurationS, "duration", 0, "target duration in seconds")
	cmd.Flags().StringVar(&opts.Prefs.VisualRealism, "realism", "", "visual realism level")
	cmd.Flags().StringVar(&opts.Prefs.Pacing, "pacing", "", "pacing (slow|medium|fast)")

	return cmd
}

// PlanPatchOptions holds flags for plan patch.
type PlanPatchOptions struct {
	*RootOptions
	Ops  string
	File string
}

func newPlanPatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanPatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "patch <project-id>",
		Short: "Apply structured edits to the head plan",
		Long: `Apply an ordered list of patch operations to the head plan and commit the
result as a new version. The list is atomic: one bad operation aborts the
whole call.

Operations are JSON objects with "path", "op" (replace|add|remove), and
"value". Pass them inline with --ops or from a file with --file.

Example:
  reelplan plan patch 0192f3a1 --ops '[{"path":"characters.CHAR_01.wardrobe_lock","op":"replace","value":"red coat"}]'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			ops, err := loadPatchOps(opts)
			if err != nil {
				return WrapExitError(ExitCommandError, "load patch operations", err)
			}

			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			version, err := a.svc.PatchPlan(cmd.Context(), args[0], ops)
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(map[string]any{"version": version, "ops": len(ops)})
			}
			return f.Success(fmt.Sprintf("Plan patched: version %d (%d ops)", version, len(ops)))
		},
	}

	cmd.Flags().StringVar(&opts.Ops, "ops", "", "patch operations as a JSON array")
	cmd.Flags().StringVar(&opts.File, "file", "", "path to a JSON file with patch operations")
	cmd.MarkFlagsMutuallyExclusive("ops", "file")

	return cmd
}

func loadPatchOps(opts *PlanPatchOptions) ([]patch.Operation, error) {
	raw := []byte(opts.Ops)
	if opts.File != "" {
		var err error
		raw, err = os.ReadFile(opts.File)
		if err != nil {
			return nil, err
		}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no patch operations: pass --ops or --file")
	}
	var ops []patch.Operation
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, fmt.Errorf("invalid patch JSON: %w", err)
	}
	return ops, nil
}

// PlanShowOptions holds flags for plan show.
type PlanShowOptions struct {
	*RootOptions
	Version int64
}

func newPlanShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "show <project-id>",
		Short:         "Print one plan version as JSON",
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

			rec, err := a.st.Get(cmd.Context(), args[0], asset.KindPlan, planStableID, opts.Version)
			if err != nil {
				return f.Fail(err)
			}
			var plan asset.Plan
			if err := json.Unmarshal(rec.Payload, &plan); err != nil {
				return f.Fail(fmt.Errorf("decode plan v%d: %w", rec.Version, err))
			}
			if f.Format == "json" {
				return f.Success(map[string]any{"version": rec.Version, "status": rec.Status, "plan": plan})
			}
			out, err := json.MarshalIndent(plan, "", "  ")
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(string(out))
		},
	}

	cmd.Flags().Int64Var(&opts.Version, "plan-version", 0, "plan version to show (0 = head)")

	return cmd
}
