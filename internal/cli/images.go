package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reelplan/reelplan/internal/asset"
	"github.com/reelplan/reelplan/internal/planner"
)

// NewImagesCommand creates the images command group.
func NewImagesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Generate and revise storyboard images",
	}
	cmd.AddCommand(newImagesGenerateCommand(rootOpts))
	cmd.AddCommand(newImagesAcceptCommand(rootOpts))
	cmd.AddCommand(newImagesActionCommand(rootOpts, planner.ActionEdit))
	cmd.AddCommand(newImagesActionCommand(rootOpts, planner.ActionRegenerate))
	return cmd
}

func newImagesGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &ScopeFlags{}

	cmd := &cobra.Command{
		Use:   "generate <project-id>",
		Short: "Render every image the scope targets",
		Long: `Render every image the scope targets and commit each as a new version of
its stable id: style frame, character and location references, and per-shot
frames.

Example:
  reelplan images generate 0192f3a1 --scope shot --shot S003`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			sc, err := flags.parse()
			if err != nil {
				return WrapExitError(ExitCommandError, "parse scope", err)
			}

			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			refs, err := a.svc.GenerateImages(cmd.Context(), args[0], sc)
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(refs)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Images generated: %d", len(refs))
			for _, id := range sortedMapKeys(refs) {
				fmt.Fprintf(&b, "\n  %s -> %s", id, refs[id])
			}
			return f.Success(b.String())
		},
	}

	flags.register(cmd)

	return cmd
}

func newImagesAcceptCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "accept <project-id> <image-id>",
		Short: "Accept the head version of an image",
		Long: `Mark the head version of an image as accepted. Accepting never creates a
new version, and accepting twice is a no-op.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			version, err := a.svc.ApplyImageAction(cmd.Context(), args[0], args[1], planner.ActionAccept, asset.LockProfile{}, "")
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(map[string]any{"image": args[1], "version": version, "status": asset.StatusAccepted})
			}
			return f.Success(fmt.Sprintf("Accepted %s version %d", args[1], version))
		},
	}
}

// ImageActionOptions holds flags for images edit and images regenerate.
type ImageActionOptions struct {
	*RootOptions
	Feedback string
	Lock     asset.LockProfile
}

// newImagesActionCommand builds the edit or regenerate subcommand; the two
// share their lock-profile flags and differ in feedback handling.
func newImagesActionCommand(rootOpts *RootOptions, action planner.ImageAction) *cobra.Command {
	opts := &ImageActionOptions{RootOptions: rootOpts}

	short := "Regenerate an image under a merged lock profile"
	if action == planner.ActionEdit {
		short = "Edit an image with natural-language feedback"
	}

	cmd := &cobra.Command{
		Use:   string(action) + " <project-id> <image-id>",
		Short: short,
		Long: short + `.

The requested lock profile is merged with the image's implicit defaults
before the backend is called; an element that is both banned and must-keep
fails the command with no new version.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			version, err := a.svc.ApplyImageAction(cmd.Context(), args[0], args[1], action, opts.Lock, opts.Feedback)
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(map[string]any{"image": args[1], "version": version})
			}
			return f.Success(fmt.Sprintf("Committed %s version %d", args[1], version))
		},
	}

	if action == planner.ActionEdit {
		cmd.Flags().StringVar(&opts.Feedback, "feedback", "", "natural-language edit instruction (required)")
		_ = cmd.MarkFlagRequired("feedback")
	}

	cmd.Flags().BoolVar(&opts.Lock.PreserveIdentity, "preserve-identity", false, "keep character identity")
	cmd.Flags().BoolVar(&opts.Lock.PreserveWardrobe, "preserve-wardrobe", false, "keep wardrobe")
	cmd.Flags().BoolVar(&opts.Lock.PreserveStyle, "preserve-style", false, "keep visual style")
	cmd.Flags().BoolVar(&opts.Lock.PreserveCamera, "preserve-camera", false, "keep camera framing")
	cmd.Flags().BoolVar(&opts.Lock.PreservePose, "preserve-pose", false, "keep subject pose")
	cmd.Flags().BoolVar(&opts.Lock.PreserveLocationLayout, "preserve-layout", false, "keep location layout")
	cmd.Flags().BoolVar(&opts.Lock.PreserveTimeOfDay, "preserve-time", false, "keep time of day")
	cmd.Flags().StringSliceVar(&opts.Lock.BannedElements, "ban", nil, "elements that must not appear")
	cmd.Flags().StringSliceVar(&opts.Lock.MustKeepElements, "keep", nil, "elements that must stay")

	return cmd
}
