package cli

import (
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/reelplan/reelplan/internal/config"
	"github.com/reelplan/reelplan/internal/planner"
	"github.com/reelplan/reelplan/internal/schema"
	"github.com/reelplan/reelplan/internal/store"
)

// Stable ids of the singleton assets every project carries.
const (
	scriptStableID   = "script_main"
	planStableID     = "plan_main"
	shotPlanStableID = "shotplan_main"
)

// app bundles the opened store and planner service a command works against.
// Commands open it in their RunE and close it when done.
type app struct {
	cfg config.Config
	st  *store.Store
	svc *planner.Service
}

// openApp loads configuration, opens the database, and wires the planner
// service with schema validators and a leveled logger.
func openApp(opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.Database != "" {
		cfg.DatabasePath = opts.Database
	}

	validators, err := schema.Validators()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "compile asset schemas", err)
	}

	st, err := store.Open(cfg.DatabasePath, validators)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}

	svc := planner.New(planner.Deps{
		Store:  st,
		Config: cfg,
		Logger: newLogger(cfg.LogLevel, opts.Verbose),
	})
	return &app{cfg: cfg, st: st, svc: svc}, nil
}

func (a *app) Close() {
	if err := a.st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// newLogger builds the process logger. Verbose forces debug regardless of
// the configured level. Logs go to stderr so stdout stays machine-readable.
func newLogger(level string, verbose bool) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func sortedMapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// newFormatter builds the output formatter for one command invocation.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
