package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/reelplan/reelplan/internal/asset"
	"github.com/reelplan/reelplan/internal/continuity"
	"github.com/reelplan/reelplan/internal/patch"
	"github.com/reelplan/reelplan/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // successful execution
	ExitFailure      = 1 // domain failure (schema rejection, write conflict, lock conflict)
	ExitCommandError = 2 // command error (unknown project, bad flags, database problems)
)

// ExitError carries a specific exit code out of a command's RunE.
type ExitError struct {
	Code     int
	Message  string
	Err      error // underlying error (optional)
	Rendered bool  // true when the formatter already printed it
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that never went
// through an ExitError are classified by their domain type.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	code, _ := classify(err)
	return code
}

// classify maps domain errors to an exit code and a stable machine-readable
// error code for JSON output. Unknown errors map to (ExitFailure, "internal").
func classify(err error) (int, string) {
	switch {
	case asset.IsNotFound(err):
		return ExitCommandError, "not_found"
	case asset.IsSchemaError(err):
		return ExitFailure, "schema_error"
	case store.IsConcurrentWrite(err):
		return ExitFailure, "concurrent_write"
	case continuity.IsConflictingLock(err):
		return ExitFailure, "conflicting_lock"
	case patch.IsInvalidPath(err):
		return ExitFailure, "invalid_patch_path"
	case patch.IsDanglingReference(err):
		return ExitFailure, "dangling_reference"
	default:
		return ExitFailure, "internal"
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the JSON envelope every command emits in json format.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success outputs a successful result in the configured format. In text
// format, data is printed as-is, so commands pass pre-rendered strings.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Fail renders err in the configured format and returns an ExitError so the
// process exits with the matching code. Commands end with `return f.Fail(err)`.
func (f *OutputFormatter) Fail(err error) error {
	code, errCode := classify(err)
	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: errCode, Message: err.Error()},
		})
	} else {
		fmt.Fprintf(f.errWriter(), "Error [%s]: %v\n", errCode, err)
	}
	return &ExitError{Code: code, Message: errCode, Err: err, Rendered: true}
}

// VerboseLog outputs a message only when verbose mode is enabled. Goes to
// ErrWriter so json output on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.errWriter(), format+"\n", args...)
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
