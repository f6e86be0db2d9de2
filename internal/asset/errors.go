package asset

import (
	"errors"
	"fmt"
)

// SchemaError reports a payload that fails basic structural invariants.
// Structural failures abort the mutation before semantic checks run, since
// those checks are meaningless against malformed data.
type SchemaError struct {
	Kind    Kind
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error (%s): %s", e.Kind, e.Message)
}

// IsSchemaError reports whether err is a SchemaError, unwrapping as needed.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// NotFoundError reports a lookup of an unknown project, stable id, version,
// scene, shot, or scope target. Not retryable without caller correction.
type NotFoundError struct {
	Resource string // "project", "plan", "scene", "shot", ...
	ID       string
	Version  int64 // 0 when the lookup was not version-qualified
}

func (e *NotFoundError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("%s %q version %d not found", e.Resource, e.ID, e.Version)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// IsNotFound reports whether err is a NotFoundError, unwrapping as needed.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
