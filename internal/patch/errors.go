package patch

import (
	"errors"
	"fmt"
)

// InvalidPathError reports a patch path that does not resolve against the
// plan: a missing intermediate segment, an out-of-range index, an op applied
// to the wrong shape, or a malformed path string.
type InvalidPathError struct {
	Path    string
	Message string
}

func (e *InvalidPathError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid path: %s", e.Message)
	}
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Message)
}

// IsInvalidPath reports whether err is an InvalidPathError.
func IsInvalidPath(err error) bool {
	var pe *InvalidPathError
	return errors.As(err, &pe)
}

// DanglingReferenceError reports a removal that would leave a scene's
// character or location refs unresolved. The referencing scene must drop its
// ref first, which may happen earlier in the same patch list.
type DanglingReferenceError struct {
	SceneID  string
	RefKind  string // "character" | "location"
	EntityID string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("scene %s still references %s %q", e.SceneID, e.RefKind, e.EntityID)
}

// IsDanglingReference reports whether err is a DanglingReferenceError.
func IsDanglingReference(err error) bool {
	var de *DanglingReferenceError
	return errors.As(err, &de)
}
