package store

import (
	"errors"
	"fmt"
)

// ConcurrentWriteError reports that another writer advanced the head for the
// same stable id between the caller's read and its write. The caller may
// retry by re-reading the head and re-deriving its base version.
type ConcurrentWriteError struct {
	Kind     string
	StableID string
	Expected int64 // head version the caller based its write on
}

func (e *ConcurrentWriteError) Error() string {
	return fmt.Sprintf("concurrent write on %s %q: head moved past version %d", e.Kind, e.StableID, e.Expected)
}

// IsConcurrentWrite reports whether err is a ConcurrentWriteError.
func IsConcurrentWrite(err error) bool {
	var cw *ConcurrentWriteError
	return errors.As(err, &cw)
}
