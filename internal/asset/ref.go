package asset

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	shotIDPattern  = regexp.MustCompile(`^S\d{3,}$`)
	sceneIDPattern = regexp.MustCompile(`^SC\d{3,}$`)
)

// ValidShotID reports whether id has the canonical shot id form (S001, ...).
func ValidShotID(id string) bool {
	return shotIDPattern.MatchString(id)
}

// ValidSceneID reports whether id has the canonical scene id form (SC001, ...).
func ValidSceneID(id string) bool {
	return sceneIDPattern.MatchString(id)
}

// BuildRef builds a versioned asset reference from a stable id and version.
// The form is <stable_id>_v<version>, e.g. "plan_8f2a_v3".
func BuildRef(stableID string, version int64) string {
	return fmt.Sprintf("%s_v%d", stableID, version)
}

// ParseRef splits a versioned asset reference into stable id and version.
// A reference without a version suffix names version 1.
func ParseRef(ref string) (stableID string, version int64) {
	idx := strings.LastIndex(ref, "_v")
	if idx > 0 {
		n, err := strconv.ParseInt(ref[idx+2:], 10, 64)
		if err == nil && n > 0 {
			return ref[:idx], n
		}
	}
	return ref, 1
}
