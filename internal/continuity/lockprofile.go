package continuity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reelplan/reelplan/internal/asset"
)

// ConflictingLockError reports an element that a merged lock profile both
// bans and requires. The conflict is surfaced to the caller rather than
// silently resolved in either direction.
type ConflictingLockError struct {
	Element string
}

func (e *ConflictingLockError) Error() string {
	return fmt.Sprintf("lock conflict: %q is both banned and must-keep", e.Element)
}

// IsConflictingLock reports whether err is a ConflictingLockError.
func IsConflictingLock(err error) bool {
	var ce *ConflictingLockError
	return errors.As(err, &ce)
}

var wardrobeHints = []string{"wearing", "wardrobe", "outfit", "costume", "dressed", "uniform"}

var timeHints = []string{"day", "night", "dawn", "dusk", "morning", "evening", "noon", "sunset", "sunrise"}

// DeriveDefaults builds the implicit lock profile a shot's continuity lock
// text implies. Any non-empty lock preserves identity and style; wardrobe
// and time-of-day preservation switch on only when the lock text actually
// talks about them. Derivation is keyword matching over normalized text,
// consistent with the rest of the engine.
func DeriveDefaults(continuityLock string) asset.LockProfile {
	lock := normalize(continuityLock)
	if strings.TrimSpace(lock) == "" {
		return asset.LockProfile{}
	}
	p := asset.LockProfile{
		PreserveIdentity: true,
		PreserveStyle:    true,
	}
	for _, hint := range wardrobeHints {
		if strings.Contains(lock, hint) {
			p.PreserveWardrobe = true
			break
		}
	}
	for _, hint := range timeHints {
		if strings.Contains(lock, hint) {
			p.PreserveTimeOfDay = true
			break
		}
	}
	return p
}

// Merge combines a shot's implicit lock defaults with a requested profile.
// Boolean flags merge toward preservation: if either side preserves, the
// result preserves. Element sets are unioned. An element present in both
// the banned and must-keep sets fails with ConflictingLockError.
func Merge(defaults, requested asset.LockProfile) (asset.LockProfile, error) {
	merged := asset.LockProfile{
		PreserveIdentity:       defaults.PreserveIdentity || requested.PreserveIdentity,
		PreserveWardrobe:       defaults.PreserveWardrobe || requested.PreserveWardrobe,
		PreserveStyle:          defaults.PreserveStyle || requested.PreserveStyle,
		PreserveCamera:         defaults.PreserveCamera || requested.PreserveCamera,
		PreservePose:           defaults.PreservePose || requested.PreservePose,
		PreserveLocationLayout: defaults.PreserveLocationLayout || requested.PreserveLocationLayout,
		PreserveTimeOfDay:      defaults.PreserveTimeOfDay || requested.PreserveTimeOfDay,
		BannedElements:         unionElements(defaults.BannedElements, requested.BannedElements),
		MustKeepElements:       unionElements(defaults.MustKeepElements, requested.MustKeepElements),
	}

	banned := make(map[string]bool, len(merged.BannedElements))
	for _, e := range merged.BannedElements {
		banned[normalize(e)] = true
	}
	for _, e := range merged.MustKeepElements {
		if banned[normalize(e)] {
			return asset.LockProfile{}, &ConflictingLockError{Element: e}
		}
	}
	return merged, nil
}

// unionElements merges two element lists preserving first-seen order and
// dropping normalized duplicates.
func unionElements(a, b []string) []string {
	var out []string
	seen := make(map[string]bool, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, e := range list {
			key := normalize(e)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, e)
		}
	}
	return out
}
