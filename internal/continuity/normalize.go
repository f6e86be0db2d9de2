package continuity

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalize puts free text into the canonical form used for all substring
// checks: NFC so composed and decomposed accents compare equal, then
// lower-cased so casing differences do not defeat an exact-text match.
func normalize(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// containsText reports whether needle occurs in haystack after both are
// normalized. An empty needle never matches.
func containsText(haystack, needle string) bool {
	if strings.TrimSpace(needle) == "" {
		return false
	}
	return strings.Contains(normalize(haystack), normalize(needle))
}

// replaceText replaces the first normalized occurrence of old inside s with
// repl, preserving the text around it. Returns s unchanged if old does not
// occur. The result is NFC-normalized.
func replaceText(s, old, repl string) string {
	ns := norm.NFC.String(s)
	no := norm.NFC.String(old)

	idx := strings.Index(ns, no)
	if idx < 0 {
		// Case-insensitive fallback. Lower-casing can change byte lengths in
		// rare scripts; only trust the index when it does not.
		ls, lo := strings.ToLower(ns), strings.ToLower(no)
		if len(ls) != len(ns) || len(lo) != len(no) {
			return s
		}
		idx = strings.Index(ls, lo)
		if idx < 0 {
			return s
		}
	}
	return ns[:idx] + repl + ns[idx+len(no):]
}
