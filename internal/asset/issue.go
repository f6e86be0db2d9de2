package asset

// IssueSeverity grades a continuity issue. Errors should block activation of
// the shot plan version they were computed against; warnings are surfaced
// for review without blocking.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// IssueKind categorizes continuity issues.
type IssueKind string

const (
	// IssueMissingReference marks an unresolved scene reference or a
	// continuity_lock mention of an entity absent from the shot's scene.
	IssueMissingReference IssueKind = "missing_reference"

	// IssueStateConflict marks a continuity_lock or shot state that
	// contradicts an established lock, detected by exact-text comparison.
	IssueStateConflict IssueKind = "state_conflict"

	// IssueLockViolation marks a must-keep element missing from an image's
	// prompt trace. Never auto-repaired.
	IssueLockViolation IssueKind = "lock_violation"
)

// ContinuityIssue is one finding from continuity validation. Issues are data,
// not errors: validation reports them and lets the caller decide whether to
// block. The full issue list is persisted alongside the ShotPlan version it
// was computed against.
type ContinuityIssue struct {
	Severity     IssueSeverity `json:"severity"`
	Kind         IssueKind     `json:"kind"`
	Location     string        `json:"location"` // shot id or entity id
	Description  string        `json:"description"`
	AutoRepaired bool          `json:"auto_repaired"`
}
