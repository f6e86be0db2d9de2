// Package continuity validates a shot plan against the plan it was derived
// from and repairs the issues that have exactly one authoritative fix.
//
// Validation is a pure pass over the shot sequence. Findings are data, not
// errors: a semantically broken but structurally valid shot plan yields a
// list of ContinuityIssue values. Only structural failures (duplicate shot
// ids, missing scene ids, empty locks) abort with SchemaError, since the
// semantic checks are meaningless against such input.
//
// All text comparison is exact substring matching over NFC-normalized,
// case-folded strings. There is no semantic inference anywhere in this
// package, which keeps validate and repair deterministic and testable.
package continuity
