// Package asset provides the payload types for reelplan's versioned assets.
//
// This package contains type definitions only. All other internal packages
// import asset; asset imports nothing internal. This keeps the payload layer
// foundational with no circular dependencies.
//
// Key design constraints:
//   - Every payload is immutable once committed; edits produce new versions.
//   - A stable id names the logical asset; (stable id, version) names one
//     immutable payload. Versions are dense integers starting at 1.
//   - All JSON tags use snake_case.
//   - Scenes reference characters and locations weakly, by entity id. The
//     patch engine enforces that those references always resolve.
package asset
