// Package planner orchestrates the asset pipeline: scripts become plans,
// plans become shot plans, shot plans become images, and every mutation
// lands in the versioned store as a new immutable version.
//
// Creative work (plan extraction, shot breakdown, feedback interpretation,
// image generation) is delegated to collaborator interfaces. The planner
// never trusts a collaborator result blindly; everything is validated
// before commit, and shot plans additionally pass through the continuity
// engine's validate and repair loop.
package planner
