// Package prompt deterministically composes image generation prompts from
// plan metadata. There is no model call anywhere in here; given the same
// plan, shot and lock profile the builders always return the same text,
// which keeps image provenance reproducible.
package prompt
