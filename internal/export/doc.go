// Package export renders committed project state into portable formats:
// a storyboard JSON document combining the active assets, and CSV tables
// for characters and shots. Rendering is pure; callers load the assets.
package export
