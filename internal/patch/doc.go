// Package patch applies structured edit operations to plan payloads.
//
// A patch operation addresses a location inside a Plan with a dotted/indexed
// path ("characters[CHAR_01].identity_lock", "scenes[0].summary") and one of
// three ops: replace, add, remove. Paths parse into accessor sequences of
// map keys and sequence indexes which are evaluated against a generic value
// tree, never via reflection over the typed structs.
//
// Apply is atomic: operations run strictly in list order, later operations
// see earlier effects, and any single failure aborts the whole call leaving
// the input plan unmodified. Removals that would leave a scene's character
// or location refs unresolved are rejected with DanglingReferenceError.
package patch
