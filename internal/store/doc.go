// Package store provides durable versioned storage for project assets.
//
// Every asset write creates a new immutable version; nothing is ever
// overwritten or deleted. A heads table tracks the latest version per
// (project, kind, stable id) and is advanced with a compare-and-swap so
// concurrent writers against the same stable id cannot silently clobber
// each other. The loser receives ConcurrentWriteError and may retry after
// re-reading the head.
//
// Payloads are opaque JSON to the store itself. Per-kind validation is
// injected at Open time as Validator funcs, keeping schema knowledge out
// of the persistence layer.
package store
