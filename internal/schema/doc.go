// Package schema validates asset payloads against CUE schemas before they
// are committed to the versioned store.
//
// The store itself is payload-agnostic; per-kind validation is injected at
// construction time as a set of Validator funcs built here. Each schema is a
// CUE definition embedded in the binary, so a payload that drifts from the
// declared shape fails with SchemaError before any version is written.
package schema
