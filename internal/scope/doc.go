// Package scope resolves a regeneration or edit scope to the concrete set
// of targets inside a committed plan and shot plan. Resolution is a pure
// function of its inputs; it performs no storage reads of its own.
package scope
