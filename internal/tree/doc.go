// Package tree provides a generic JSON value tree for patch evaluation.
//
// Patch paths address deeply nested, dynamically shaped plan data. Rather
// than reflecting over typed structs, the patch engine decodes a payload into
// this tree, applies accessor sequences against it, and re-encodes. The value
// types are a closed set: Null, String, Int, Bool, Array, Object.
//
// Numbers are int64 only. Plan payloads carry no fractional numbers, and
// keeping the tree float-free makes marshaling round-trips exact.
package tree
