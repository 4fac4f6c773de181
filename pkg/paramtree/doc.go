// Package paramtree defines the recursive value model used for class and
// node parameters, and the merge algebra that combines parameter trees.
//
// A Value is a tagged variant: null, bool, number, string, sequence, or
// mapping. Mappings preserve insertion order, which is semantically
// relevant: merge order determines override winners, and the inventory
// output must be deterministic.
//
// Merging dispatches purely on the runtime tags of the two operands.
// Two special key prefixes alter merge behavior: "~" replaces the target
// value outright instead of merging, and "=" marks a key as constant so
// that any later attempt to overwrite it fails.
package paramtree
