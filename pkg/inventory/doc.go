// Package inventory orchestrates the resolution pipeline: it discovers
// node documents, expands each node's class hierarchy, merges parameter
// trees, interpolates references, and aggregates the per-node results
// into the global inventory with its class and application indexes.
package inventory
