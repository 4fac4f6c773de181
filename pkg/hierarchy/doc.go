// Package hierarchy expands a node's declared classes into an ordered,
// deduplicated class list, folding each class's parameters and
// applications into the node's merge context along the way.
//
// Classes form a directed include graph. The walk is depth-first: a
// class's own includes merge before the class itself, so descendants
// override ancestors. Revisiting a class through a second include path is
// a no-op; revisiting a class that is still on the walk stack is a cycle
// and fails.
package hierarchy
