// Package refs parses and resolves ${...} references inside parameter
// values.
//
// A reference names another location in the parameter tree by its
// dot-separated path. A string that consists of exactly one reference
// resolves to the referenced value with its type intact; a reference
// embedded in a larger string is flattened into the string. References
// nest: the path of a reference may itself be produced by resolving inner
// references. "\${" escapes the opening delimiter, and "\\" before "${"
// yields a literal backslash followed by a live reference.
//
// Resolution is lazy and memoized: each tree position is interpolated at
// most once, reference chains are followed on demand, and a chain that
// revisits a position in flight is reported as a loop.
package refs
