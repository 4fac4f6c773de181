package inventory

import "fmt"

// DiscoveryError reports a problem enumerating node documents, most
// importantly two documents resolving to the same node identity.
type DiscoveryError struct {
	Node string
	// Sources are the URIs of the conflicting documents, sorted.
	Sources []string
	Err     error
}

func (e *DiscoveryError) Error() string {
	if len(e.Sources) == 2 {
		return fmt.Sprintf("duplicate node definition %q in %s and %s", e.Node, e.Sources[0], e.Sources[1])
	}
	return fmt.Sprintf("discovering nodes: %v", e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// NodeNotFoundError reports a single-node query for an unknown identity.
type NodeNotFoundError struct {
	Node string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node %q not found", e.Node)
}

// ResolveError attributes a resolution failure to the node that
// triggered it. The underlying class, merge, or reference error is
// preserved for errors.As.
type ResolveError struct {
	Node string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolving node %q: %v", e.Node, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }
