package refs

import (
	"fmt"
	"strings"
)

// MaxDepth bounds how many reference hops a single resolution may follow.
// Chains deeper than this are almost certainly runaway indirection.
const MaxDepth = 64

// NotFoundError reports a reference whose path names no position in the
// parameter tree and that carries no fallback.
type NotFoundError struct {
	// Path is the dot-separated path that failed to resolve.
	Path string
	// Ref is the reference expression the path came from.
	Ref string
}

func (e *NotFoundError) Error() string {
	if e.Ref != "" && e.Ref != "${"+e.Path+"}" {
		return fmt.Sprintf("reference %s: path %q not found", e.Ref, e.Path)
	}
	return fmt.Sprintf("reference ${%s} not found", e.Path)
}

// CycleError reports a loop among reference chains. Paths holds every
// position that was in flight when the loop closed, sorted for stable
// output.
type CycleError struct {
	Paths []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("reference loop with reference paths [%s]", strings.Join(e.Paths, ", "))
}

// DepthError reports a reference chain longer than MaxDepth.
type DepthError struct {
	Path string
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("resolving %q: reference chain exceeds maximum depth of %d", e.Path, MaxDepth)
}
