package hierarchy

import (
	"fmt"
	"strings"
)

// ClassNotFoundError reports a class name that resolved to no document
// and was not covered by the ignore settings.
type ClassNotFoundError struct {
	// Class is the resolved class name that failed to load.
	Class string
	// Context is the class whose include list named it, empty when the
	// node itself did.
	Context string
}

func (e *ClassNotFoundError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("class %q included by %q not found", e.Class, e.Context)
	}
	return fmt.Sprintf("class %q not found", e.Class)
}

// CycleError reports a class include loop: a class was encountered again
// while its own include subtree was still being expanded.
type CycleError struct {
	// Class is the repeated class.
	Class string
	// Stack is the include chain from the node down to the repeat.
	Stack []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("class hierarchy cycle at %q (include chain: %s)",
		e.Class, strings.Join(append(append([]string(nil), e.Stack...), e.Class), " -> "))
}
