package inventory

import "strings"

// NodeName is a node's canonical identity with its four projections.
type NodeName struct {
	// Full is the dotted identity used as the inventory map key.
	Full string
	// Parts are the ordered identity segments.
	Parts []string
	// Path joins the parts with "/" for filesystem-style matching.
	Path string
	// Short is the last part.
	Short string
}

// NameComposition captures the options that shape node identity.
type NameComposition struct {
	// Compose derives identity from the whole storage-relative path
	// instead of just the file name.
	Compose bool
	// LiteralDots additionally treats dots inside a single filename
	// segment as composition separators. Only meaningful with Compose.
	LiteralDots bool
}

// ComposeNodeName derives a node's identity from its storage-relative
// path (extension already stripped).
//
// Without composition the directory part is ignored: the file name is the
// whole identity. With composition every path segment becomes an identity
// part; under the literal-dots compatibility flag, dots inside a segment
// split it into further parts. A path whose first segment starts with "_"
// collapses to its file name regardless, so grouping directories can be
// kept out of identities.
func ComposeNodeName(relPath string, opts NameComposition) NodeName {
	segments := strings.Split(strings.Trim(relPath, "/"), "/")
	short := segments[len(segments)-1]

	if !opts.Compose || strings.HasPrefix(segments[0], "_") {
		return NodeName{Full: short, Parts: []string{short}, Path: short, Short: short}
	}

	parts := segments
	if opts.LiteralDots {
		parts = nil
		for _, seg := range segments {
			parts = append(parts, strings.Split(seg, ".")...)
		}
	}
	return NodeName{
		Full:  strings.Join(parts, "."),
		Parts: parts,
		Path:  strings.Join(parts, "/"),
		Short: parts[len(parts)-1],
	}
}
