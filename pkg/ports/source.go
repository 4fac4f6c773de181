// Package ports defines the boundary interfaces between the resolution
// core and its collaborators, following a hexagonal layout: the core
// consumes document sources through these interfaces and never touches
// storage or serialization directly.
package ports

import (
	"errors"

	"gopkg.in/yaml.v3"

	"github.com/strataconf/stratum/pkg/paramtree"
)

// ErrClassNotFound is returned by DocumentSource.Class when no class
// document exists under the requested name. Callers decide whether that
// is fatal.
var ErrClassNotFound = errors.New("class not found")

// Document is one raw node or class payload, already parsed but not yet
// resolved.
type Document struct {
	// URI identifies the storage location for diagnostics, e.g.
	// "yaml_fs:///inventory/nodes/web01.yml".
	URI string
	// RelPath is the storage-relative path of the document, without the
	// serialization extension. Node identity is composed from it.
	RelPath string

	Classes      []string
	Applications []string
	Environment  string
	Parameters   *paramtree.Mapping
}

// UnmarshalYAML decodes the recognized top-level keys of a node or class
// document. Absent parameters decode to an empty mapping so callers can
// merge unconditionally.
func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Classes      []string           `yaml:"classes"`
		Applications []string           `yaml:"applications"`
		Environment  string             `yaml:"environment"`
		Parameters   *paramtree.Mapping `yaml:"parameters"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	d.Classes = raw.Classes
	d.Applications = raw.Applications
	d.Environment = raw.Environment
	d.Parameters = raw.Parameters
	if d.Parameters == nil {
		d.Parameters = paramtree.NewMapping()
	}
	return nil
}

// DocumentSource hands raw node and class documents to the resolution
// core. Implementations own discovery and parsing; the core only sees
// parsed trees.
type DocumentSource interface {
	// Nodes enumerates every node document. Order does not matter; the
	// core derives identity and ordering itself.
	Nodes() ([]*Document, error)

	// Class loads one class document by its canonical dotted name.
	// Returns an error wrapping ErrClassNotFound when the name does not
	// exist.
	Class(name string) (*Document, error)
}
