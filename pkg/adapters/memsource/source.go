// Package memsource implements ports.DocumentSource over in-memory YAML
// snippets. It backs tests and embedded use where no inventory directory
// exists on disk.
package memsource

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/strataconf/stratum/pkg/paramtree"
	"github.com/strataconf/stratum/pkg/ports"
)

// Source serves node and class documents parsed from strings.
type Source struct {
	nodes   map[string]*ports.Document // keyed by relative path
	classes map[string]*ports.Document // keyed by dotted class name
}

// New creates an empty source.
func New() *Source {
	return &Source{
		nodes:   make(map[string]*ports.Document),
		classes: make(map[string]*ports.Document),
	}
}

// AddNode parses src as a node document stored under relPath (without
// extension, e.g. "prod/web01").
func (s *Source) AddNode(relPath, src string) error {
	doc, err := parse("memory://nodes/"+relPath, relPath, src)
	if err != nil {
		return fmt.Errorf("node %q: %w", relPath, err)
	}
	s.nodes[relPath] = doc
	return nil
}

// AddClass parses src as a class document under the dotted class name.
func (s *Source) AddClass(name, src string) error {
	doc, err := parse("memory://classes/"+name, name, src)
	if err != nil {
		return fmt.Errorf("class %q: %w", name, err)
	}
	s.classes[name] = doc
	return nil
}

// Nodes returns all node documents ordered by relative path.
func (s *Source) Nodes() ([]*ports.Document, error) {
	paths := make([]string, 0, len(s.nodes))
	for p := range s.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	out := make([]*ports.Document, len(paths))
	for i, p := range paths {
		out[i] = s.nodes[p]
	}
	return out, nil
}

// Class returns the class document stored under name.
func (s *Source) Class(name string) (*ports.Document, error) {
	doc, ok := s.classes[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ports.ErrClassNotFound)
	}
	return doc, nil
}

func parse(uri, relPath, src string) (*ports.Document, error) {
	doc := &ports.Document{}
	if err := yaml.Unmarshal([]byte(src), doc); err != nil {
		return nil, err
	}
	if doc.Parameters == nil {
		// Empty documents never reach the custom unmarshaller.
		doc.Parameters = paramtree.NewMapping()
	}
	doc.URI = uri
	doc.RelPath = relPath
	return doc, nil
}

var _ ports.DocumentSource = (*Source)(nil)
