// Package yamlfs implements ports.DocumentSource over an inventory
// directory tree of YAML files, the classic yaml_fs storage layout: one
// directory of node documents and a disjoint directory of class
// documents, where nested class files get dotted names
// (roles/web.yml -> roles.web).
package yamlfs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/strataconf/stratum/pkg/paramtree"
	"github.com/strataconf/stratum/pkg/ports"
)

// Scheme prefixes every document URI produced by this source.
const Scheme = "yaml_fs://"

var extensions = []string{".yml", ".yaml"}

// Source serves node and class documents from two directory trees. All
// documents load eagerly at construction, so a Source is safe for
// concurrent reads and one Source corresponds to one consistent snapshot.
type Source struct {
	nodes   []*ports.Document
	classes map[string]*ports.Document
}

// New loads every document under the two roots.
func New(nodesRoot, classesRoot string) (*Source, error) {
	s := &Source{classes: make(map[string]*ports.Document)}

	err := walkDocuments(nodesRoot, func(relPath string, doc *ports.Document) error {
		s.nodes = append(s.nodes, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading nodes from %s: %w", nodesRoot, err)
	}

	err = walkDocuments(classesRoot, func(relPath string, doc *ports.Document) error {
		name := strings.ReplaceAll(relPath, "/", ".")
		if prev, dup := s.classes[name]; dup {
			sources := []string{prev.URI, doc.URI}
			sort.Strings(sources)
			return fmt.Errorf("duplicate class %q defined in %s and %s", name, sources[0], sources[1])
		}
		s.classes[name] = doc
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading classes from %s: %w", classesRoot, err)
	}

	sort.Slice(s.nodes, func(i, j int) bool { return s.nodes[i].RelPath < s.nodes[j].RelPath })
	return s, nil
}

// Nodes returns every node document, ordered by relative path.
func (s *Source) Nodes() ([]*ports.Document, error) {
	return s.nodes, nil
}

// Class returns the class document with the given dotted name.
func (s *Source) Class(name string) (*ports.Document, error) {
	doc, ok := s.classes[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ports.ErrClassNotFound)
	}
	return doc, nil
}

// walkDocuments loads every YAML file under root, handing each to fn with
// its extension-less relative path. Dotfiles and dot-directories are
// skipped. A missing root is treated as empty.
func walkDocuments(root string, fn func(relPath string, doc *ports.Document) error) error {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !hasYAMLExt(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))

		doc, err := loadDocument(path, rel)
		if err != nil {
			return err
		}
		return fn(rel, doc)
	})
}

func hasYAMLExt(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func loadDocument(path, relPath string) (*ports.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := &ports.Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if doc.Parameters == nil {
		doc.Parameters = paramtree.NewMapping()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	doc.URI = Scheme + abs
	doc.RelPath = relPath
	return doc, nil
}

var _ ports.DocumentSource = (*Source)(nil)
