// Package redis implements ports.DocumentSource over a Redis database.
//
// Documents live in two hashes: <prefix>nodes keyed by the node's
// relative path (extension already stripped) and <prefix>classes keyed
// by the canonical dotted class name. Hash values are the raw YAML
// documents. The source snapshots both hashes eagerly so one resolution
// run sees a single consistent document set.
package redis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	backend "github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/strataconf/stratum/pkg/paramtree"
	"github.com/strataconf/stratum/pkg/ports"
)

// Scheme prefixes discovery URIs held in a Redis database.
const Scheme = "redis://"

// Source is a snapshot of the node and class hashes.
type Source struct {
	nodes   []*ports.Document
	classes map[string]*ports.Document
}

type options struct {
	prefix string
}

type Option func(*options)

// WithPrefix sets the key prefix for the node and class hashes.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// New connects to uri (a redis:// URL), snapshots the document hashes,
// and closes the connection.
func New(ctx context.Context, uri string, opts ...Option) (*Source, error) {
	ropts, err := backend.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parsing redis uri %q: %w", uri, err)
	}
	client := backend.NewClient(ropts)
	defer client.Close()
	return NewFromClient(ctx, client, opts...)
}

// NewFromClient snapshots the document hashes using an existing client.
// The client is not closed.
func NewFromClient(ctx context.Context, client *backend.Client, opts ...Option) (*Source, error) {
	o := options{prefix: "stratum:"}
	for _, opt := range opts {
		opt(&o)
	}

	addr := client.Options().Addr
	s := &Source{classes: make(map[string]*ports.Document)}

	rawNodes, err := client.HGetAll(ctx, o.prefix+"nodes").Result()
	if err != nil {
		return nil, fmt.Errorf("reading node hash: %w", err)
	}
	for relPath, raw := range rawNodes {
		doc, err := parseDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", relPath, err)
		}
		doc.RelPath = relPath
		doc.URI = documentURI(addr, o.prefix+"nodes", relPath)
		s.nodes = append(s.nodes, doc)
	}
	sort.Slice(s.nodes, func(i, j int) bool { return s.nodes[i].RelPath < s.nodes[j].RelPath })

	rawClasses, err := client.HGetAll(ctx, o.prefix+"classes").Result()
	if err != nil {
		return nil, fmt.Errorf("reading class hash: %w", err)
	}
	for name, raw := range rawClasses {
		doc, err := parseDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", name, err)
		}
		doc.RelPath = strings.ReplaceAll(name, ".", "/")
		doc.URI = documentURI(addr, o.prefix+"classes", name)
		s.classes[name] = doc
	}

	return s, nil
}

// Nodes returns the node documents ordered by relative path.
func (s *Source) Nodes() ([]*ports.Document, error) {
	return s.nodes, nil
}

// Class returns the class document for a canonical dotted name.
func (s *Source) Class(name string) (*ports.Document, error) {
	doc, ok := s.classes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrClassNotFound, name)
	}
	return doc, nil
}

func parseDocument(raw string) (*ports.Document, error) {
	var doc ports.Document
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	if doc.Parameters == nil {
		doc.Parameters = paramtree.NewMapping()
	}
	return &doc, nil
}

func documentURI(addr, hash, field string) string {
	return fmt.Sprintf("%s%s/%s/%s", Scheme, addr, hash, field)
}
