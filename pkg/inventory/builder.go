package inventory

import (
	"log/slog"
	"regexp"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/strataconf/stratum/internal/logging"
	"github.com/strataconf/stratum/pkg/config"
	"github.com/strataconf/stratum/pkg/hierarchy"
	"github.com/strataconf/stratum/pkg/paramtree"
	"github.com/strataconf/stratum/pkg/ports"
	"github.com/strataconf/stratum/pkg/refs"
)

// Resolver runs the resolution pipeline against one document source and
// one configuration. It caches nothing across calls, so swapping the
// configuration means building a new Resolver.
type Resolver struct {
	cfg    *config.Config
	source ports.DocumentSource
	log    *slog.Logger

	rules    hierarchy.RuleSet
	ignore   []*regexp.Regexp
	nameOpts NameComposition
	merge    paramtree.MergeOptions
}

// NewResolver compiles the configuration's patterns and prepares a
// resolver over source.
func NewResolver(cfg *config.Config, source ports.DocumentSource, log *slog.Logger) (*Resolver, error) {
	if log == nil {
		log = logging.NewNop()
	}
	rules, err := cfg.MappingRules()
	if err != nil {
		return nil, err
	}
	ignore, err := cfg.IgnorePatterns()
	if err != nil {
		return nil, err
	}
	return &Resolver{
		cfg:    cfg,
		source: source,
		log:    log,
		rules:  rules,
		ignore: ignore,
		nameOpts: NameComposition{
			Compose:     cfg.ComposeNodeName,
			LiteralDots: cfg.HasCompatFlag(config.CompatLiteralDots),
		},
		merge: paramtree.MergeOptions{AllowNoneOverride: cfg.AllowNoneOverride},
	}, nil
}

type discovered struct {
	name NodeName
	doc  *ports.Document
}

// discover enumerates node documents and composes their identities,
// failing on identity collisions.
func (r *Resolver) discover() (map[string]discovered, error) {
	docs, err := r.source.Nodes()
	if err != nil {
		return nil, &DiscoveryError{Err: err}
	}
	byName := make(map[string]discovered, len(docs))
	for _, doc := range docs {
		name := ComposeNodeName(doc.RelPath, r.nameOpts)
		if prev, dup := byName[name.Full]; dup {
			sources := []string{prev.doc.URI, doc.URI}
			sort.Strings(sources)
			return nil, &DiscoveryError{Node: name.Full, Sources: sources}
		}
		byName[name.Full] = discovered{name: name, doc: doc}
	}
	return byName, nil
}

// NodeInfo resolves a single node by its full name.
func (r *Resolver) NodeInfo(name string) (*NodeInfo, error) {
	byName, err := r.discover()
	if err != nil {
		return nil, err
	}
	ent, ok := byName[name]
	if !ok {
		return nil, &NodeNotFoundError{Node: name}
	}
	return r.resolveNode(ent, time.Now())
}

// Build resolves every node and assembles the inventory. Nodes resolve
// in parallel; the first failure aborts the build, and no partial
// inventory is ever returned.
func (r *Resolver) Build() (*Inventory, error) {
	byName, err := r.discover()
	if err != nil {
		return nil, err
	}
	now := time.Now()

	names := sortedKeys(byName)
	infos := make([]*NodeInfo, len(names))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	for i, name := range names {
		wg.Add(1)
		go func(i int, ent discovered) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			info, err := r.resolveNode(ent, now)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			infos[i] = info
		}(i, byName[name])
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	inv := &Inventory{
		Nodes:        make(map[string]*NodeInfo, len(infos)),
		Classes:      make(map[string][]string),
		Applications: make(map[string][]string),
		Timestamp:    now,
	}
	for _, info := range infos {
		inv.Nodes[info.Name.Full] = info
		for _, c := range info.Classes {
			inv.Classes[c] = append(inv.Classes[c], info.Name.Full)
		}
		for _, a := range info.Applications {
			inv.Applications[a] = append(inv.Applications[a], info.Name.Full)
		}
	}
	for _, nodes := range inv.Classes {
		sort.Strings(nodes)
	}
	for _, nodes := range inv.Applications {
		sort.Strings(nodes)
	}
	r.log.Debug("inventory built", "nodes", len(inv.Nodes), "classes", len(inv.Classes))
	return inv, nil
}

// resolveNode runs hierarchy expansion, merging, and interpolation for
// one node.
func (r *Resolver) resolveNode(ent discovered, now time.Time) (*NodeInfo, error) {
	name, doc := ent.name, ent.doc

	env := doc.Environment
	if env == "" {
		env = r.cfg.Environment
	}

	// Seed the metadata branch before any merge so class entries can
	// reference node identity.
	acc := paramtree.NewMapping()
	acc.Set(MetaKey, metaBranch(name, env))

	subject := name.Short
	if r.cfg.ClassMappingsMatchPath {
		subject = name.Path
	}
	entries := append(r.rules.Classes(subject), doc.Classes...)

	h := hierarchy.New(r.source, hierarchy.Options{
		IgnoreClassNotFound:         r.cfg.IgnoreClassNotFound,
		IgnoreClassNotFoundPatterns: r.ignore,
		Merge:                       r.merge,
		Logger:                      r.log.With("node", name.Full),
	})
	res, err := h.Resolve(entries, acc)
	if err != nil {
		return nil, &ResolveError{Node: name.Full, Err: err}
	}

	if err := acc.Merge(doc.Parameters, r.merge); err != nil {
		return nil, &ResolveError{Node: name.Full, Err: err}
	}

	// Re-inject the canonical metadata in case a class shadowed parts
	// of it; the branch is referenceable but never interpolated.
	acc.Set(MetaKey, metaBranch(name, env))

	ip := refs.NewInterpolator(acc)
	ip.MarkResolved(MetaKey)
	if err := ip.Run(); err != nil {
		return nil, &ResolveError{Node: name.Full, Err: err}
	}

	return &NodeInfo{
		Name:         name,
		Environment:  env,
		URI:          doc.URI,
		Classes:      res.Classes,
		Applications: hierarchy.ApplyApplications(res.Applications, doc.Applications),
		Parameters:   acc,
		Timestamp:    now,
	}, nil
}
