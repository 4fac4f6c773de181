package hierarchy

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/strataconf/stratum/internal/logging"
	"github.com/strataconf/stratum/pkg/paramtree"
	"github.com/strataconf/stratum/pkg/ports"
	"github.com/strataconf/stratum/pkg/refs"
)

// Options tune how the class graph is expanded.
type Options struct {
	// IgnoreClassNotFound downgrades missing classes from an error to a
	// skip. When Patterns is non-empty only matching names are skipped.
	IgnoreClassNotFound bool
	// IgnoreClassNotFoundPatterns restricts IgnoreClassNotFound to class
	// names matching at least one pattern.
	IgnoreClassNotFoundPatterns []*regexp.Regexp
	// Merge is applied when folding class parameters into the context.
	Merge paramtree.MergeOptions
	// Logger receives skip notices. Nil means silent.
	Logger *slog.Logger
}

// Result is the outcome of expanding one node's class graph.
type Result struct {
	// Classes in merge order: a class appears after its own includes and
	// only once. Entries that could not be resolved past their
	// placeholders keep their literal spelling.
	Classes []string
	// Applications collected from all merged classes, first-seen order,
	// after "~name" removals.
	Applications []string
}

// Resolver expands class include graphs against a document source.
type Resolver struct {
	source ports.DocumentSource
	opts   Options
	log    *slog.Logger
}

// New builds a resolver over source.
func New(source ports.DocumentSource, opts Options) *Resolver {
	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}
	return &Resolver{source: source, opts: opts, log: log}
}

// Resolve expands the given class entries depth-first, merging every
// reached class's parameters into acc. Entries are processed in order;
// acc must already hold anything class-name references should see.
func (r *Resolver) Resolve(entries []string, acc *paramtree.Mapping) (*Result, error) {
	w := &walker{
		r:        r,
		acc:      acc,
		merged:   make(map[string]struct{}),
		stack:    make(map[string]struct{}),
		recorded: make(map[string]struct{}),
	}
	if err := w.processEntries(entries, ""); err != nil {
		return nil, err
	}
	return &Result{Classes: w.classes, Applications: w.apps}, nil
}

type walker struct {
	r   *Resolver
	acc *paramtree.Mapping

	merged   map[string]struct{} // classes whose parameters are folded in
	stack    map[string]struct{} // classes currently being expanded
	order    []string            // stack in insertion order, for cycle reports
	recorded map[string]struct{} // names already in the classes list

	classes []string
	apps    []string
}

func (w *walker) processEntries(entries []string, context string) error {
	for _, entry := range entries {
		if err := w.processEntry(entry, context); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) processEntry(entry, context string) error {
	display := entry
	name := entry

	if refs.HasRef(entry) {
		resolved, ok, err := w.r.resolveName(entry, w.acc)
		if err != nil {
			return err
		}
		if !ok {
			// The placeholder points at a value no merged class has
			// contributed yet. Record the literal entry and move on.
			w.record(display)
			return nil
		}
		name = resolved
	}
	name = absClassName(name, context)

	if _, done := w.merged[name]; done {
		return nil
	}
	if _, busy := w.stack[name]; busy {
		return &CycleError{Class: name, Stack: append([]string(nil), w.order...)}
	}

	doc, err := w.r.source.Class(name)
	if err != nil {
		if errors.Is(err, ports.ErrClassNotFound) {
			if w.r.ignorable(name) {
				w.r.log.Warn("ignoring missing class", "class", name)
				w.record(display)
				return nil
			}
			return &ClassNotFoundError{Class: name, Context: context}
		}
		return fmt.Errorf("loading class %q: %w", name, err)
	}

	w.stack[name] = struct{}{}
	w.order = append(w.order, name)
	err = w.processEntries(doc.Classes, name)
	delete(w.stack, name)
	w.order = w.order[:len(w.order)-1]
	if err != nil {
		return err
	}

	w.merged[name] = struct{}{}
	w.record(display)
	if err := w.acc.Merge(doc.Parameters, w.r.opts.Merge); err != nil {
		return fmt.Errorf("merging class %q: %w", name, err)
	}
	w.collectApps(doc.Applications)
	return nil
}

func (w *walker) record(name string) {
	if _, dup := w.recorded[name]; dup {
		return
	}
	w.recorded[name] = struct{}{}
	w.classes = append(w.classes, name)
}

func (w *walker) collectApps(apps []string) {
	w.apps = ApplyApplications(w.apps, apps)
}

// ApplyApplications folds an applications declaration into an existing
// list: new names append in first-seen order, duplicates are dropped, and
// a "~" prefix removes the named application if present.
func ApplyApplications(existing, updates []string) []string {
	for _, a := range updates {
		if removed, ok := strings.CutPrefix(a, "~"); ok {
			for i, have := range existing {
				if have == removed {
					existing = append(existing[:i], existing[i+1:]...)
					break
				}
			}
			continue
		}
		dup := false
		for _, have := range existing {
			if have == a {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, a)
		}
	}
	return existing
}

// resolveName interpolates placeholders in a class entry against a
// snapshot of the merge context. The second result is false when the
// entry cannot be resolved yet.
func (r *Resolver) resolveName(entry string, acc *paramtree.Mapping) (string, bool, error) {
	v, err := refs.NewInterpolator(acc.Clone()).ResolveString(entry)
	if err != nil {
		var notFound *refs.NotFoundError
		var cycle *refs.CycleError
		if errors.As(err, &notFound) || errors.As(err, &cycle) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("class entry %q: %w", entry, err)
	}
	return v.FlatString(), true, nil
}

func (r *Resolver) ignorable(name string) bool {
	if !r.opts.IgnoreClassNotFound {
		return false
	}
	if len(r.opts.IgnoreClassNotFoundPatterns) == 0 {
		return true
	}
	for _, p := range r.opts.IgnoreClassNotFoundPatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// absClassName resolves a dot-relative class entry against the class that
// included it. One leading dot means the same package as the including
// class; each further dot pops one package level, clamped at the root.
func absClassName(entry, context string) string {
	if !strings.HasPrefix(entry, ".") {
		return entry
	}
	var base []string
	if context != "" {
		base = strings.Split(context, ".")
		base = base[:len(base)-1]
	}
	i := 1
	for i < len(entry) && entry[i] == '.' {
		if len(base) > 0 {
			base = base[:len(base)-1]
		}
		i++
	}
	rest := entry[i:]
	if len(base) == 0 {
		return rest
	}
	return strings.Join(base, ".") + "." + rest
}
