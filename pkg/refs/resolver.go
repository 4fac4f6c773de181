package refs

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/strataconf/stratum/pkg/paramtree"
)

// Interpolator resolves references inside a parameter tree in place.
// Resolution is memoized per tree position; an Interpolator is good for
// one tree and is not safe for concurrent use.
type Interpolator struct {
	root     *paramtree.Mapping
	resolved map[string]struct{}
	inFlight map[string]struct{}
	depth    int
}

// NewInterpolator prepares an interpolator over root.
func NewInterpolator(root *paramtree.Mapping) *Interpolator {
	return &Interpolator{
		root:     root,
		resolved: make(map[string]struct{}),
		inFlight: make(map[string]struct{}),
	}
}

// MarkResolved excludes the dot-separated path, and everything below it,
// from interpolation. Used for subtrees that are injected fully formed.
func (ip *Interpolator) MarkResolved(path string) {
	ip.resolved[posKey(strings.Split(path, "."))] = struct{}{}
}

// Run interpolates every reference in the tree. On success the tree
// contains no live references.
func (ip *Interpolator) Run() error {
	return ip.interpolateMapping(ip.root, nil)
}

// ResolveString resolves references in a standalone string against the
// tree, without mutating it beyond the memoization of referenced
// positions. The result keeps the referenced value's type when the whole
// string is a single reference.
func (ip *Interpolator) ResolveString(s string) (paramtree.Value, error) {
	token, significant, err := Parse(s)
	if err != nil {
		return paramtree.Value{}, err
	}
	if !significant {
		return paramtree.String(s), nil
	}
	return ip.evalToken(token)
}

func (ip *Interpolator) interpolateMapping(m *paramtree.Mapping, prefix []string) error {
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		nv, changed, err := ip.interpolateValue(v, childPath(prefix, k))
		if err != nil {
			return err
		}
		if changed {
			m.Set(k, nv)
		}
	}
	return nil
}

func (ip *Interpolator) interpolateValue(v paramtree.Value, path []string) (paramtree.Value, bool, error) {
	if ip.isResolved(path) {
		return v, false, nil
	}
	key := posKey(path)

	switch v.Kind() {
	case paramtree.KindString:
		s, _ := v.AsString()
		return ip.interpolateString(s, key)
	case paramtree.KindSequence:
		seq, _ := v.AsSequence()
		for i, e := range seq {
			ne, changed, err := ip.interpolateValue(e, childPath(path, strconv.Itoa(i)))
			if err != nil {
				return paramtree.Value{}, false, err
			}
			if changed {
				seq[i] = ne
			}
		}
		ip.resolved[key] = struct{}{}
		return v, false, nil
	case paramtree.KindMapping:
		m, _ := v.AsMapping()
		if err := ip.interpolateMapping(m, path); err != nil {
			return paramtree.Value{}, false, err
		}
		ip.resolved[key] = struct{}{}
		return v, false, nil
	default:
		return v, false, nil
	}
}

func (ip *Interpolator) interpolateString(s, key string) (paramtree.Value, bool, error) {
	if _, busy := ip.inFlight[key]; busy {
		return paramtree.Value{}, false, ip.cycleError()
	}

	token, significant, err := Parse(s)
	if err != nil {
		return paramtree.Value{}, false, err
	}
	if !significant {
		ip.resolved[key] = struct{}{}
		return paramtree.String(s), false, nil
	}

	ip.depth++
	if ip.depth > MaxDepth {
		ip.depth--
		return paramtree.Value{}, false, &DepthError{Path: key}
	}
	ip.inFlight[key] = struct{}{}

	out, err := ip.evalToken(token)

	delete(ip.inFlight, key)
	ip.depth--
	if err != nil {
		return paramtree.Value{}, false, err
	}
	ip.resolved[key] = struct{}{}
	return out, true, nil
}

// evalToken reduces a token to a value. Bare references keep the type of
// the value they name; everything else evaluates to a string.
func (ip *Interpolator) evalToken(t Token) (paramtree.Value, error) {
	switch t.kind {
	case tokenLiteral:
		return paramtree.String(t.text), nil
	case tokenRef:
		return ip.evalRef(t)
	default:
		var b strings.Builder
		for _, p := range t.parts {
			v, err := ip.evalToken(p)
			if err != nil {
				return paramtree.Value{}, err
			}
			b.WriteString(v.FlatString())
		}
		return paramtree.String(b.String()), nil
	}
}

func (ip *Interpolator) evalRef(t Token) (paramtree.Value, error) {
	var b strings.Builder
	for _, p := range t.parts {
		v, err := ip.evalToken(p)
		if err != nil {
			return paramtree.Value{}, err
		}
		b.WriteString(v.FlatString())
	}
	path := b.String()

	val, err := ip.lookup(strings.Split(path, "."))
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			if t.hasFall {
				return ip.evalToken(assemble(t.fallback))
			}
			notFound.Ref = t.describe()
		}
		return paramtree.Value{}, err
	}
	return val.Clone(), nil
}

// lookup walks root along segments, interpolating string positions on the
// way down so chains of references can be followed, and interpolating the
// final value in full before returning it. Segments index mappings by key
// and sequences by decimal position.
func (ip *Interpolator) lookup(segments []string) (paramtree.Value, error) {
	notFound := func() (paramtree.Value, error) {
		return paramtree.Value{}, &NotFoundError{Path: strings.Join(segments, ".")}
	}

	cur := paramtree.Map(ip.root)
	walked := make([]string, 0, len(segments))
	for i, seg := range segments {
		var (
			v  paramtree.Value
			ok bool
		)
		switch cur.Kind() {
		case paramtree.KindMapping:
			m, _ := cur.AsMapping()
			v, ok = m.Get(seg)
		case paramtree.KindSequence:
			seq, _ := cur.AsSequence()
			idx, err := strconv.Atoi(seg)
			if ok = err == nil && idx >= 0 && idx < len(seq); ok {
				v = seq[idx]
			}
		}
		if !ok {
			return notFound()
		}
		walked = append(walked, seg)

		last := i == len(segments)-1
		if last || v.Kind() == paramtree.KindString {
			nv, changed, err := ip.interpolateValue(v, walked)
			if err != nil {
				return paramtree.Value{}, err
			}
			if changed {
				ip.setChild(cur, seg, nv)
				v = nv
			}
		}
		if last {
			return v, nil
		}
		cur = v
	}
	return notFound()
}

func (ip *Interpolator) setChild(container paramtree.Value, seg string, v paramtree.Value) {
	switch container.Kind() {
	case paramtree.KindMapping:
		m, _ := container.AsMapping()
		m.Set(seg, v)
	case paramtree.KindSequence:
		seq, _ := container.AsSequence()
		if idx, err := strconv.Atoi(seg); err == nil && idx >= 0 && idx < len(seq) {
			seq[idx] = v
		}
	}
}

func (ip *Interpolator) cycleError() error {
	paths := make([]string, 0, len(ip.inFlight))
	for p := range ip.inFlight {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return &CycleError{Paths: paths}
}

// isResolved reports whether the position or any of its ancestors has
// been marked resolved; values copied out of a resolved subtree never
// get reparsed.
func (ip *Interpolator) isResolved(path []string) bool {
	var b strings.Builder
	for i, seg := range path {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(escapeSegment(seg))
		if _, ok := ip.resolved[b.String()]; ok {
			return true
		}
	}
	return false
}

// segmentEscaper keeps a literal dot inside a mapping key from colliding
// with the path separator, so the key "a.b" and the nested position
// a -> b memoize independently.
var segmentEscaper = strings.NewReplacer(`\`, `\\`, `.`, `\.`)

func escapeSegment(seg string) string {
	if !strings.ContainsAny(seg, `.\`) {
		return seg
	}
	return segmentEscaper.Replace(seg)
}

// posKey encodes a tree position as a single memoization key.
func posKey(path []string) string {
	if len(path) == 1 {
		return escapeSegment(path[0])
	}
	var b strings.Builder
	for i, seg := range path {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(escapeSegment(seg))
	}
	return b.String()
}

func childPath(prefix []string, seg string) []string {
	p := make([]string, len(prefix)+1)
	copy(p, prefix)
	p[len(prefix)] = seg
	return p
}
