package paramtree

import "fmt"

// Key prefixes recognized during merge.
const (
	overridePrefix = '~'
	constantPrefix = '='
)

// MergeOptions control edge cases of the merge algebra.
type MergeOptions struct {
	// AllowNoneOverride permits a null source value to replace a non-null
	// target value. When false, a null source leaves the target intact,
	// protecting against accidental erasure through shared defaults.
	AllowNoneOverride bool
}

// ConflictError is returned when a merge attempts to overwrite a key that
// was declared constant with the "=" prefix.
type ConflictError struct {
	Key string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot overwrite constant key %q", e.Key)
}

// Merge folds src into m in place, key by key in src's order.
//
// The algebra, applied recursively at every tree position:
//   - mapping x mapping merges key-wise.
//   - sequence x sequence concatenates target elements then source elements.
//   - any other combination replaces the target with the source, except
//     that a null source is dropped unless AllowNoneOverride is set.
//   - a "~"-prefixed source key replaces the target value outright, with
//     the prefix stripped from the resulting key.
//   - a "="-prefixed source key is stored under the stripped key and
//     marked constant; a later write to it fails with *ConflictError.
//
// src is not modified; values taken from it are deep-copied so the
// accumulator never aliases source documents.
func (m *Mapping) Merge(src *Mapping, opts MergeOptions) error {
	for _, rawKey := range src.Keys() {
		sv, _ := src.Get(rawKey)
		key, prefix := splitKeyPrefix(rawKey)

		if m.isConstant(key) {
			return &ConflictError{Key: key}
		}

		nv, err := normalizeValue(sv, opts)
		if err != nil {
			return err
		}

		switch {
		case prefix == overridePrefix:
			m.Set(key, nv)
		default:
			if existing, ok := m.Get(key); ok {
				merged, err := mergeValues(existing, nv, opts)
				if err != nil {
					return err
				}
				m.Set(key, merged)
			} else {
				m.Set(key, nv)
			}
		}

		if prefix == constantPrefix || src.isConstant(rawKey) {
			m.markConstant(key)
		}
	}
	return nil
}

// mergeValues combines a source value into a target value, dispatching on
// the runtime tags of both operands.
func mergeValues(target, source Value, opts MergeOptions) (Value, error) {
	if tm, ok := target.AsMapping(); ok {
		if sm, sok := source.AsMapping(); sok {
			if err := tm.Merge(sm, opts); err != nil {
				return Value{}, err
			}
			return target, nil
		}
	}
	if ts, ok := target.AsSequence(); ok {
		if ss, sok := source.AsSequence(); sok {
			out := make([]Value, 0, len(ts)+len(ss))
			out = append(out, ts...)
			out = append(out, ss...)
			return Seq(out...), nil
		}
	}
	if source.IsNull() && !target.IsNull() && !opts.AllowNoneOverride {
		return target, nil
	}
	return source, nil
}

// normalizeValue deep-copies v into accumulator form: mapping subtrees are
// rebuilt through Merge so that key prefixes nested below a new key are
// processed exactly as they would be at the top level.
func normalizeValue(v Value, opts MergeOptions) (Value, error) {
	switch v.Kind() {
	case KindMapping:
		src, _ := v.AsMapping()
		fresh := NewMapping()
		if err := fresh.Merge(src, opts); err != nil {
			return Value{}, err
		}
		return Map(fresh), nil
	case KindSequence:
		src, _ := v.AsSequence()
		out := make([]Value, len(src))
		for i, e := range src {
			ne, err := normalizeValue(e, opts)
			if err != nil {
				return Value{}, err
			}
			out[i] = ne
		}
		return Seq(out...), nil
	default:
		return v, nil
	}
}

// splitKeyPrefix strips a recognized merge prefix from a raw mapping key.
// The second result is zero when no prefix is present.
func splitKeyPrefix(key string) (string, byte) {
	if len(key) > 1 {
		switch key[0] {
		case overridePrefix, constantPrefix:
			return key[1:], key[0]
		}
	}
	return key, 0
}
