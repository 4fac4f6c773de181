package paramtree

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the runtime tag of a Value.
type Kind uint8

const (
	// KindNull represents a YAML null value.
	KindNull Kind = iota
	// KindBool represents a boolean value.
	KindBool
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a floating-point value.
	KindFloat
	// KindString represents a string value, which may contain references.
	KindString
	// KindSequence represents an ordered list of values.
	KindSequence
	// KindMapping represents an insertion-ordered mapping of string keys to values.
	KindMapping
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is one position in a parameter tree.
// The zero value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	seq  []Value
	m    *Mapping
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a float.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Seq builds a sequence value from the given elements.
func Seq(elems ...Value) Value {
	return Value{kind: KindSequence, seq: elems}
}

// Map wraps a mapping. A nil mapping is treated as an empty one.
func Map(m *Mapping) Value {
	if m == nil {
		m = NewMapping()
	}
	return Value{kind: KindMapping, m: m}
}

// Kind returns the runtime tag of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload. The second result is false when the
// value is not a bool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// AsFloat returns the float payload.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsSequence returns the sequence payload. Callers must not retain the
// slice across mutations of the tree.
func (v Value) AsSequence() ([]Value, bool) {
	if v.kind != KindSequence {
		return nil, false
	}
	return v.seq, true
}

// AsMapping returns the mapping payload.
func (v Value) AsMapping() (*Mapping, bool) {
	if v.kind != KindMapping {
		return nil, false
	}
	return v.m, true
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	switch v.kind {
	case KindSequence:
		seq := make([]Value, len(v.seq))
		for i, e := range v.seq {
			seq[i] = e.Clone()
		}
		return Value{kind: KindSequence, seq: seq}
	case KindMapping:
		return Value{kind: KindMapping, m: v.m.Clone()}
	default:
		return v
	}
}

// Equal reports deep structural equality, including mapping key order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindSequence:
		if len(v.seq) != len(o.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(o.seq[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		return v.m.Equal(o.m)
	default:
		return false
	}
}

// AsAny converts the value into plain Go types (nil, bool, int64, float64,
// string, []any, map[string]any). Mapping key order is lost; use the YAML
// marshaller when order matters.
func (v Value) AsAny() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.AsAny()
		}
		return out
	case KindMapping:
		out := make(map[string]any, v.m.Len())
		for _, k := range v.m.Keys() {
			e, _ := v.m.Get(k)
			out[k] = e.AsAny()
		}
		return out
	default:
		return nil
	}
}

// FlatString renders the value in the compact single-line form used for
// diagnostics and for references embedded in larger strings. Mappings and
// sequences render as compact JSON preserving key order; scalars render
// bare.
func (v Value) FlatString() string {
	var b strings.Builder
	v.writeFlat(&b, false)
	return b.String()
}

func (v Value) writeFlat(b *strings.Builder, quoted bool) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		b.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindString:
		if quoted {
			b.WriteString(strconv.Quote(v.s))
		} else {
			b.WriteString(v.s)
		}
	case KindSequence:
		b.WriteByte('[')
		for i, e := range v.seq {
			if i > 0 {
				b.WriteByte(',')
			}
			e.writeFlat(b, true)
		}
		b.WriteByte(']')
	case KindMapping:
		b.WriteByte('{')
		for i, k := range v.m.Keys() {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			e, _ := v.m.Get(k)
			e.writeFlat(b, true)
		}
		b.WriteByte('}')
	}
}

// String implements fmt.Stringer using the quoted flat form.
func (v Value) String() string {
	var b strings.Builder
	v.writeFlat(&b, true)
	return b.String()
}
