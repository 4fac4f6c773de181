package paramtree

// Mapping is an insertion-ordered map from string keys to values.
// It additionally tracks which keys were declared constant via the "="
// key prefix; constant keys reject later overwrites during merge.
type Mapping struct {
	keys      []string
	vals      map[string]Value
	constKeys map[string]struct{}
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{vals: make(map[string]Value)}
}

// Len returns the number of entries.
func (m *Mapping) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order. The returned slice is shared;
// callers must not modify it.
func (m *Mapping) Keys() []string { return m.keys }

// Get returns the value stored for key.
func (m *Mapping) Get(key string) (Value, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Mapping) Has(key string) bool {
	_, ok := m.vals[key]
	return ok
}

// Set stores a value for key, appending the key if it is new.
func (m *Mapping) Set(key string, v Value) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Delete removes key from the mapping, preserving the order of the
// remaining keys.
func (m *Mapping) Delete(key string) {
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	delete(m.constKeys, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// markConstant records key as constant.
func (m *Mapping) markConstant(key string) {
	if m.constKeys == nil {
		m.constKeys = make(map[string]struct{})
	}
	m.constKeys[key] = struct{}{}
}

// isConstant reports whether key was declared constant.
func (m *Mapping) isConstant(key string) bool {
	_, ok := m.constKeys[key]
	return ok
}

// Clone returns a deep copy of the mapping.
func (m *Mapping) Clone() *Mapping {
	out := &Mapping{
		keys: append([]string(nil), m.keys...),
		vals: make(map[string]Value, len(m.vals)),
	}
	for k, v := range m.vals {
		out.vals[k] = v.Clone()
	}
	if len(m.constKeys) > 0 {
		out.constKeys = make(map[string]struct{}, len(m.constKeys))
		for k := range m.constKeys {
			out.constKeys[k] = struct{}{}
		}
	}
	return out
}

// Equal reports deep equality including key order.
func (m *Mapping) Equal(o *Mapping) bool {
	if m == nil || o == nil {
		return m == o
	}
	if len(m.keys) != len(o.keys) {
		return false
	}
	for i, k := range m.keys {
		if o.keys[i] != k {
			return false
		}
		if !m.vals[k].Equal(o.vals[k]) {
			return false
		}
	}
	return true
}
