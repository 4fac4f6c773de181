package paramtree

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes a YAML node into a Value, preserving mapping key
// order. Merge keys ("<<") are expanded with the usual YAML precedence:
// keys spelled out in the mapping win over merged-in keys, and earlier
// merge sources win over later ones.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	dv, err := decodeNode(node)
	if err != nil {
		return err
	}
	*v = dv
	return nil
}

// UnmarshalYAML decodes a YAML mapping node into m.
func (m *Mapping) UnmarshalYAML(node *yaml.Node) error {
	dm, err := decodeMapping(node)
	if err != nil {
		return err
	}
	*m = *dm
	return nil
}

func decodeNode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return decodeNode(n.Content[0])
	case yaml.AliasNode:
		return decodeNode(n.Alias)
	case yaml.ScalarNode:
		return decodeScalar(n)
	case yaml.SequenceNode:
		elems := make([]Value, len(n.Content))
		for i, c := range n.Content {
			e, err := decodeNode(c)
			if err != nil {
				return Value{}, err
			}
			elems[i] = e
		}
		return Seq(elems...), nil
	case yaml.MappingNode:
		m, err := decodeMapping(n)
		if err != nil {
			return Value{}, err
		}
		return Map(m), nil
	default:
		return Value{}, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
	}
}

func decodeScalar(n *yaml.Node) (Value, error) {
	switch n.Tag {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return Value{}, err
		}
		return Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, err
		}
		return Float(f), nil
	default:
		// !!str, !!timestamp and unknown custom tags all keep their
		// scalar text; references inside stay intact for interpolation.
		return String(n.Value), nil
	}
}

func decodeMapping(n *yaml.Node) (*Mapping, error) {
	if n.Kind == yaml.AliasNode {
		return decodeMapping(n.Alias)
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping, got %s", n.Line, yamlKindName(n.Kind))
	}

	explicit := make(map[string]struct{})
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := n.Content[i]; !isMergeKey(k) {
			explicit[k.Value] = struct{}{}
		}
	}

	m := NewMapping()
	for i := 0; i+1 < len(n.Content); i += 2 {
		kn, vn := n.Content[i], n.Content[i+1]
		if isMergeKey(kn) {
			if err := expandMergeKey(m, vn, explicit); err != nil {
				return nil, err
			}
			continue
		}
		val, err := decodeNode(vn)
		if err != nil {
			return nil, err
		}
		m.Set(kn.Value, val)
	}
	return m, nil
}

// expandMergeKey folds the mappings referenced by a "<<" entry into m,
// skipping keys that are spelled out explicitly or already merged in.
func expandMergeKey(m *Mapping, vn *yaml.Node, explicit map[string]struct{}) error {
	if vn.Kind == yaml.AliasNode {
		return expandMergeKey(m, vn.Alias, explicit)
	}
	if vn.Kind == yaml.SequenceNode {
		for _, c := range vn.Content {
			if err := expandMergeKey(m, c, explicit); err != nil {
				return err
			}
		}
		return nil
	}
	src, err := decodeMapping(vn)
	if err != nil {
		return fmt.Errorf("line %d: merge key: %w", vn.Line, err)
	}
	for _, k := range src.Keys() {
		if _, ok := explicit[k]; ok {
			continue
		}
		if m.Has(k) {
			continue
		}
		v, _ := src.Get(k)
		m.Set(k, v)
	}
	return nil
}

func isMergeKey(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && (n.Tag == "!!merge" || n.Value == "<<")
}

func yamlKindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// MarshalYAML encodes the value as a YAML node tree, emitting mapping keys
// in insertion order.
func (v Value) MarshalYAML() (any, error) {
	return v.yamlNode(), nil
}

// MarshalYAML encodes the mapping with its keys in insertion order.
func (m *Mapping) MarshalYAML() (any, error) {
	return Map(m).yamlNode(), nil
}

func (v Value) yamlNode() *yaml.Node {
	switch v.kind {
	case KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.b)}
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.i, 10)}
	case KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(v.f, 'g', -1, 64)}
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.s}
	case KindSequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		n.Content = make([]*yaml.Node, len(v.seq))
		for i, e := range v.seq {
			n.Content[i] = e.yamlNode()
		}
		return n
	case KindMapping:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		n.Content = make([]*yaml.Node, 0, v.m.Len()*2)
		for _, k := range v.m.Keys() {
			e, _ := v.m.Get(k)
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				e.yamlNode())
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}
