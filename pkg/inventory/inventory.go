package inventory

import (
	"sort"
	"time"

	"github.com/strataconf/stratum/pkg/paramtree"
)

// Inventory is the global aggregate over all resolved nodes.
type Inventory struct {
	// Nodes maps full node names to their resolved info.
	Nodes map[string]*NodeInfo
	// Classes maps each class name to the sorted node names including it.
	Classes map[string][]string
	// Applications maps each application to the sorted node names
	// carrying it.
	Applications map[string][]string
	// Timestamp is the single capture time of this build.
	Timestamp time.Time
}

// FlatMap renders the inventory as one ordered nested mapping, ready for
// YAML serialization: build metadata, then the two indexes, then every
// node, all with sorted keys for deterministic output.
func (inv *Inventory) FlatMap() *paramtree.Mapping {
	meta := paramtree.NewMapping()
	meta.Set("timestamp", paramtree.String(inv.Timestamp.Format(time.ANSIC)))

	nodes := paramtree.NewMapping()
	for _, name := range sortedKeys(inv.Nodes) {
		nodes.Set(name, paramtree.Map(inv.Nodes[name].FlatMap()))
	}

	out := paramtree.NewMapping()
	out.Set("__reclass__", paramtree.Map(meta))
	out.Set("applications", indexMapping(inv.Applications))
	out.Set("classes", indexMapping(inv.Classes))
	out.Set("nodes", paramtree.Map(nodes))
	return out
}

func indexMapping(idx map[string][]string) paramtree.Value {
	m := paramtree.NewMapping()
	for _, k := range sortedKeys(idx) {
		m.Set(k, stringSeq(idx[k]))
	}
	return paramtree.Map(m)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
