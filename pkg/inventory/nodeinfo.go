package inventory

import (
	"time"

	"github.com/strataconf/stratum/pkg/paramtree"
)

// MetaKey names the parameter branch injected into every node's merged
// tree so other parameters can reference node identity and environment.
const MetaKey = "_reclass_"

// NodeInfo is the fully resolved result for one node.
type NodeInfo struct {
	Name        NodeName
	Environment string
	// URI is the storage location of the node document.
	URI string
	// Classes is the resolved class list in merge order.
	Classes []string
	// Applications is the collected application list in first-seen order.
	Applications []string
	// Parameters is the merged, interpolated tree including MetaKey.
	Parameters *paramtree.Mapping
	Timestamp  time.Time
}

// metaBranch builds the MetaKey subtree.
func metaBranch(name NodeName, environment string) paramtree.Value {
	parts := make([]paramtree.Value, len(name.Parts))
	for i, p := range name.Parts {
		parts[i] = paramtree.String(p)
	}
	nm := paramtree.NewMapping()
	nm.Set("full", paramtree.String(name.Full))
	nm.Set("parts", paramtree.Seq(parts...))
	nm.Set("path", paramtree.String(name.Path))
	nm.Set("short", paramtree.String(name.Short))

	m := paramtree.NewMapping()
	m.Set("environment", paramtree.String(environment))
	m.Set("name", paramtree.Map(nm))
	return paramtree.Map(m)
}

// FlatMap renders the node in its serialized shape: metadata first, then
// applications, classes, environment, and parameters.
func (n *NodeInfo) FlatMap() *paramtree.Mapping {
	meta := paramtree.NewMapping()
	meta.Set("node", paramtree.String(n.Name.Full))
	meta.Set("name", paramtree.String(n.Name.Short))
	meta.Set("uri", paramtree.String(n.URI))
	meta.Set("environment", paramtree.String(n.Environment))
	meta.Set("timestamp", paramtree.String(n.Timestamp.Format(time.ANSIC)))

	out := paramtree.NewMapping()
	out.Set("__reclass__", paramtree.Map(meta))
	out.Set("applications", stringSeq(n.Applications))
	out.Set("classes", stringSeq(n.Classes))
	out.Set("environment", paramtree.String(n.Environment))
	out.Set("parameters", paramtree.Map(n.Parameters))
	return out
}

func stringSeq(ss []string) paramtree.Value {
	vals := make([]paramtree.Value, len(ss))
	for i, s := range ss {
		vals[i] = paramtree.String(s)
	}
	return paramtree.Seq(vals...)
}
