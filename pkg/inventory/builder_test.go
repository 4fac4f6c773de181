package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataconf/stratum/pkg/adapters/memsource"
	"github.com/strataconf/stratum/pkg/config"
	"github.com/strataconf/stratum/pkg/hierarchy"
	"github.com/strataconf/stratum/pkg/paramtree"
	"github.com/strataconf/stratum/pkg/refs"
)

type fixture struct {
	nodes   map[string]string
	classes map[string]string
}

func newResolver(t *testing.T, cfg *config.Config, fix fixture) *Resolver {
	t.Helper()
	src := memsource.New()
	for path, body := range fix.nodes {
		require.NoError(t, src.AddNode(path, body))
	}
	for name, body := range fix.classes {
		require.NoError(t, src.AddClass(name, body))
	}
	r, err := NewResolver(cfg, src, nil)
	require.NoError(t, err)
	return r
}

func param(t *testing.T, info *NodeInfo, keys ...string) paramtree.Value {
	t.Helper()
	v := paramtree.Map(info.Parameters)
	for _, k := range keys {
		m, ok := v.AsMapping()
		require.True(t, ok, "expected mapping on the way to %v", keys)
		v, ok = m.Get(k)
		require.True(t, ok, "missing key %q", k)
	}
	return v
}

func TestResolveNodeMergeOrder(t *testing.T) {
	r := newResolver(t, config.Default(), fixture{
		nodes: map[string]string{
			"web01": `
classes: [a, b]
parameters:
  fromnode: n
  shared: n
`,
		},
		classes: map[string]string{
			"a": "parameters:\n  froma: a\n  shared: a\n  ab: a",
			"b": "parameters:\n  fromb: b\n  ab: b",
		},
	})

	info, err := r.NodeInfo("web01")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, info.Classes)
	assert.Equal(t, paramtree.String("n"), param(t, info, "shared"), "node parameters win")
	assert.Equal(t, paramtree.String("b"), param(t, info, "ab"), "later classes win")
	assert.Equal(t, paramtree.String("a"), param(t, info, "froma"))
	assert.Equal(t, paramtree.String("b"), param(t, info, "fromb"))
}

func TestResolveNodeIdempotent(t *testing.T) {
	fix := fixture{
		nodes:   map[string]string{"web01": "classes: [base]\nparameters:\n  x: ${y}"},
		classes: map[string]string{"base": "parameters:\n  y: stable"},
	}
	r := newResolver(t, config.Default(), fix)

	first, err := r.NodeInfo("web01")
	require.NoError(t, err)
	second, err := r.NodeInfo("web01")
	require.NoError(t, err)

	assert.Equal(t, first.Classes, second.Classes)
	assert.Equal(t, first.Applications, second.Applications)
	assert.True(t, first.Parameters.Equal(second.Parameters))
}

func TestResolveNodeWholeValueInterpolation(t *testing.T) {
	r := newResolver(t, config.Default(), fixture{
		nodes: map[string]string{"web01": "classes: [base]\nparameters:\n  picked: ${foo}"},
		classes: map[string]string{
			"base": "parameters:\n  foo:\n    a: 1",
		},
	})

	info, err := r.NodeInfo("web01")
	require.NoError(t, err)

	m, ok := param(t, info, "picked").AsMapping()
	require.True(t, ok, "whole-value interpolation keeps the mapping type")
	a, _ := m.Get("a")
	assert.Equal(t, paramtree.Int(1), a)
}

func TestResolveNodeForwardReference(t *testing.T) {
	// A class may reference a value contributed by a class merged later;
	// interpolation runs after the merge completes.
	r := newResolver(t, config.Default(), fixture{
		nodes: map[string]string{"web01": "classes: [early, late]"},
		classes: map[string]string{
			"early": "parameters:\n  msg: hello ${who}",
			"late":  "parameters:\n  who: world",
		},
	})

	info, err := r.NodeInfo("web01")
	require.NoError(t, err)
	assert.Equal(t, paramtree.String("hello world"), param(t, info, "msg"))
}

func TestResolveNodeMetaBranch(t *testing.T) {
	cfg := config.Default()
	cfg.ComposeNodeName = true
	r := newResolver(t, cfg, fixture{
		nodes: map[string]string{"prod/web01": "parameters:\n  ident: ${_reclass_.name.full}"},
	})

	info, err := r.NodeInfo("prod.web01")
	require.NoError(t, err)

	assert.Equal(t, paramtree.String("base"), param(t, info, MetaKey, "environment"))
	assert.Equal(t, paramtree.String("prod.web01"), param(t, info, MetaKey, "name", "full"))
	assert.Equal(t, paramtree.String("prod/web01"), param(t, info, MetaKey, "name", "path"))
	assert.Equal(t, paramtree.String("web01"), param(t, info, MetaKey, "name", "short"))
	assert.Equal(t, paramtree.String("prod.web01"), param(t, info, "ident"),
		"parameters can reference the metadata branch")
}

func TestResolveNodeEnvironmentFromDocument(t *testing.T) {
	r := newResolver(t, config.Default(), fixture{
		nodes: map[string]string{"web01": "environment: prod"},
	})
	info, err := r.NodeInfo("web01")
	require.NoError(t, err)
	assert.Equal(t, "prod", info.Environment)
	assert.Equal(t, paramtree.String("prod"), param(t, info, MetaKey, "environment"))
}

func TestResolveNodeNoneGuard(t *testing.T) {
	fix := fixture{
		nodes:   map[string]string{"web01": "classes: [base]\nparameters:\n  k: null"},
		classes: map[string]string{"base": "parameters:\n  k: 5"},
	}

	info, err := newResolver(t, config.Default(), fix).NodeInfo("web01")
	require.NoError(t, err)
	assert.Equal(t, paramtree.Int(5), param(t, info, "k"))

	cfg := config.Default()
	cfg.AllowNoneOverride = true
	info, err = newResolver(t, cfg, fix).NodeInfo("web01")
	require.NoError(t, err)
	assert.True(t, param(t, info, "k").IsNull())
}

func TestResolveNodeClassMappings(t *testing.T) {
	cfg := config.Default()
	cfg.ClassMappings = []string{
		"* common",
		"/^web(\\d+)$/ role.web cluster.\\1",
	}
	r := newResolver(t, cfg, fixture{
		nodes: map[string]string{"web01": "classes: [extra]"},
		classes: map[string]string{
			"common":     "parameters:\n  layer: common",
			"role.web":   "parameters:\n  layer: role",
			"cluster.01": "parameters: {}",
			"extra":      "parameters:\n  layer: extra",
		},
	})

	info, err := r.NodeInfo("web01")
	require.NoError(t, err)
	assert.Equal(t, []string{"common", "role.web", "cluster.01", "extra"}, info.Classes,
		"mapped classes are injected before declared ones")
	assert.Equal(t, paramtree.String("extra"), param(t, info, "layer"))
}

func TestResolveNodeMappedClassAlsoDeclared(t *testing.T) {
	cfg := config.Default()
	cfg.ClassMappings = []string{"* common"}
	r := newResolver(t, cfg, fixture{
		nodes: map[string]string{"web01": "classes: [common, extra]"},
		classes: map[string]string{
			"common": "applications: [ssh]\nparameters:\n  layer: common\n  tags: [shared]",
			"extra":  "parameters:\n  layer: extra",
		},
	})

	info, err := r.NodeInfo("web01")
	require.NoError(t, err)

	assert.Equal(t, []string{"common", "extra"}, info.Classes,
		"a class both mapped and declared merges once, at its mapping position")
	assert.Equal(t, []string{"ssh"}, info.Applications)
	assert.Equal(t, paramtree.String("extra"), param(t, info, "layer"),
		"later declared classes still override the mapped one")
	tags, ok := param(t, info, "tags").AsSequence()
	require.True(t, ok)
	assert.Len(t, tags, 1, "the shared class is not merged twice")
}

func TestResolveNodeClassMappingsMatchPath(t *testing.T) {
	cfg := config.Default()
	cfg.ComposeNodeName = true
	cfg.ClassMappingsMatchPath = true
	cfg.ClassMappings = []string{"prod/* env.prod"}
	r := newResolver(t, cfg, fixture{
		nodes:   map[string]string{"prod/web01": "", "dev/web01": ""},
		classes: map[string]string{"env.prod": "parameters:\n  tier: prod"},
	})

	info, err := r.NodeInfo("prod.web01")
	require.NoError(t, err)
	assert.Equal(t, []string{"env.prod"}, info.Classes)

	info, err = r.NodeInfo("dev.web01")
	require.NoError(t, err)
	assert.Empty(t, info.Classes)
}

func TestResolveNodeMissingClass(t *testing.T) {
	r := newResolver(t, config.Default(), fixture{
		nodes: map[string]string{"web01": "classes: [nowhere]"},
	})
	_, err := r.NodeInfo("web01")

	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, "web01", resolveErr.Node)
	var notFound *hierarchy.ClassNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestResolveNodeReferenceCycle(t *testing.T) {
	r := newResolver(t, config.Default(), fixture{
		nodes: map[string]string{"web01": "parameters:\n  a: ${b}\n  b: ${a}"},
	})
	_, err := r.NodeInfo("web01")

	var cycle *refs.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Contains(t, err.Error(), `node "web01"`)
}

func TestNodeInfoUnknownNode(t *testing.T) {
	r := newResolver(t, config.Default(), fixture{})
	_, err := r.NodeInfo("ghost")
	var notFound *NodeNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestDiscoverDuplicateNodeName(t *testing.T) {
	// With composition off, different directories can collapse onto the
	// same identity.
	r := newResolver(t, config.Default(), fixture{
		nodes: map[string]string{
			"prod/web01": "",
			"dev/web01":  "",
		},
	})
	_, err := r.Build()

	var disc *DiscoveryError
	require.ErrorAs(t, err, &disc)
	assert.Equal(t, "web01", disc.Node)
	assert.Equal(t,
		[]string{"memory://nodes/dev/web01", "memory://nodes/prod/web01"},
		disc.Sources, "conflicting sources are reported sorted")
}

func TestBuildAggregatesIndexes(t *testing.T) {
	r := newResolver(t, config.Default(), fixture{
		nodes: map[string]string{
			"web01": "classes: [roles.web]",
			"web02": "classes: [roles.web]",
			"db01":  "classes: [roles.db]",
		},
		classes: map[string]string{
			"common":    "applications: [ssh]",
			"roles.web": "classes: [common]\napplications: [nginx]",
			"roles.db":  "classes: [common]\napplications: [postgres]",
		},
	})

	inv, err := r.Build()
	require.NoError(t, err)

	require.Len(t, inv.Nodes, 3)
	assert.Equal(t, []string{"web01", "web02"}, inv.Classes["roles.web"])
	assert.Equal(t, []string{"db01"}, inv.Classes["roles.db"])
	assert.Equal(t, []string{"db01", "web01", "web02"}, inv.Classes["common"])
	assert.Equal(t, []string{"db01", "web01", "web02"}, inv.Applications["ssh"])
	assert.Equal(t, []string{"web01", "web02"}, inv.Applications["nginx"])

	// Index consistency: every index entry points back at nodes that
	// carry the class/application themselves.
	for class, nodes := range inv.Classes {
		for _, n := range nodes {
			assert.Contains(t, inv.Nodes[n].Classes, class)
		}
	}
	for app, nodes := range inv.Applications {
		for _, n := range nodes {
			assert.Contains(t, inv.Nodes[n].Applications, app)
		}
	}
}

func TestBuildAbortsOnFirstError(t *testing.T) {
	r := newResolver(t, config.Default(), fixture{
		nodes: map[string]string{
			"good": "",
			"bad":  "classes: [nowhere]",
		},
	})
	inv, err := r.Build()
	require.Error(t, err)
	assert.Nil(t, inv, "no partial inventory on error")
}

func TestBuildSharesTimestamp(t *testing.T) {
	r := newResolver(t, config.Default(), fixture{
		nodes: map[string]string{"a": "", "b": ""},
	})
	inv, err := r.Build()
	require.NoError(t, err)
	for _, info := range inv.Nodes {
		assert.Equal(t, inv.Timestamp, info.Timestamp)
	}
}

func TestBuildRawPlaceholderClassInIndex(t *testing.T) {
	cfg := config.Default()
	cfg.IgnoreClassNotFound = true
	r := newResolver(t, cfg, fixture{
		nodes: map[string]string{"web01": "classes: ['${qux}']"},
	})

	inv, err := r.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"web01"}, inv.Classes["${qux}"],
		"unresolvable class entries are indexed by their literal spelling")
}
