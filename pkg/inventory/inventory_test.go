package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/strataconf/stratum/pkg/config"
	"github.com/strataconf/stratum/pkg/paramtree"
)

func TestNodeInfoFlatMapShape(t *testing.T) {
	params := paramtree.NewMapping()
	params.Set("k", paramtree.Int(1))
	info := &NodeInfo{
		Name:         ComposeNodeName("web01", NameComposition{}),
		Environment:  "base",
		URI:          "memory://nodes/web01",
		Classes:      []string{"a"},
		Applications: []string{"ssh"},
		Parameters:   params,
		Timestamp:    time.Date(2026, time.August, 27, 12, 0, 0, 0, time.UTC),
	}

	flat := info.FlatMap()
	assert.Equal(t,
		[]string{"__reclass__", "applications", "classes", "environment", "parameters"},
		flat.Keys())

	meta, _ := flat.Get("__reclass__")
	mm, ok := meta.AsMapping()
	require.True(t, ok)
	node, _ := mm.Get("node")
	assert.Equal(t, paramtree.String("web01"), node)
	ts, _ := mm.Get("timestamp")
	assert.Equal(t, paramtree.String("Thu Aug 27 12:00:00 2026"), ts)
}

func TestInventoryFlatMapSerializes(t *testing.T) {
	r := newResolver(t, config.Default(), fixture{
		nodes: map[string]string{
			"b": "classes: [common]",
			"a": "classes: [common]",
		},
		classes: map[string]string{"common": "applications: [ssh]"},
	})
	inv, err := r.Build()
	require.NoError(t, err)

	flat := inv.FlatMap()
	assert.Equal(t, []string{"__reclass__", "applications", "classes", "nodes"}, flat.Keys())

	nodes, _ := flat.Get("nodes")
	nm, ok := nodes.AsMapping()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, nm.Keys(), "nodes serialize in sorted order")

	out, err := yaml.Marshal(flat)
	require.NoError(t, err)
	assert.Contains(t, string(out), "applications:")
	assert.Contains(t, string(out), "ssh:")
}
