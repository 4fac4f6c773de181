package yamlfs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataconf/stratum/pkg/ports"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
}

func newTestSource(t *testing.T, nodes, classes map[string]string) *Source {
	t.Helper()
	base := t.TempDir()
	writeTree(t, filepath.Join(base, "nodes"), nodes)
	writeTree(t, filepath.Join(base, "classes"), classes)
	src, err := New(filepath.Join(base, "nodes"), filepath.Join(base, "classes"))
	require.NoError(t, err)
	return src
}

func TestNodesDiscovered(t *testing.T) {
	src := newTestSource(t, map[string]string{
		"web01.yml":      "classes: [base]",
		"prod/db01.yaml": "parameters:\n  tier: db",
	}, nil)

	nodes, err := src.Nodes()
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	assert.Equal(t, "prod/db01", nodes[0].RelPath, "nodes sort by relative path")
	assert.Equal(t, "web01", nodes[1].RelPath)
	assert.Equal(t, []string{"base"}, nodes[1].Classes)
	assert.True(t, strings.HasPrefix(nodes[0].URI, Scheme))
	assert.True(t, strings.HasSuffix(nodes[0].URI, "/nodes/prod/db01.yaml"))
}

func TestClassesGetDottedNames(t *testing.T) {
	src := newTestSource(t, nil, map[string]string{
		"common.yml":        "parameters:\n  motd: hi",
		"roles/web.yml":     "parameters: {}",
		"roles/db/pg.yaml":  "parameters: {}",
	})

	for _, name := range []string{"common", "roles.web", "roles.db.pg"} {
		_, err := src.Class(name)
		assert.NoError(t, err, name)
	}

	_, err := src.Class("roles/web")
	assert.ErrorIs(t, err, ports.ErrClassNotFound, "slash names are not class names")
}

func TestClassNotFound(t *testing.T) {
	src := newTestSource(t, nil, nil)
	_, err := src.Class("ghost")
	assert.ErrorIs(t, err, ports.ErrClassNotFound)
}

func TestDuplicateClassFails(t *testing.T) {
	base := t.TempDir()
	writeTree(t, filepath.Join(base, "classes"), map[string]string{
		"a.yml":  "parameters: {}",
		"a.yaml": "parameters: {}",
	})
	_, err := New(filepath.Join(base, "nodes"), filepath.Join(base, "classes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate class "a"`)
}

func TestHiddenEntriesSkipped(t *testing.T) {
	src := newTestSource(t, map[string]string{
		".hidden.yml":       "parameters: {}",
		".git/junk.yml":     "parameters: {}",
		"visible.yml":       "parameters: {}",
	}, nil)

	nodes, err := src.Nodes()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "visible", nodes[0].RelPath)
}

func TestNonYAMLFilesIgnored(t *testing.T) {
	src := newTestSource(t, map[string]string{
		"README.md": "not yaml",
		"web01.yml": "",
	}, nil)
	nodes, err := src.Nodes()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
}

func TestMissingRootsAreEmpty(t *testing.T) {
	base := t.TempDir()
	src, err := New(filepath.Join(base, "nodes"), filepath.Join(base, "classes"))
	require.NoError(t, err)
	nodes, err := src.Nodes()
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestUnparsableDocumentFails(t *testing.T) {
	base := t.TempDir()
	writeTree(t, filepath.Join(base, "nodes"), map[string]string{
		"bad.yml": "classes: [unclosed",
	})
	_, err := New(filepath.Join(base, "nodes"), filepath.Join(base, "classes"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrNotExist))
}
