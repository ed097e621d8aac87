package queryengine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skg/env"
	"skg/membuf"
	"skg/shard"
)

func buildTestTrees(t *testing.T) []*shard.Tree {
	t.Helper()
	e := env.New()
	tr0, st := shard.Open(e, filepath.Join(t.TempDir(), "t0"), 0, 0, 99)
	require.Nil(t, st)
	tr1, st := shard.Open(e, filepath.Join(t.TempDir(), "t1"), 1, 100, 199)
	require.Nil(t, st)

	tr0.AddEdge(membuf.MemoryEdge{Src: 1, Dst: 2, Weight: 1})
	tr0.AddEdge(membuf.MemoryEdge{Src: 1, Dst: 50, Weight: 2})
	tr1.AddEdge(membuf.MemoryEdge{Src: 1, Dst: 150, Weight: 3})

	return []*shard.Tree{tr0, tr1}
}

func TestGetOutEdgesFansOutAcrossTrees(t *testing.T) {
	eng := New(4)
	trees := buildTestTrees(t)
	rows, st := eng.GetOutEdges(trees, 1, 0)
	require.Nil(t, st)
	assert.Len(t, rows, 3)
}

func TestGetOutEdgesRespectsNlimit(t *testing.T) {
	eng := New(4)
	trees := buildTestTrees(t)
	rows, st := eng.GetOutEdges(trees, 1, 2)
	require.Nil(t, st)
	assert.Len(t, rows, 2)
}

func TestGetInEdgesDispatchesToOwningTreeOnly(t *testing.T) {
	eng := New(4)
	trees := buildTestTrees(t)
	rows, st := eng.GetInEdges(trees, 150, 0)
	require.Nil(t, st)
	require.Len(t, rows, 1)
	assert.Equal(t, uint32(1), rows[0].Src)
}

func TestOutVerticesDedupsDestinations(t *testing.T) {
	eng := New(4)
	trees := buildTestTrees(t)
	// a second edge 1->2 under another tag: four out-edges, three destinations
	trees[0].AddEdge(membuf.MemoryEdge{Src: 1, Dst: 2, Tag: 1, Weight: 4})
	verts, st := eng.OutVertices(trees, 1, 0)
	require.Nil(t, st)
	assert.Len(t, verts, 3)
}
