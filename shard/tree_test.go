package shard

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skg/env"
	"skg/membuf"
	"skg/partition"
)

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	e := env.New()
	tr, st := Open(e, filepath.Join(t.TempDir(), "tree0"), 0, 0, 1000)
	require.Nil(t, st)
	return tr
}

func TestContainsRespectsInterval(t *testing.T) {
	tr := newTestTree(t)
	assert.True(t, tr.Contains(500))
	assert.False(t, tr.Contains(1001))
}

func TestAddEdgeThenOutAndInEdgesViaBuffer(t *testing.T) {
	tr := newTestTree(t)
	tr.AddEdge(membuf.MemoryEdge{Src: 1, Dst: 2, Weight: 1.5})

	var result []partition.Record
	tr.GetOutEdges(1, 100, &result)
	require.Len(t, result, 1)
	assert.Equal(t, uint32(2), result[0].Dst)

	var inResult []partition.Record
	tr.GetInEdges(2, 100, &inResult)
	require.Len(t, inResult, 1)
	assert.Equal(t, uint32(1), inResult[0].Src)
}

func TestDeleteEdgeThenEdgeAttrNotFound(t *testing.T) {
	tr := newTestTree(t)
	tr.AddEdge(membuf.MemoryEdge{Src: 1, Dst: 2, Tag: 0, Weight: 9})
	_, ok := tr.EdgeAttr(1, 2, 0)
	require.True(t, ok)

	require.True(t, tr.DeleteEdge(1, 2, 0))
	_, ok2 := tr.EdgeAttr(1, 2, 0)
	assert.False(t, ok2)
}

func TestFlushPersistsBufferIntoLeaf(t *testing.T) {
	tr := newTestTree(t)
	tr.AddEdge(membuf.MemoryEdge{Src: 1, Dst: 2, Weight: 1})
	tr.AddEdge(membuf.MemoryEdge{Src: 3, Dst: 4, Weight: 2})
	require.Nil(t, tr.Flush())
	assert.Equal(t, 2, tr.NumEdges())

	var result []partition.Record
	tr.GetOutEdges(1, 10, &result)
	require.Len(t, result, 1)
}

// TestSecondFlushPreservesEdgesWithSrcOutsideDstInterval covers an edge
// whose Src lies outside the tree's [first,second] dst interval (out-edge
// sources aren't constrained to it) surviving a second Flush against an
// existing leaf, rather than being dropped by a reconstruction that only
// walks vids inside the interval.
func TestSecondFlushPreservesEdgesWithSrcOutsideDstInterval(t *testing.T) {
	tr := newTestTree(t)
	tr.AddEdge(membuf.MemoryEdge{Src: 2000, Dst: 4, Weight: 1})
	require.Nil(t, tr.Flush())
	assert.Equal(t, 1, tr.NumEdges())

	tr.AddEdge(membuf.MemoryEdge{Src: 1, Dst: 2, Weight: 2})
	require.Nil(t, tr.Flush())
	assert.Equal(t, 2, tr.NumEdges())

	var result []partition.Record
	tr.GetOutEdges(2000, 10, &result)
	require.Len(t, result, 1)
	assert.Equal(t, uint32(4), result[0].Dst)
}

// TestSplitPreservesEdgesWithSrcOutsideDstInterval is the Split analogue of
// the above: splitting must also reconstruct every pre-existing leaf record
// regardless of whether its Src falls inside the tree's dst interval.
func TestSplitPreservesEdgesWithSrcOutsideDstInterval(t *testing.T) {
	tr := newTestTree(t)
	tr.AddEdge(membuf.MemoryEdge{Src: 2000, Dst: 4, Weight: 1})
	require.Nil(t, tr.Flush())

	for i := uint32(0); i < 20; i++ {
		tr.AddEdge(membuf.MemoryEdge{Src: i, Dst: i + 10, Weight: 1})
	}
	require.Nil(t, tr.Split(3))
	assert.Equal(t, 21, tr.NumEdges())

	var result []partition.Record
	tr.GetOutEdges(2000, 10, &result)
	require.Len(t, result, 1)
	assert.Equal(t, uint32(4), result[0].Dst)
}

func TestExtendSecondGrowsInterval(t *testing.T) {
	tr := newTestTree(t)
	tr.ExtendSecond(5000)
	_, second := tr.Interval()
	assert.Equal(t, uint32(5000), second)
}
