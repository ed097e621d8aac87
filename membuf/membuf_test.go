package membuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertMergesParallelEdges(t *testing.T) {
	b := New()
	b.Upsert(MemoryEdge{Src: 1, Dst: 2, Tag: 0, Weight: 1.0})
	b.Upsert(MemoryEdge{Src: 1, Dst: 2, Tag: 0, Weight: 2.5})
	assert.Equal(t, 1, b.Len())
	e, ok := b.Get(1, 2, 0)
	require.True(t, ok)
	assert.Equal(t, float32(2.5), e.Weight)
}

func TestDeleteTombstonesInsteadOfRemoving(t *testing.T) {
	b := New()
	b.Upsert(MemoryEdge{Src: 1, Dst: 2, Tag: 0})
	require.True(t, b.Delete(1, 2, 0))
	_, ok := b.Get(1, 2, 0)
	assert.False(t, ok)
	assert.Equal(t, 1, b.Len()) // still present as a tombstone
}

func TestDeleteMissingReturnsFalse(t *testing.T) {
	b := New()
	assert.False(t, b.Delete(9, 9, 0))
}

func TestSortedOrdersByDstThenSrc(t *testing.T) {
	b := New()
	b.Upsert(MemoryEdge{Src: 5, Dst: 2})
	b.Upsert(MemoryEdge{Src: 1, Dst: 2})
	b.Upsert(MemoryEdge{Src: 9, Dst: 1})

	sorted := b.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, uint32(1), sorted[0].Dst)
	assert.Equal(t, uint32(2), sorted[1].Dst)
	assert.Equal(t, uint32(1), sorted[1].Src)
	assert.Equal(t, uint32(5), sorted[2].Src)
}

func TestClearEmptiesBuffer(t *testing.T) {
	b := New()
	b.Upsert(MemoryEdge{Src: 1, Dst: 2})
	b.Clear()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, b.SizeBytes())
}
