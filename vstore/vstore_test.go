package vstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skg/codec"
	"skg/schema"
)

func newTestStore(t *testing.T) (*Store, *schema.Registry) {
	t.Helper()
	dir := t.TempDir()
	reg, st := schema.NewRegistry(schema.VertexKind, filepath.Join(dir, "meta", "vertex_attr_conf"))
	require.Nil(t, st)
	_, st = reg.AddLabel("person")
	require.Nil(t, st)
	store, st := Open(filepath.Join(dir, "vattr"), reg)
	require.Nil(t, st)
	return store, reg
}

func TestAllocateSetGetRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	vid, st := store.AllocateNewVid()
	require.Nil(t, st)

	row := Row{Bitset: codec.Bitset64(0).Set(0), Data: []byte("hello")}
	require.Nil(t, store.SetAttr(vid, "person", row))

	got, st := store.GetAttr(vid)
	require.Nil(t, st)
	assert.True(t, got.Bitset.Has(0))
	assert.Equal(t, "hello", string(got.Data[:5]))
}

func TestGetAttrNotFoundBeforeSet(t *testing.T) {
	store, _ := newTestStore(t)
	vid, _ := store.AllocateNewVid()
	_, st := store.GetAttr(vid)
	require.NotNil(t, st)
}

func TestDeleteVertexTombstonesWithoutReclaimingVid(t *testing.T) {
	store, _ := newTestStore(t)
	vid, _ := store.AllocateNewVid()
	require.Nil(t, store.SetAttr(vid, "person", Row{Data: []byte("x")}))
	require.Nil(t, store.DeleteVertex(vid))

	_, st := store.GetAttr(vid)
	require.NotNil(t, st)

	vid2, _ := store.AllocateNewVid()
	assert.NotEqual(t, vid, vid2)
}

func TestUpdateMaxVidGrowsCapacityInBuckets(t *testing.T) {
	store, _ := newTestStore(t)
	require.Nil(t, store.UpdateMaxVid(BucketSize+10))
	assert.GreaterOrEqual(t, len(store.present), BucketSize+11)
	assert.Equal(t, uint32(BucketSize+10), store.MaxAllocatedVid())
}

// TestNumVerticesFileIsPlainTextThreeFields checks the on-disk num_vertices
// format against spec §6's "max_allocated_vid storage_capacity
// num_vertices\n" — three space-separated integers, not JSON.
func TestNumVerticesFileIsPlainTextThreeFields(t *testing.T) {
	dir := t.TempDir()
	reg, _ := schema.NewRegistry(schema.VertexKind, filepath.Join(dir, "meta", "vertex_attr_conf"))
	reg.AddLabel("person")
	store, _ := Open(filepath.Join(dir, "vattr"), reg)

	v1, _ := store.AllocateNewVid()
	require.Nil(t, store.SetAttr(v1, "person", Row{Data: []byte("a")}))
	v2, _ := store.AllocateNewVid()
	require.Nil(t, store.SetAttr(v2, "person", Row{Data: []byte("b")}))
	require.Nil(t, store.DeleteVertex(v1))
	require.Nil(t, store.Flush())

	data, err := os.ReadFile(filepath.Join(dir, "vattr", "num_vertices"))
	require.NoError(t, err)
	assert.Equal(t, "1 50000 1\n", string(data))
}

func TestFlushAndReopenPersistsRows(t *testing.T) {
	dir := t.TempDir()
	reg, _ := schema.NewRegistry(schema.VertexKind, filepath.Join(dir, "meta", "vertex_attr_conf"))
	reg.AddLabel("person")
	store, _ := Open(filepath.Join(dir, "vattr"), reg)
	vid, _ := store.AllocateNewVid()
	require.Nil(t, store.SetAttr(vid, "person", Row{Data: []byte("persisted")}))
	require.Nil(t, store.Flush())

	reg2, _ := schema.NewRegistry(schema.VertexKind, filepath.Join(dir, "meta", "vertex_attr_conf"))
	store2, st := Open(filepath.Join(dir, "vattr"), reg2)
	require.Nil(t, st)
	row, st := store2.GetAttr(vid)
	require.Nil(t, st)
	assert.Equal(t, "persisted", string(row.Data[:9]))
}
