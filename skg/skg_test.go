package skg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skg/config"
	"skg/skgerr"
	"skg/traverse"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	root := t.TempDir()
	cfg := config.Load(root)
	cfg.LeafTargetEdges = 100
	cfg.ShardSplitFactor = 2
	db, st := Open(root, cfg)
	require.Nil(t, st)
	return db
}

func TestAddEdgeThenHasVertexAndHasEdgeBetween(t *testing.T) {
	db := openTestDB(t)
	st := db.AddEdge("follows", "user", "alice", "user", "bob", 1.0, nil, 0)
	require.Nil(t, st)

	assert.True(t, db.HasVertex("user", "alice"))
	assert.True(t, db.HasVertex("user", "bob"))
	assert.False(t, db.HasVertex("user", "carol"))
	assert.True(t, db.HasEdgeBetween("user", "alice", "user", "bob"))
	assert.False(t, db.HasEdgeBetween("user", "bob", "user", "alice"))
}

func TestAddEdgeRejectsSelfLoop(t *testing.T) {
	db := openTestDB(t)
	st := db.AddEdge("follows", "user", "alice", "user", "alice", 1.0, nil, 0)
	require.NotNil(t, st)
	assert.True(t, st.Is(skgerr.UnSupportSelfLoop))
	assert.False(t, db.HasVertex("user", "alice"), "self-loop rejection must happen before either endpoint is resolved/created")
}

func TestDeleteEdgeThenEdgeAttrNotFound(t *testing.T) {
	db := openTestDB(t)
	require.Nil(t, db.AddEdge("follows", "user", "alice", "user", "bob", 1.0, nil, 0))
	require.Nil(t, db.DeleteEdge("follows", "user", "alice", "user", "bob"))

	_, st := db.EdgeAttr("follows", "user", "alice", "user", "bob")
	require.NotNil(t, st)
	assert.True(t, st.Is(skgerr.NotFound))
}

func TestSetVertexAttrThenGetVertexAttrRoundTrips(t *testing.T) {
	db := openTestDB(t)
	require.Nil(t, db.SetVertexAttr("user", "alice", []byte("bio"), 0x3))
	row, st := db.GetVertexAttr("user", "alice")
	require.Nil(t, st)
	assert.Equal(t, "bio", string(row.Data[:3]))
	assert.True(t, row.Bitset.Has(0))
	assert.True(t, row.Bitset.Has(1))
}

func TestDeleteVertexCascadesInAndOutEdges(t *testing.T) {
	db := openTestDB(t)
	require.Nil(t, db.AddEdge("follows", "user", "alice", "user", "bob", 1.0, nil, 0))
	require.Nil(t, db.AddEdge("follows", "user", "carol", "user", "alice", 1.0, nil, 0))

	require.Nil(t, db.DeleteVertex("user", "alice"))

	_, st := db.EdgeAttr("follows", "user", "alice", "user", "bob")
	require.NotNil(t, st)
	assert.True(t, st.Is(skgerr.NotFound), "out-edge from the deleted vertex must be gone")

	_, st = db.EdgeAttr("follows", "user", "carol", "user", "alice")
	require.NotNil(t, st)
	assert.True(t, st.Is(skgerr.NotFound), "in-edge into the deleted vertex must be gone")

	_, st = db.GetVertexAttr("user", "alice")
	require.NotNil(t, st)
	assert.True(t, st.Is(skgerr.NotFound))
}

func TestOutVerticesAndInVerticesTranslateToUserStrings(t *testing.T) {
	db := openTestDB(t)
	require.Nil(t, db.AddEdge("follows", "user", "alice", "user", "bob", 1.0, nil, 0))
	require.Nil(t, db.AddEdge("follows", "user", "alice", "user", "carol", 1.0, nil, 0))

	out, st := db.OutVertices("user", "alice", 0)
	require.Nil(t, st)
	assert.ElementsMatch(t, []string{"bob", "carol"}, out)

	in, st := db.InVertices("user", "bob", 0)
	require.Nil(t, st)
	assert.Equal(t, []string{"alice"}, in)
}

func TestShortestPathTranslatesEndpoints(t *testing.T) {
	db := openTestDB(t)
	require.Nil(t, db.AddEdge("follows", "user", "alice", "user", "bob", 1.0, nil, 0))
	require.Nil(t, db.AddEdge("follows", "user", "bob", "user", "carol", 1.0, nil, 0))

	result := db.ShortestPath("user", "alice", "user", "carol", traverse.Budget{})
	assert.Equal(t, traverse.Ok, result.Code)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "user:alice -follows-> user:bob -follows-> user:carol", result.Data[0])
}

func TestAllPathsFindsBothRoutes(t *testing.T) {
	db := openTestDB(t)
	require.Nil(t, db.AddEdge("follows", "user", "alice", "user", "bob", 1.0, nil, 0))
	require.Nil(t, db.AddEdge("follows", "user", "bob", "user", "carol", 1.0, nil, 0))
	require.Nil(t, db.AddEdge("follows", "user", "alice", "user", "carol", 1.0, nil, 0))

	result := db.AllPaths("user", "alice", "user", "carol", traverse.Budget{})
	assert.Equal(t, traverse.Ok, result.Code)
	assert.Len(t, result.Data, 2)
}

func TestKOutAndKOutSizeAndKNeighborReachMultiHopVertices(t *testing.T) {
	db := openTestDB(t)
	require.Nil(t, db.AddEdge("follows", "user", "alice", "user", "bob", 1.0, nil, 0))
	require.Nil(t, db.AddEdge("follows", "user", "bob", "user", "carol", 1.0, nil, 0))

	out := db.KOut("user", "alice", 2, traverse.Budget{})
	assert.Equal(t, traverse.Ok, out.Code)
	assert.ElementsMatch(t, []string{"user:bob", "user:carol"}, out.Data)

	size := db.KOutSize("user", "alice", 2, traverse.Budget{})
	assert.Equal(t, traverse.Ok, size.Code)
	assert.Equal(t, []string{"2"}, size.Data)

	neighbor := db.KNeighbor("user", "alice", 2, traverse.Budget{})
	assert.Equal(t, traverse.Ok, neighbor.Code)
	assert.ElementsMatch(t, []string{"user:bob", "user:carol"}, neighbor.Data)
}

func TestFlushThenReopenPreservesEdgesAndVertices(t *testing.T) {
	root := t.TempDir()
	db, st := Open(root, config.Load(root))
	require.Nil(t, st)
	require.Nil(t, db.AddEdge("follows", "user", "alice", "user", "bob", 1.0, nil, 0))
	require.Nil(t, db.Close())

	reopened, st := Open(root, config.Load(root))
	require.Nil(t, st)
	assert.True(t, reopened.HasVertex("user", "alice"))
	assert.True(t, reopened.HasEdgeBetween("user", "alice", "user", "bob"))
}

func TestDropRemovesDatabaseDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "dropme")
	db, st := Open(root, config.Load(root))
	require.Nil(t, st)
	require.Nil(t, db.AddEdge("follows", "user", "alice", "user", "bob", 1.0, nil, 0))
	require.Nil(t, db.Drop())

	_, err := os.Stat(root)
	assert.True(t, os.IsNotExist(err))
}
