package traverse

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skg/env"
	"skg/membuf"
	"skg/queryengine"
	"skg/shard"
)

// buildChain constructs a->b->c->d plus a direct a->d edge (scenario 4 from
// spec §8's literal end-to-end examples).
func buildChain(t *testing.T) []*shard.Tree {
	t.Helper()
	e := env.New()
	tr, st := shard.Open(e, filepath.Join(t.TempDir(), "t0"), 0, 0, 1000)
	require.Nil(t, st)
	tr.AddEdge(membuf.MemoryEdge{Src: 1, Dst: 2}) // a->b
	tr.AddEdge(membuf.MemoryEdge{Src: 2, Dst: 3}) // b->c
	tr.AddEdge(membuf.MemoryEdge{Src: 3, Dst: 4}) // c->d
	tr.AddEdge(membuf.MemoryEdge{Src: 1, Dst: 4}) // a->d
	return []*shard.Tree{tr}
}

func TestShortestPathFindsDirectEdgeOverLongerRoute(t *testing.T) {
	trees := buildChain(t)
	eng := queryengine.New(2)
	result := ShortestPath(eng, trees, 1, 4, Budget{})
	require.Equal(t, Ok, result.Code)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "v:1 -e:0-> v:4", result.Data[0])
}

func TestShortestPathSameSrcDst(t *testing.T) {
	trees := buildChain(t)
	eng := queryengine.New(2)
	result := ShortestPath(eng, trees, 1, 1, Budget{})
	assert.Equal(t, Ok, result.Code)
	assert.Equal(t, []string{"v:1"}, result.Data)
}

func TestShortestPathNoRouteReturnsOkEmpty(t *testing.T) {
	trees := buildChain(t)
	eng := queryengine.New(2)
	result := ShortestPath(eng, trees, 4, 1, Budget{})
	assert.Equal(t, Ok, result.Code)
	assert.Empty(t, result.Data)
}

func TestAllPathsFindsBothRoutes(t *testing.T) {
	trees := buildChain(t)
	eng := queryengine.New(2)
	result := AllPaths(eng, trees, 1, 4, Budget{MaxDepth: 5})
	assert.Equal(t, Ok, result.Code)
	assert.Len(t, result.Data, 2)
}

func TestKOutReachesAllWithinHops(t *testing.T) {
	trees := buildChain(t)
	eng := queryengine.New(2)
	result := KOut(eng, trees, 1, 1, Budget{})
	assert.Equal(t, Ok, result.Code)
	assert.Len(t, result.Data, 2) // b and d, both one hop from a
}

func TestKOutSizeReportsCount(t *testing.T) {
	trees := buildChain(t)
	eng := queryengine.New(2)
	result := KOutSize(eng, trees, 1, 3, Budget{})
	assert.Equal(t, Ok, result.Code)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "3", result.Data[0]) // b, c, d all reachable within 3 hops
}
