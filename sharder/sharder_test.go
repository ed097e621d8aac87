package sharder

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skg/env"
	"skg/shard"
)

func TestRunProducesQueryableShards(t *testing.T) {
	e := env.New()
	root := t.TempDir()

	var edges []InputEdge
	for i := uint32(0); i < 50; i++ {
		edges = append(edges, InputEdge{Src: i, Dst: i + 1, Weight: float32(i), Tag: 1})
	}

	result, st := Run(e, root, edges, Options{
		ShovelDir:         filepath.Join(root, ".shovel"),
		Workers:           2,
		ShovelBufferEdges: 10,
		LeafTargetEdges:   5,
		ShardSplitFactor:  2,
	})
	require.Nil(t, st)
	assert.NotEmpty(t, result.TreeDirs)

	// every input edge is readable back through the shard trees
	total := 0
	for i, dir := range result.TreeDirs {
		tr, st := shard.Open(e, dir, uint32(i), 0, ^uint32(0))
		require.Nil(t, st)
		total += tr.NumEdges()
	}
	assert.Equal(t, len(edges), total)
}

func TestRunWithEmptyEdgesProducesNoShards(t *testing.T) {
	e := env.New()
	root := t.TempDir()
	result, st := Run(e, root, nil, Options{ShovelDir: filepath.Join(root, ".shovel")})
	require.Nil(t, st)
	assert.Empty(t, result.TreeDirs)
}
