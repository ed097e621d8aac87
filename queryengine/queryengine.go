// Package queryengine implements the concurrent fan-out query engine: a
// fixed-size worker pool dispatching per-shard closures into a shared,
// mutex-guarded result set, per spec §4.10.
//
// Grounded on the teacher's storage/binary/parallel_query.go (fixed worker
// pool, shared result accumulator protected by one mutex, early-exit once a
// limit is reached) generalized from entity queries to shard-tree fan-out.
package queryengine

import (
	"sync"

	"skg/partition"
	"skg/shard"
	"skg/skgerr"
)

// Engine runs out-edge/in-edge fan-out queries across a set of shard trees
// using a fixed-size worker pool.
type Engine struct {
	workers int
}

// New constructs an Engine with the given fixed worker count (spec's
// query_threads).
func New(workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{workers: workers}
}

// sharedResult is the mutex-guarded accumulator every fan-out task appends
// to, with nlimit short-circuiting once it is reached.
type sharedResult struct {
	mu     sync.Mutex
	nlimit int
	rows   []partition.Record
	overLimit bool
}

func (r *sharedResult) tryAppend(rows []partition.Record) (accepted int, full bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		if len(r.rows) >= r.nlimit {
			r.overLimit = true
			return accepted, true
		}
		r.rows = append(r.rows, row)
		accepted++
	}
	return accepted, len(r.rows) >= r.nlimit
}

// GetOutEdges dispatches one out-edge fan-out task per tree; trees whose
// interval cannot possibly hold src-owned edges are still dispatched, since
// out-edges are not partitioned by src (only in-edges are owned by a single
// tree, via dst). Tasks run on the engine's fixed worker pool and
// short-circuit once the shared result reaches nlimit, per spec §4.10.
func (e *Engine) GetOutEdges(trees []*shard.Tree, src uint32, nlimit int) ([]partition.Record, *skgerr.Status) {
	if nlimit <= 0 {
		nlimit = 1 << 30
	}
	result := &sharedResult{nlimit: nlimit}
	e.fanOut(trees, func(tr *shard.Tree) {
		var local []partition.Record
		tr.GetOutEdges(src, nlimit, &local)
		result.tryAppend(local)
	})
	return result.rows, nil
}

// GetInEdges dispatches to exactly one tree — the one owning dst — per
// spec §4.10's "get_in_edges dispatches to exactly one tree".
func (e *Engine) GetInEdges(trees []*shard.Tree, dst uint32, nlimit int) ([]partition.Record, *skgerr.Status) {
	if nlimit <= 0 {
		nlimit = 1 << 30
	}
	for _, tr := range trees {
		if tr.Contains(dst) {
			var local []partition.Record
			tr.GetInEdges(dst, nlimit, &local)
			return local, nil
		}
	}
	return nil, nil
}

// GetBothEdges returns the union of GetOutEdges and GetInEdges for vid.
func (e *Engine) GetBothEdges(trees []*shard.Tree, vid uint32, nlimit int) ([]partition.Record, *skgerr.Status) {
	out, st := e.GetOutEdges(trees, vid, nlimit)
	if st != nil {
		return nil, st
	}
	in, st := e.GetInEdges(trees, vid, nlimit)
	if st != nil {
		return nil, st
	}
	combined := append(out, in...)
	if nlimit > 0 && len(combined) > nlimit {
		combined = combined[:nlimit]
	}
	return combined, nil
}

// fanOut runs fn once per tree on the engine's fixed worker pool, blocking
// until every task completes.
func (e *Engine) fanOut(trees []*shard.Tree, fn func(*shard.Tree)) {
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup
	for _, tr := range trees {
		tr := tr
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			fn(tr)
		}()
	}
	wg.Wait()
}

// OutVertices collects destination vids for src's out-edges across every
// tree (spec §4.10's "get_out_vertices first collect destination vids per
// shard then issue a batched vertex-attr read" — the batched attr read
// itself is the database facade's job, this returns the vid set).
func (e *Engine) OutVertices(trees []*shard.Tree, src uint32, nlimit int) ([]uint32, *skgerr.Status) {
	rows, st := e.GetOutEdges(trees, src, nlimit)
	if st != nil {
		return nil, st
	}
	seen := make(map[uint32]bool)
	var out []uint32
	for _, r := range rows {
		if !seen[r.Dst] {
			seen[r.Dst] = true
			out = append(out, r.Dst)
		}
	}
	return out, nil
}

// InVertices collects source vids for dst's in-edges.
func (e *Engine) InVertices(trees []*shard.Tree, dst uint32, nlimit int) ([]uint32, *skgerr.Status) {
	rows, st := e.GetInEdges(trees, dst, nlimit)
	if st != nil {
		return nil, st
	}
	seen := make(map[uint32]bool)
	var out []uint32
	for _, r := range rows {
		if !seen[r.Src] {
			seen[r.Src] = true
			out = append(out, r.Src)
		}
	}
	return out, nil
}
