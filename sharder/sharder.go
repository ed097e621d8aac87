// Package sharder implements the bulk two-phase external sort used to build
// a database from a stream of edges, per spec §4.8: a shovel phase that
// spills sorted runs to disk, a tournament-tree k-way merge phase that
// produces target-sized leaves, and a grouping phase that assembles leaves
// into memory-shards (trees).
//
// Grounded on other_examples' dgraph bulk mapper (shard-sized in-memory
// buffers flushed to per-shard sorted "map" files once full, the same
// shovel-on-overflow shape spec §4.8 Phase A describes). The merge phase
// reads every shovel file whole into memory before merging, closing each
// file as soon as it has been read.
package sharder

import (
	"container/heap"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"skg/env"
	"skg/partition"
	"skg/shard"
	"skg/skgerr"
	"skg/storage/pools"
)

// InputEdge is one edge from the bulk-load stream, already resolved to vids
// by the caller (the database facade handles string-id resolution before
// handing edges to the sharder).
type InputEdge struct {
	Src, Dst uint32
	Weight   float32
	Tag      uint8
	Props    []byte
}

// Options configures the bulk sharder's phase behavior.
type Options struct {
	ShovelDir         string
	Workers           int
	ShovelBufferEdges int // per-worker buffer size before an overflow spill
	LeafTargetEdges   int
	MaxIntervalLength uint64
	ShardSplitFactor  int
	KeepShovels       bool // debug flag: spec §4.8 "unless a debug flag preserves them"
}

// Result is the two-level forest the sharder produced: leaves grouped into
// memory-shards (trees), ready for shard.Open to load.
type Result struct {
	TreeDirs []string // one directory per memory-shard, already populated
}

// Run executes all three phases over edges, writing the output forest under
// dbRoot (one shard_<id> directory per memory-shard).
func Run(e *env.Env, dbRoot string, edges []InputEdge, opts Options) (*Result, *skgerr.Status) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ShovelBufferEdges < 1 {
		opts.ShovelBufferEdges = 100_000
	}
	if opts.LeafTargetEdges < 1 {
		opts.LeafTargetEdges = 1_000_000
	}
	if opts.ShardSplitFactor < 1 {
		opts.ShardSplitFactor = 4
	}
	if opts.MaxIntervalLength == 0 {
		opts.MaxIntervalLength = 50_000_000
	}

	shovelFiles, st := phaseAShovel(edges, opts)
	if st != nil {
		return nil, st
	}
	if !opts.KeepShovels {
		defer cleanupShovels(shovelFiles)
	}

	leaves, st := phaseBMerge(e, dbRoot, shovelFiles, opts)
	if st != nil {
		return nil, st
	}

	treeDirs, st := phaseCGroup(e, dbRoot, leaves, opts)
	if st != nil {
		return nil, st
	}
	return &Result{TreeDirs: treeDirs}, nil
}

// phaseAShovel partitions edges across opts.Workers buffers; each buffer
// spills to its own sorted-by-dst shovel file whenever it would exceed
// ShovelBufferEdges, and once more at the end for any remainder.
func phaseAShovel(edges []InputEdge, opts Options) ([]string, *skgerr.Status) {
	if err := os.MkdirAll(opts.ShovelDir, 0755); err != nil {
		return nil, skgerr.Wrap(skgerr.IOError, err)
	}

	buffers := make([][]InputEdge, opts.Workers)
	var files []string
	var mu sync.Mutex
	var wg sync.WaitGroup
	flushCh := make(chan struct {
		worker int
		buf    []InputEdge
	}, opts.Workers*2)

	// A bounded number of flush goroutines drains overflowed buffers; the
	// caller stalls (via the channel's backpressure) when the pool is
	// saturated, matching spec §4.8's "main thread stalls when the pool is
	// saturated".
	flushWorkers := opts.Workers
	if flushWorkers > 4 {
		flushWorkers = 4
	}
	var flushErr *skgerr.Status
	var errMu sync.Mutex
	for i := 0; i < flushWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range flushCh {
				path, err := writeShovelFile(opts.ShovelDir, job.worker, job.buf)
				if err != nil {
					errMu.Lock()
					if flushErr == nil {
						flushErr = err
					}
					errMu.Unlock()
					continue
				}
				mu.Lock()
				files = append(files, path)
				mu.Unlock()
			}
		}()
	}

	for i, edge := range edges {
		w := i % opts.Workers
		buffers[w] = append(buffers[w], edge)
		if len(buffers[w]) >= opts.ShovelBufferEdges {
			flushCh <- struct {
				worker int
				buf    []InputEdge
			}{w, buffers[w]}
			buffers[w] = nil
		}
	}
	for w, buf := range buffers {
		if len(buf) > 0 {
			flushCh <- struct {
				worker int
				buf    []InputEdge
			}{w, buf}
		}
	}
	close(flushCh)
	wg.Wait()

	if flushErr != nil {
		return nil, flushErr
	}
	sort.Strings(files)
	return files, nil
}

func writeShovelFile(dir string, worker int, buf []InputEdge) (string, *skgerr.Status) {
	sorted := append([]InputEdge(nil), buf...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Dst < sorted[j].Dst })

	path := filepath.Join(dir, fmt.Sprintf("shovel_%d_%d", worker, len(sorted)))
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("%s_%d", path, i)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			path = candidate
			break
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return "", skgerr.Wrap(skgerr.IOError, err)
	}
	defer f.Close()

	scratch := pools.GetLargeBuffer()
	defer pools.PutLargeBuffer(scratch)
	if err := gob.NewEncoder(scratch).Encode(sorted); err != nil {
		return "", skgerr.Wrap(skgerr.IOError, err)
	}
	if _, err := f.Write(scratch.Bytes()); err != nil {
		return "", skgerr.Wrap(skgerr.IOError, err)
	}
	return path, nil
}

func cleanupShovels(files []string) {
	for _, f := range files {
		os.Remove(f)
	}
}

func readShovelFile(path string) ([]InputEdge, *skgerr.Status) {
	f, err := os.Open(path)
	if err != nil {
		return nil, skgerr.Wrap(skgerr.IOError, err)
	}
	defer f.Close()
	var edges []InputEdge
	dec := gob.NewDecoder(f)
	if err := dec.Decode(&edges); err != nil {
		return nil, skgerr.Wrap(skgerr.IOError, err)
	}
	return edges, nil
}

// mergeItem is one element of the tournament-tree merge heap: the next
// unread edge from a shovel file plus that file's cursor.
type mergeItem struct {
	edge      InputEdge
	fileIdx   int
	cursor    int
}

type mergeHeap []*mergeItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if h[i].edge.Dst != h[j].edge.Dst {
		return h[i].edge.Dst < h[j].edge.Dst
	}
	return h[i].edge.Src < h[j].edge.Src
}
func (h mergeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x interface{}) { *h = append(*h, x.(*mergeItem)) }
func (h *mergeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// leafSpec is one built leaf's interval, produced during Phase B.
type leafSpec struct {
	dir      string
	interval [2]uint32
}

// phaseBMerge tournament-merges every shovel file, keyed by dst, emitting
// target-sized leaves. An interval boundary only falls between two
// different dst values, and is forced early if the running interval would
// exceed MaxIntervalLength even though the leaf isn't full yet.
func phaseBMerge(e *env.Env, dbRoot string, shovelFiles []string, opts Options) ([]leafSpec, *skgerr.Status) {
	runs := make([][]InputEdge, len(shovelFiles))
	for i, f := range shovelFiles {
		edges, st := readShovelFile(f)
		if st != nil {
			return nil, st
		}
		runs[i] = edges
	}

	h := &mergeHeap{}
	heap.Init(h)
	for i, run := range runs {
		if len(run) > 0 {
			heap.Push(h, &mergeItem{edge: run[0], fileIdx: i, cursor: 0})
		}
	}

	var leaves []leafSpec
	var sink []partition.Record
	leafStart := uint32(0)
	havePrevDst := false
	var prevDst uint32
	leafIdx := 0

	flush := func(upperBound uint32) *skgerr.Status {
		if len(sink) == 0 {
			return nil
		}
		linkChainsByPosition(sink)
		dir := filepath.Join(dbRoot, ".sharder_leaves", fmt.Sprintf("leaf_%d", leafIdx))
		if st := partition.BuildLeaf(e, dir, [2]uint32{leafStart, upperBound}, sink, nil, nil); st != nil {
			return st
		}
		leaves = append(leaves, leafSpec{dir: dir, interval: [2]uint32{leafStart, upperBound}})
		leafIdx++
		sink = nil
		leafStart = upperBound + 1
		return nil
	}

	for h.Len() > 0 {
		top := heap.Pop(h).(*mergeItem)
		edge := top.edge

		if havePrevDst && edge.Dst != prevDst && uint64(edge.Dst)-uint64(leafStart) > opts.MaxIntervalLength && opts.MaxIntervalLength > 0 {
			if st := flush(prevDst); st != nil {
				return nil, st
			}
		}

		rec := partition.Record{Src: edge.Src, Dst: edge.Dst, Weight: edge.Weight, Tag: edge.Tag, Next: partition.NoNext}
		sink = append(sink, rec)
		prevDst = edge.Dst
		havePrevDst = true

		if len(sink) >= opts.LeafTargetEdges {
			// Only cut here once the next edge (if any) starts a new dst,
			// per spec §4.8 Phase B: "when the buffer fills and the next
			// edge has a new dst".
			nextDifferent := h.Len() == 0
			if h.Len() > 0 {
				nextDifferent = (*h)[0].edge.Dst != edge.Dst
			}
			if nextDifferent {
				if st := flush(edge.Dst); st != nil {
					return nil, st
				}
			}
		}

		run := runs[top.fileIdx]
		nextCursor := top.cursor + 1
		if nextCursor < len(run) {
			heap.Push(h, &mergeItem{edge: run[nextCursor], fileIdx: top.fileIdx, cursor: nextCursor})
		}
	}
	if st := flush(maxUint32(prevDst, leafStart)); st != nil {
		return nil, st
	}
	return leaves, nil
}

func maxUint32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func linkChainsByPosition(records []partition.Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Dst != records[j].Dst {
			return records[i].Dst < records[j].Dst
		}
		return records[i].Src < records[j].Src
	})
	lastPosForDst := make(map[uint32]int)
	for i := range records {
		records[i].Next = partition.NoNext
	}
	for i, r := range records {
		if prev, ok := lastPosForDst[r.Dst]; ok {
			records[prev].Next = uint32(i)
		}
		lastPosForDst[r.Dst] = i
	}
}

// phaseCGroup assembles consecutive leaves into memory-shards of
// opts.ShardSplitFactor leaves each; a single orphan tail is promoted into
// its own memory-shard rather than left underfilled and silently dropped.
func phaseCGroup(e *env.Env, dbRoot string, leaves []leafSpec, opts Options) ([]string, *skgerr.Status) {
	var treeDirs []string
	for i := 0; i < len(leaves); i += opts.ShardSplitFactor {
		end := i + opts.ShardSplitFactor
		if end > len(leaves) {
			end = len(leaves)
		}
		group := leaves[i:end]
		treeID := uint32(len(treeDirs))
		treeDir := filepath.Join(dbRoot, fmt.Sprintf("shard_%d", treeID))
		if err := os.MkdirAll(treeDir, 0755); err != nil {
			return nil, skgerr.Wrap(skgerr.IOError, err)
		}
		first := group[0].interval[0]
		last := group[len(group)-1].interval[1]
		type childSpec struct {
			ID       uint32    `json:"id"`
			Interval [2]uint32 `json:"interval"`
		}
		type intervalsDoc struct {
			ID       uint32      `json:"id"`
			Interval [2]uint32   `json:"interval"`
			Children []childSpec `json:"children"`
		}
		doc := intervalsDoc{ID: treeID, Interval: [2]uint32{first, last}}
		for leafIdx, spec := range group {
			dest := filepath.Join(treeDir, fmt.Sprintf("leaf_%d", leafIdx))
			if err := os.Rename(spec.dir, dest); err != nil {
				return nil, skgerr.Wrap(skgerr.IOError, err)
			}
			doc.Children = append(doc.Children, childSpec{ID: uint32(leafIdx), Interval: spec.interval})
		}
		if err := os.MkdirAll(filepath.Join(treeDir, "meta"), 0755); err != nil {
			return nil, skgerr.Wrap(skgerr.IOError, err)
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, skgerr.Wrap(skgerr.IOError, err)
		}
		if err := os.WriteFile(filepath.Join(treeDir, "meta", "intervals"), data, 0644); err != nil {
			return nil, skgerr.Wrap(skgerr.IOError, err)
		}

		tr, st := shard.Open(e, treeDir, treeID, first, last)
		if st != nil {
			return nil, st
		}
		_ = tr // opened once to validate the freshly written forest loads cleanly
		treeDirs = append(treeDirs, treeDir)
	}
	if err := os.RemoveAll(filepath.Join(dbRoot, ".sharder_leaves")); err != nil {
		return nil, skgerr.Wrap(skgerr.IOError, err)
	}
	return treeDirs, nil
}
