// Package skg implements the database facade: the single entry point
// combining the id encoder, schema registries, vertex store, shard trees,
// query engine, and traversal layer into the CRUD/query/bulk-import API
// spec §4.9 describes.
//
// Grounded on the teacher's storage/binary/entity_repository.go (one
// repository type exposing CRUD plus query methods, each serialized by a
// single mutex, opened once at construction and closed once at shutdown)
// restructured around vids/shards instead of entity ids/index files.
package skg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"skg/codec"
	"skg/config"
	"skg/env"
	"skg/idenc"
	"skg/logger"
	"skg/membuf"
	"skg/partition"
	"skg/queryengine"
	"skg/schema"
	"skg/shard"
	"skg/sharder"
	"skg/skgerr"
	"skg/traverse"
	"skg/vstore"
)

// Database is the top-level facade over one skg database directory.
type Database struct {
	mu sync.Mutex // the database-wide write lock (spec §4.9/§5)

	root string
	cfg  *config.Config
	e    *env.Env
	lock *env.FileLock

	ids       idenc.Encoder
	vLabels   *schema.Registry
	eLabels   *schema.Registry
	vattrs    *vstore.Store
	trees     []*shard.Tree
	treeMu    sync.RWMutex
	engine    *queryengine.Engine
}

// treeMeta is the root forest descriptor, one entry per top-level tree.
type treeMeta struct {
	Trees []struct {
		ID     uint32 `json:"id"`
		First  uint32 `json:"first"`
		Second uint32 `json:"second"`
	} `json:"trees"`
}

// Open opens (or creates) a database rooted at root using cfg as given; pass
// nil to load it from SKG_* env vars via config.Load(root).
func Open(root string, cfg *config.Config) (*Database, *skgerr.Status) {
	logger.Configure()
	if cfg == nil {
		cfg = config.Load(root)
	}
	e := env.New()
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, skgerr.Wrap(skgerr.IOError, err)
	}
	lock, err := e.LockFile(filepath.Join(root, "LOCK"))
	if err != nil {
		return nil, skgerr.Wrap(skgerr.IOError, err)
	}

	ids, st := idenc.New(cfg.IDEncoder, filepath.Join(root, "id_mapping"))
	if st != nil {
		return nil, st
	}
	vLabels, st := schema.NewRegistry(schema.VertexKind, filepath.Join(root, "meta", "vertex_attr_conf"))
	if st != nil {
		return nil, st
	}
	eLabels, st := schema.NewRegistry(schema.EdgeKind, filepath.Join(root, "meta", "edge_attr_conf"))
	if st != nil {
		return nil, st
	}
	vattrs, st := vstore.Open(filepath.Join(root, "vdata"), vLabels)
	if st != nil {
		return nil, st
	}

	db := &Database{
		root: root, cfg: cfg, e: e, lock: lock,
		ids: ids, vLabels: vLabels, eLabels: eLabels, vattrs: vattrs,
		engine: queryengine.New(cfg.QueryThreads),
	}
	if st := db.loadTrees(); st != nil {
		return nil, st
	}
	logger.Info("opened skg database at %s (%d shard trees)", root, len(db.trees))
	return db, nil
}

func (db *Database) loadTrees() *skgerr.Status {
	data, err := os.ReadFile(filepath.Join(db.root, "meta", "intervals"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return skgerr.Wrap(skgerr.IOError, err)
	}
	var m treeMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	// Opens run on the open pool (spec §5's open_threads), in parallel.
	type openResult struct {
		tr *shard.Tree
		st *skgerr.Status
	}
	results := make([]openResult, len(m.Trees))
	pool := env.NewPool()
	pool.Resize(env.High, db.cfg.OpenThreads)
	var wg sync.WaitGroup
	for i, tm := range m.Trees {
		i, tm := i, tm
		wg.Add(1)
		pool.Schedule(env.High, func() {
			defer wg.Done()
			dir := filepath.Join(db.root, fmt.Sprintf("shard_%d", tm.ID))
			tr, st := shard.Open(db.e, dir, tm.ID, tm.First, tm.Second)
			results[i] = openResult{tr, st}
		})
	}
	wg.Wait()
	for _, r := range results {
		if r.st != nil {
			return r.st
		}
		db.trees = append(db.trees, r.tr)
	}
	return nil
}

func (db *Database) persistTreeMetaLocked() *skgerr.Status {
	var m treeMeta
	for _, tr := range db.trees {
		first, second := tr.Interval()
		m.Trees = append(m.Trees, struct {
			ID     uint32 `json:"id"`
			First  uint32 `json:"first"`
			Second uint32 `json:"second"`
		}{ID: uint32(len(m.Trees)), First: first, Second: second})
	}
	dir := filepath.Join(db.root, "meta")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	tmp := filepath.Join(dir, "intervals.tmp")
	final := filepath.Join(dir, "intervals")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	return nil
}

// ownerTree returns the tree whose interval contains vid, creating one
// covering [0, vid] if none exists yet, and extending the last tree's
// interval if vid falls past every existing one (spec §8's boundary
// behavior: "adding an edge whose dst lies outside all existing intervals
// extends the last shard's second").
func (db *Database) ownerTree(vid uint32) (*shard.Tree, *skgerr.Status) {
	db.treeMu.Lock()
	defer db.treeMu.Unlock()
	for _, tr := range db.trees {
		if tr.Contains(vid) {
			return tr, nil
		}
	}
	if len(db.trees) == 0 {
		dir := filepath.Join(db.root, "shard_0")
		tr, st := shard.Open(db.e, dir, 0, 0, vid)
		if st != nil {
			return nil, st
		}
		db.trees = append(db.trees, tr)
		return tr, nil
	}
	last := db.trees[len(db.trees)-1]
	last.ExtendSecond(vid)
	return last, nil
}

// CreateVertexLabel registers a new vertex label, assigning it a tag.
func (db *Database) CreateVertexLabel(label string) (uint8, *skgerr.Status) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.vLabels.AddLabel(label)
}

// CreateEdgeLabel registers a new (elabel, srcLabel, dstLabel) tuple, per
// spec §4.3 — elabel may repeat across different src/dst label pairs, each
// getting its own tag. srcLabel/dstLabel are auto-registered as vertex
// labels if not already known, mirroring AddEdge's endpoint-resolution
// policy. weighted sets the persisted schema's is_weighted flag bit.
func (db *Database) CreateEdgeLabel(label, srcLabel, dstLabel string, weighted bool) (uint8, *skgerr.Status) {
	db.mu.Lock()
	defer db.mu.Unlock()
	srcTag, st := db.vLabels.AddLabel(srcLabel)
	if st != nil {
		return 0, st
	}
	dstTag, st := db.vLabels.AddLabel(dstLabel)
	if st != nil {
		return 0, st
	}
	return db.eLabels.AddEdgeLabel(label, srcLabel, srcTag, dstLabel, dstTag, weighted)
}

// AddVertexColumn adds a column to a vertex label's schema.
func (db *Database) AddVertexColumn(label string, col schema.Column) (schema.Column, *skgerr.Status) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.vLabels.AddColumn(label, col)
}

// AddEdgeColumn adds a column to an (elabel, srcLabel, dstLabel) tuple's
// schema.
func (db *Database) AddEdgeColumn(label, srcLabel, dstLabel string, col schema.Column) (schema.Column, *skgerr.Status) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.eLabels.AddEdgeLabelColumn(label, srcLabel, dstLabel, col)
}

// resolveVertex resolves a (label, user) string pair to a vid, optionally
// creating it, per spec §4.9's "request preparation" policy.
func (db *Database) resolveVertex(label, user string, create bool) (uint32, *skgerr.Status) {
	vid, created, st := db.ids.StringID(label, user, create)
	if st != nil {
		return 0, st
	}
	if created {
		if st := db.vattrs.UpdateMaxVid(vid); st != nil {
			return 0, st
		}
		if st := db.vLabels.Flush(); st != nil {
			return 0, st
		}
	}
	return vid, nil
}

// AddEdge inserts or updates an edge from (srcLabel,srcUser) to
// (dstLabel,dstUser) under edgeLabel, per spec §4.9/§3.
func (db *Database) AddEdge(edgeLabel, srcLabel, srcUser, dstLabel, dstUser string, weight float32, props []byte, bitset uint64) *skgerr.Status {
	db.mu.Lock()
	defer db.mu.Unlock()

	// Rejected on the (label, user) pair alone, before either endpoint is
	// resolved: resolveVertex(create=true) persists new vids and flushes
	// vLabels, so checking after it would touch storage for a rejected edge.
	if srcLabel == dstLabel && srcUser == dstUser {
		logger.Debug("rejected self-loop for %s:%s", srcLabel, srcUser)
		return skgerr.New(skgerr.UnSupportSelfLoop, "self-loop rejected for %s:%s", srcLabel, srcUser)
	}

	src, st := db.resolveVertex(srcLabel, srcUser, true)
	if st != nil {
		return st
	}
	dst, st := db.resolveVertex(dstLabel, dstUser, true)
	if st != nil {
		return st
	}
	tag, st := db.eLabels.TagByEdgeLabel(edgeLabel, srcLabel, dstLabel)
	if st != nil {
		logger.Warn("auto-registering edge label %s for (%s,%s): no prior schema", edgeLabel, srcLabel, dstLabel)
		var srcTag, dstTag uint8
		srcTag, st = db.vLabels.AddLabel(srcLabel)
		if st != nil {
			return st
		}
		dstTag, st = db.vLabels.AddLabel(dstLabel)
		if st != nil {
			return st
		}
		tag, st = db.eLabels.AddEdgeLabel(edgeLabel, srcLabel, srcTag, dstLabel, dstTag, true)
		if st != nil {
			return st
		}
	}

	tr, st := db.ownerTree(dst)
	if st != nil {
		return st
	}
	tr.AddEdge(membuf.MemoryEdge{Src: src, Dst: dst, Weight: weight, Tag: tag, Props: props, Bitset: codec.Bitset64(bitset)})
	return nil
}

// DeleteEdge tombstones an edge.
func (db *Database) DeleteEdge(edgeLabel, srcLabel, srcUser, dstLabel, dstUser string) *skgerr.Status {
	db.mu.Lock()
	defer db.mu.Unlock()

	src, st := db.resolveVertex(srcLabel, srcUser, false)
	if st != nil {
		return st
	}
	dst, st := db.resolveVertex(dstLabel, dstUser, false)
	if st != nil {
		return st
	}
	tag, st := db.eLabels.TagByEdgeLabel(edgeLabel, srcLabel, dstLabel)
	if st != nil {
		return st
	}
	tr, st := db.ownerTree(dst)
	if st != nil {
		return st
	}
	if !tr.DeleteEdge(src, dst, tag) {
		return skgerr.New(skgerr.NotFound, "edge not found")
	}
	return nil
}

// EdgeAttr returns the live attributes of the edge (srcLabel:srcUser) ->
// (dstLabel:dstUser) under edgeLabel.
func (db *Database) EdgeAttr(edgeLabel, srcLabel, srcUser, dstLabel, dstUser string) (partition.Record, *skgerr.Status) {
	src, st := db.resolveVertex(srcLabel, srcUser, false)
	if st != nil {
		return partition.Record{}, st
	}
	dst, st := db.resolveVertex(dstLabel, dstUser, false)
	if st != nil {
		return partition.Record{}, st
	}
	tag, st := db.eLabels.TagByEdgeLabel(edgeLabel, srcLabel, dstLabel)
	if st != nil {
		return partition.Record{}, st
	}
	db.treeMu.RLock()
	trees := append([]*shard.Tree(nil), db.trees...)
	db.treeMu.RUnlock()
	for _, tr := range trees {
		if tr.Contains(dst) {
			if r, ok := tr.EdgeAttr(src, dst, tag); ok {
				return r, nil
			}
			return partition.Record{}, skgerr.New(skgerr.NotFound, "edge not found")
		}
	}
	return partition.Record{}, skgerr.New(skgerr.NotFound, "edge not found")
}

// SetVertexAttr writes (label,user)'s attribute row, creating the vertex
// (and registering label) if it doesn't already exist, per spec §4.9's
// write-lock set_vertex_attr.
func (db *Database) SetVertexAttr(label, user string, props []byte, bitset uint64) *skgerr.Status {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, st := db.vLabels.AddLabel(label); st != nil {
		return st
	}
	vid, st := db.resolveVertex(label, user, true)
	if st != nil {
		return st
	}
	return db.vattrs.SetAttr(vid, label, vstore.Row{Bitset: codec.Bitset64(bitset), Data: props})
}

// GetVertexAttr returns (label,user)'s stored attribute row.
func (db *Database) GetVertexAttr(label, user string) (vstore.Row, *skgerr.Status) {
	db.mu.Lock()
	defer db.mu.Unlock()
	vid, st := db.resolveVertex(label, user, false)
	if st != nil {
		return vstore.Row{}, st
	}
	return db.vattrs.GetAttr(vid)
}

// DeleteVertex removes (label,user)'s attribute row, if any (the vid itself is not
// reclaimed, per vstore.Store.DeleteVertex) and tombstones every edge
// touching it as either endpoint, across every shard tree — spec §4.9's
// write-lock delete_vertex. Out-edges can point into any tree (they aren't
// partitioned by src), so both axes are gathered via GetBothEdges before
// removal, rather than just the owning tree's in-edges.
func (db *Database) DeleteVertex(label, user string) *skgerr.Status {
	db.mu.Lock()
	defer db.mu.Unlock()
	vid, st := db.resolveVertex(label, user, false)
	if st != nil {
		return st
	}
	trees := db.snapshotTrees()
	rows, st := db.engine.GetBothEdges(trees, vid, 0)
	if st != nil {
		return st
	}
	logger.Debug("deleting vertex %s:%s (vid %d), cascading %d touching edges", label, user, vid, len(rows))
	for _, r := range rows {
		tr, st := db.ownerTree(r.Dst)
		if st != nil {
			continue
		}
		tr.DeleteEdge(r.Src, r.Dst, r.Tag)
	}
	// A vertex created only through AddEdge has no attribute row to remove.
	if st := db.vattrs.DeleteVertex(vid); st != nil && !st.Is(skgerr.NotFound) {
		return st
	}
	return nil
}

// HasVertex reports whether (label,user) is bound to a vid.
func (db *Database) HasVertex(label, user string) bool {
	_, _, st := db.ids.StringID(label, user, false)
	return st == nil
}

// HasEdgeBetween reports whether an edge exists between the two vertices
// under any tag.
func (db *Database) HasEdgeBetween(srcLabel, srcUser, dstLabel, dstUser string) bool {
	src, st := db.resolveVertex(srcLabel, srcUser, false)
	if st != nil {
		return false
	}
	dst, st := db.resolveVertex(dstLabel, dstUser, false)
	if st != nil {
		return false
	}
	rows, st := db.engine.GetOutEdges(db.snapshotTrees(), src, 0)
	if st != nil {
		return false
	}
	for _, r := range rows {
		if r.Dst == dst {
			return true
		}
	}
	return false
}

func (db *Database) snapshotTrees() []*shard.Tree {
	db.treeMu.RLock()
	defer db.treeMu.RUnlock()
	return append([]*shard.Tree(nil), db.trees...)
}

// OutVertices returns the user-string destinations of src's out-edges
// (spec §4.9's "result translation": vids reversed to strings).
func (db *Database) OutVertices(label, user string, nlimit int) ([]string, *skgerr.Status) {
	vid, st := db.resolveVertex(label, user, false)
	if st != nil {
		return nil, st
	}
	vids, st := db.engine.OutVertices(db.snapshotTrees(), vid, nlimit)
	if st != nil {
		return nil, st
	}
	return db.translate(vids)
}

// InVertices returns the user-string sources of dst's in-edges.
func (db *Database) InVertices(label, user string, nlimit int) ([]string, *skgerr.Status) {
	vid, st := db.resolveVertex(label, user, false)
	if st != nil {
		return nil, st
	}
	vids, st := db.engine.InVertices(db.snapshotTrees(), vid, nlimit)
	if st != nil {
		return nil, st
	}
	return db.translate(vids)
}

func (db *Database) translate(vids []uint32) ([]string, *skgerr.Status) {
	out := make([]string, 0, len(vids))
	for _, vid := range vids {
		_, user, st := db.ids.Lookup(vid)
		if st != nil {
			return nil, st
		}
		out = append(out, user)
	}
	return out, nil
}

// NumEdges returns the total live edge count across every shard tree.
func (db *Database) NumEdges() int {
	total := 0
	for _, tr := range db.snapshotTrees() {
		total += tr.NumEdges()
	}
	return total
}

// NumVertices returns the vertex-store high-water mark plus one (vid 0 is
// allocated on first use).
func (db *Database) NumVertices() uint32 {
	return db.vattrs.MaxAllocatedVid() + 1
}

// ShortestPath resolves (label,user) endpoints to vids and delegates to the
// traversal layer, translating the result's vids back to user strings.
func (db *Database) ShortestPath(srcLabel, srcUser, dstLabel, dstUser string, b traverse.Budget) traverse.Result {
	src, st := db.resolveVertex(srcLabel, srcUser, false)
	if st != nil {
		return traverse.Result{Code: traverse.Err, Msg: st.Error()}
	}
	dst, st := db.resolveVertex(dstLabel, dstUser, false)
	if st != nil {
		return traverse.Result{Code: traverse.Err, Msg: st.Error()}
	}
	return db.translatePathResult(traverse.ShortestPath(db.engine, db.snapshotTrees(), src, dst, b))
}

// AllPaths resolves (label,user) endpoints to vids and returns every
// (cycle-pruned) path between them, per spec §4.11's all-paths variant.
func (db *Database) AllPaths(srcLabel, srcUser, dstLabel, dstUser string, b traverse.Budget) traverse.Result {
	src, st := db.resolveVertex(srcLabel, srcUser, false)
	if st != nil {
		return traverse.Result{Code: traverse.Err, Msg: st.Error()}
	}
	dst, st := db.resolveVertex(dstLabel, dstUser, false)
	if st != nil {
		return traverse.Result{Code: traverse.Err, Msg: st.Error()}
	}
	return db.translatePathResult(traverse.AllPaths(db.engine, db.snapshotTrees(), src, dst, b))
}

// KOut resolves a (label,user) source to a vid and returns every distinct
// vertex reachable within k hops, per spec §4.11's k-out variant.
func (db *Database) KOut(label, user string, k int, b traverse.Budget) traverse.Result {
	src, st := db.resolveVertex(label, user, false)
	if st != nil {
		return traverse.Result{Code: traverse.Err, Msg: st.Error()}
	}
	return db.translatePathResult(traverse.KOut(db.engine, db.snapshotTrees(), src, k, b))
}

// KOutSize is KOut's count-only variant (spec §4.11's k-out-size).
func (db *Database) KOutSize(label, user string, k int, b traverse.Budget) traverse.Result {
	src, st := db.resolveVertex(label, user, false)
	if st != nil {
		return traverse.Result{Code: traverse.Err, Msg: st.Error()}
	}
	return traverse.KOutSize(db.engine, db.snapshotTrees(), src, k, b)
}

// KNeighbor resolves a (label,user) source to a vid and returns its k-hop
// neighborhood, per spec §4.11's k-neighbor variant.
func (db *Database) KNeighbor(label, user string, k int, b traverse.Budget) traverse.Result {
	src, st := db.resolveVertex(label, user, false)
	if st != nil {
		return traverse.Result{Code: traverse.Err, Msg: st.Error()}
	}
	return db.translatePathResult(traverse.KNeighbor(db.engine, db.snapshotTrees(), src, k, b))
}

var (
	pathVertexToken = regexp.MustCompile(`v:(\d+)`)
	pathEdgeToken   = regexp.MustCompile(`e:(\d+)`)
)

// translatePathResult rewrites a traverse.Result's vid/tag-space path
// strings ("v:<vid> -e:<tag>-> v:<vid>") into the original implementation's
// "<label>:<id> -<edgelabel>-> <label>:<id>" rendering (PathAux.cc's
// PathVertex::to_str/PathEdge::path_str). Spec §8 scenario 4's literal
// "v:a -e-> v:d" is this exact format with vertex label "v" and edge label
// "e" substituted in. A token whose vid/tag no longer resolves (deleted
// between traversal and translation) is left as-is rather than failing the
// whole result.
func (db *Database) translatePathResult(r traverse.Result) traverse.Result {
	if len(r.Data) == 0 {
		return r
	}
	out := make([]string, len(r.Data))
	for i, s := range r.Data {
		s = pathVertexToken.ReplaceAllStringFunc(s, func(tok string) string {
			vid, err := strconv.ParseUint(tok[2:], 10, 32)
			if err != nil {
				return tok
			}
			label, user, st := db.ids.Lookup(uint32(vid))
			if st != nil {
				return tok
			}
			return label + ":" + user
		})
		s = pathEdgeToken.ReplaceAllStringFunc(s, func(tok string) string {
			tag, err := strconv.ParseUint(tok[2:], 10, 8)
			if err != nil {
				return tok
			}
			ls, st := db.eLabels.LabelByTag(uint8(tag))
			if st != nil {
				return tok
			}
			return ls.Label
		})
		out[i] = s
	}
	r.Data = out
	return r
}

// BulkImport runs the bulk sharder over a pre-resolved edge stream,
// replacing this database's shard trees (spec §4.8's "creation (bulk)"
// path — intended for an empty or freshly-truncated database).
func (db *Database) BulkImport(edges []sharder.InputEdge) *skgerr.Status {
	db.mu.Lock()
	defer db.mu.Unlock()

	opts := sharder.Options{
		ShovelDir:         db.cfg.BulkShovelDir,
		Workers:           db.cfg.OpenThreads,
		LeafTargetEdges:   db.cfg.LeafTargetEdges,
		MaxIntervalLength: db.cfg.MaxIntervalLength,
		ShardSplitFactor:  db.cfg.ShardSplitFactor,
	}
	result, st := sharder.Run(db.e, db.root, edges, opts)
	if st != nil {
		return st
	}

	db.treeMu.Lock()
	db.trees = nil
	db.treeMu.Unlock()
	for _, dir := range result.TreeDirs {
		base := filepath.Base(dir)
		var id uint32
		fmt.Sscanf(base, "shard_%d", &id)
		data, err := os.ReadFile(filepath.Join(dir, "meta", "intervals"))
		if err != nil {
			return skgerr.Wrap(skgerr.IOError, err)
		}
		var doc struct {
			Interval [2]uint32 `json:"interval"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return skgerr.Wrap(skgerr.IOError, err)
		}
		tr, st := shard.Open(db.e, dir, id, doc.Interval[0], doc.Interval[1])
		if st != nil {
			return st
		}
		db.treeMu.Lock()
		db.trees = append(db.trees, tr)
		db.treeMu.Unlock()
	}
	return db.persistTreeMetaLocked()
}

// Flush serialises every shard tree's memory buffer into an updated leaf
// set and persists schema/id-mapping/vertex-store state.
func (db *Database) Flush() *skgerr.Status {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, tr := range db.trees {
		if tr.BufferSizeBytes() == 0 {
			continue
		}
		if st := tr.Flush(); st != nil {
			return st
		}
	}
	if st := db.ids.Flush(); st != nil {
		return st
	}
	if st := db.vLabels.Flush(); st != nil {
		return st
	}
	if st := db.eLabels.Flush(); st != nil {
		return st
	}
	if st := db.vattrs.Flush(); st != nil {
		return st
	}
	return db.persistTreeMetaLocked()
}

// Close flushes and releases the database's resources, including its lock
// file.
func (db *Database) Close() *skgerr.Status {
	if st := db.Flush(); st != nil {
		return st
	}
	if err := db.e.UnlockFile(db.lock); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	logger.Info("closed skg database at %s", db.root)
	return nil
}

// Drop closes the database and removes its entire directory tree.
func (db *Database) Drop() *skgerr.Status {
	root := db.root
	if db.lock != nil {
		db.e.UnlockFile(db.lock)
	}
	if err := os.RemoveAll(root); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	return nil
}

// ExportData copies the database's on-disk state into dir, for offline
// inspection or backup.
func (db *Database) ExportData(dir string) *skgerr.Status {
	if st := db.Flush(); st != nil {
		return st
	}
	return copyTree(db.root, dir)
}

// copyTree recursively copies src's directory tree into dst, creating dst if
// necessary.
func copyTree(src, dst string) *skgerr.Status {
	err := filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
	if err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	return nil
}
