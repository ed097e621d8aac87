// Package membuf implements the per-shard memory buffer: an in-memory,
// sorted-by-(dst,src) collection of pending edge mutations that sits in
// front of a shard's on-disk leaves, per spec §4.6.
//
// Grounded on the teacher's storage/binary/bounded_entity_cache.go (an
// in-memory write-behind buffer ahead of durable storage) restructured
// around (src,dst,tag) dedup instead of entity-id dedup, and on its
// locks_sharded.go mutex-per-bucket idiom for the buffer's own guard.
package membuf

import (
	"sort"
	"sync"

	"skg/codec"
)

// MemoryEdge is a buffered edge mutation: the persistent record fields plus
// a variable-length property byte vector (the persistent format's column
// blocks are fixed-width parallel files; the buffer just keeps the whole
// row inline until it is flushed into a leaf).
type MemoryEdge struct {
	Src, Dst uint32
	Weight   float32
	Tag      uint8
	Bitset   codec.Bitset64
	Props    []byte
	Tomb     bool
}

func key(src, dst uint32, tag uint8) uint64 {
	return uint64(dst)<<32 | uint64(src)<<8 | uint64(tag)
}

// Buffer is the sorted, deduplicated in-memory edge set for one shard.
type Buffer struct {
	mu      sync.RWMutex
	byKey   map[uint64]*MemoryEdge
	dirty   bool // true once byKey has entries not reflected in sorted cache
	sorted  []*MemoryEdge
	sizeHintBytes int
}

// New constructs an empty buffer.
func New() *Buffer {
	return &Buffer{byKey: make(map[uint64]*MemoryEdge)}
}

// Upsert inserts a new edge or overwrites the attributes of an existing
// (src,dst,tag) triple — spec §3's "parallel edges are merged" rule.
func (b *Buffer) Upsert(e MemoryEdge) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key(e.Src, e.Dst, e.Tag)
	if existing, ok := b.byKey[k]; ok {
		b.sizeHintBytes -= len(existing.Props)
		*existing = e
	} else {
		cp := e
		b.byKey[k] = &cp
	}
	b.sizeHintBytes += len(e.Props) + int(partitionRecordOverhead)
	b.dirty = true
}

// partitionRecordOverhead approximates the fixed adjacency-record width for
// size-trigger accounting (25 bytes per spec §4.5), without importing the
// partition package (membuf must not depend on the on-disk format package).
const partitionRecordOverhead = 25

// Delete tombstones (src,dst,tag) if present; it does not remove the entry
// from the buffer since the tombstone itself must be visible to readers
// until the owning leaf absorbs it at the next flush.
func (b *Buffer) Delete(src, dst uint32, tag uint8) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key(src, dst, tag)
	e, ok := b.byKey[k]
	if !ok {
		return false
	}
	e.Tomb = true
	b.dirty = true
	return true
}

// Get returns the live (non-tombstoned) edge for (src,dst,tag), if any.
func (b *Buffer) Get(src, dst uint32, tag uint8) (MemoryEdge, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.byKey[key(src, dst, tag)]
	if !ok || e.Tomb {
		return MemoryEdge{}, false
	}
	return *e, true
}

// OutEdges returns every buffered edge (live and tombstoned — callers must
// check Tomb to reconcile against leaf state) with Src == src.
func (b *Buffer) OutEdges(src uint32) []MemoryEdge {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []MemoryEdge
	for _, e := range b.byKey {
		if e.Src == src {
			out = append(out, *e)
		}
	}
	return out
}

// InEdges returns every buffered edge with Dst == dst.
func (b *Buffer) InEdges(dst uint32) []MemoryEdge {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []MemoryEdge
	for _, e := range b.byKey {
		if e.Dst == dst {
			out = append(out, *e)
		}
	}
	return out
}

// Len returns the number of distinct (src,dst,tag) entries, live or
// tombstoned.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byKey)
}

// SizeBytes is a size-trigger estimate used by the shard tree to decide
// when to flush (spec §4.6's memory_shard_size_mb trigger).
func (b *Buffer) SizeBytes() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sizeHintBytes
}

// Sorted returns every buffered edge ordered by (dst,src), matching the
// on-disk leaf ordering so a flush can merge it directly against leaves.
func (b *Buffer) Sorted() []MemoryEdge {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.dirty && b.sorted != nil {
		out := make([]MemoryEdge, len(b.sorted))
		for i, e := range b.sorted {
			out[i] = *e
		}
		return out
	}
	edges := make([]*MemoryEdge, 0, len(b.byKey))
	for _, e := range b.byKey {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Dst != edges[j].Dst {
			return edges[i].Dst < edges[j].Dst
		}
		return edges[i].Src < edges[j].Src
	})
	b.sorted = edges
	b.dirty = false
	out := make([]MemoryEdge, len(edges))
	for i, e := range edges {
		out[i] = *e
	}
	return out
}

// Clear empties the buffer, typically called right after its contents have
// been durably flushed into new leaves.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byKey = make(map[uint64]*MemoryEdge)
	b.sorted = nil
	b.dirty = false
	b.sizeHintBytes = 0
}
