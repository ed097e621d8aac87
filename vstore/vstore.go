// Package vstore implements the vertex attribute store: a dense,
// vid-indexed array of typed property rows, grown in fixed-size buckets and
// persisted by rewriting plain rows/present files on Flush, per spec §4.4.
//
// Grounded on the teacher's storage/binary mmap-backed column layout
// (mmap_reader.go) generalized from entity rows to the fixed-width vertex
// rows schema.Registry describes, and on its atomic num_vertices/metadata
// rewrite idiom (same temp-file-then-rename pattern used throughout
// storage/binary).
package vstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"skg/codec"
	"skg/logger"
	"skg/schema"
	"skg/skgerr"
)

// BucketSize is the capacity growth unit: vertex-attribute storage grows in
// 50,000-vid buckets per spec §3's invariant.
const BucketSize = 50_000

// rowHeaderBytes: 1 byte tag + 8 bytes property-present bitset, followed by
// the label's own row bytes (variable per schema, capped at schema.MaxRowBytes).
const rowHeaderBytes = 1 + 8

// Row is a decoded vertex attribute row.
type Row struct {
	Tag    uint8
	Bitset codec.Bitset64
	Data   []byte // raw row bytes per the label's schema
}

// Store is the dense vid-indexed vertex attribute array.
type Store struct {
	mu       sync.RWMutex
	dir      string
	registry *schema.Registry
	slotSize int // rowHeaderBytes + schema.MaxRowBytes, fixed per store
	buf      []byte
	present  []bool // per-vid liveness (tombstone tracking)
	maxVid   uint32
	nextVid  uint32
	numLive  uint32 // count of present==true slots, kept incrementally
}

// Open opens (or creates) a vertex attribute store rooted at dir, using
// registry for label-tag lookups. The row slot is sized to accommodate the
// widest label the registry can ever hold (schema.MaxRowBytes), trading
// memory headroom for O(1) slot addressing — the same fixed-slot tradeoff
// the teacher's mmap column reader makes for entity rows.
func Open(dir string, registry *schema.Registry) (*Store, *skgerr.Status) {
	s := &Store{
		dir:      dir,
		registry: registry,
		slotSize: rowHeaderBytes + schema.MaxRowBytes,
	}
	if st := s.load(); st != nil {
		return nil, st
	}
	return s, nil
}

func (s *Store) load() *skgerr.Status {
	if s.dir == "" {
		s.growTo(BucketSize)
		return nil
	}
	data, err := os.ReadFile(filepath.Join(s.dir, "num_vertices"))
	if err != nil {
		if os.IsNotExist(err) {
			s.growTo(BucketSize)
			return nil
		}
		return skgerr.Wrap(skgerr.IOError, err)
	}
	maxVid, _, _, err2 := parseNumVertices(data)
	if err2 != nil {
		return skgerr.Wrap(skgerr.IOError, err2)
	}
	s.maxVid = maxVid
	s.nextVid = maxVid + 1
	s.growTo(capacityFor(s.maxVid))

	rows, err := os.ReadFile(filepath.Join(s.dir, "rows"))
	if err == nil {
		n := len(rows)
		if n > len(s.buf) {
			n = len(s.buf)
		}
		copy(s.buf, rows[:n])
	} else if !os.IsNotExist(err) {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	present, err := os.ReadFile(filepath.Join(s.dir, "present"))
	if err == nil {
		for i := 0; i < len(present) && i < len(s.present); i++ {
			if present[i] != 0 {
				s.present[i] = true
				s.numLive++
			}
		}
	} else if !os.IsNotExist(err) {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	return nil
}

// parseNumVertices parses the "max_allocated_vid storage_capacity
// num_vertices\n" text format spec §6 requires for the num_vertices file.
func parseNumVertices(data []byte) (maxVid, capacity, numVertices uint32, err error) {
	fields := strings.Fields(string(data))
	if len(fields) != 3 {
		return 0, 0, 0, fmt.Errorf("num_vertices: expected 3 fields, got %d", len(fields))
	}
	if _, err = fmt.Sscanf(fields[0], "%d", &maxVid); err != nil {
		return 0, 0, 0, err
	}
	if _, err = fmt.Sscanf(fields[1], "%d", &capacity); err != nil {
		return 0, 0, 0, err
	}
	if _, err = fmt.Sscanf(fields[2], "%d", &numVertices); err != nil {
		return 0, 0, 0, err
	}
	return maxVid, capacity, numVertices, nil
}

func capacityFor(maxVid uint32) uint32 {
	buckets := maxVid/BucketSize + 1
	return buckets * BucketSize
}

// growTo extends the backing buffer to at least n vids, zero-filling the new
// region, per spec §4.4's "extends capacity in 50,000 buckets, zero-fills
// new region" requirement. Must be called with s.mu held.
func (s *Store) growTo(n uint32) {
	want := int(n) * s.slotSize
	if want <= len(s.buf) {
		return
	}
	grown := make([]byte, want)
	copy(grown, s.buf)
	s.buf = grown
	grownPresent := make([]bool, n)
	copy(grownPresent, s.present)
	s.present = grownPresent
}

func (s *Store) slot(vid uint32) []byte {
	off := int(vid) * s.slotSize
	return s.buf[off : off+s.slotSize]
}

// GetAttr returns the row and tag stored for vid.
func (s *Store) GetAttr(vid uint32) (Row, *skgerr.Status) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(vid) >= len(s.present) || !s.present[vid] {
		return Row{}, skgerr.New(skgerr.NotFound, "vertex %d not found", vid)
	}
	slot := s.slot(vid)
	tag := slot[0]
	bitset := codec.Bitset64(codec.Uint64(slot[1:9]))
	data := make([]byte, len(slot)-rowHeaderBytes)
	copy(data, slot[rowHeaderBytes:])
	return Row{Tag: tag, Bitset: bitset, Data: data}, nil
}

// SetAttr writes vid's row for the given label. The caller resolves label
// to a tag via the schema registry; vid must already be allocated.
func (s *Store) SetAttr(vid uint32, label string, row Row) *skgerr.Status {
	tag, st := s.registry.TagByLabel(label)
	if st != nil {
		return st
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(vid) >= len(s.present) {
		return skgerr.New(skgerr.InvalidArgument, "vid %d exceeds allocated capacity", vid)
	}
	slot := s.slot(vid)
	slot[0] = tag
	codec.PutUint64(slot[1:9], uint64(row.Bitset))
	n := copy(slot[rowHeaderBytes:], row.Data)
	for i := rowHeaderBytes + n; i < len(slot); i++ {
		slot[i] = 0
	}
	if !s.present[vid] {
		s.numLive++
	}
	s.present[vid] = true
	return nil
}

// UpdateMaxVid extends capacity, if needed, to cover vid and records it as
// the new high-water mark.
func (s *Store) UpdateMaxVid(vid uint32) *skgerr.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if vid > s.maxVid || len(s.present) == 0 {
		s.maxVid = vid
	}
	s.growTo(capacityFor(s.maxVid))
	return s.persistNumVerticesLocked()
}

// DeleteVertex tombstones vid's row without reclaiming it.
func (s *Store) DeleteVertex(vid uint32) *skgerr.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(vid) >= len(s.present) || !s.present[vid] {
		return skgerr.New(skgerr.NotFound, "vertex %d not found", vid)
	}
	slot := s.slot(vid)
	for i := range slot {
		slot[i] = 0
	}
	s.present[vid] = false
	s.numLive--
	return nil
}

// AllocateNewVid post-increments the shared vid counter, extending capacity
// if needed.
func (s *Store) AllocateNewVid() (uint32, *skgerr.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vid := s.nextVid
	s.nextVid++
	if vid > s.maxVid || len(s.present) == 0 {
		s.maxVid = vid
	}
	s.growTo(capacityFor(s.maxVid))
	if st := s.persistNumVerticesLocked(); st != nil {
		return 0, st
	}
	return vid, nil
}

// GetLabelTag is a thin passthrough to the schema registry, kept on Store
// for callers that only hold a *vstore.Store reference.
func (s *Store) GetLabelTag(label string) (uint8, *skgerr.Status) {
	return s.registry.TagByLabel(label)
}

// persistNumVerticesLocked writes the "max_allocated_vid storage_capacity
// num_vertices\n" text file spec §6 defines: the high-water vid mark, the
// current allocated capacity in vids (a multiple of BucketSize), and the
// live (non-tombstoned) vertex count.
func (s *Store) persistNumVerticesLocked() *skgerr.Status {
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	data := []byte(fmt.Sprintf("%d %d %d\n", s.maxVid, len(s.present), s.numLive))
	tmp := filepath.Join(s.dir, "num_vertices.tmp")
	final := filepath.Join(s.dir, "num_vertices")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		logger.Error("failed to persist num_vertices in %s: %v", s.dir, err)
		return skgerr.Wrap(skgerr.IOError, err)
	}
	return nil
}

// Flush persists the row buffer, presence bitmap and num_vertices metadata.
func (s *Store) Flush() *skgerr.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, "rows"), s.buf, 0644); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	present := make([]byte, len(s.present))
	for i, p := range s.present {
		if p {
			present[i] = 1
		}
	}
	if err := os.WriteFile(filepath.Join(s.dir, "present"), present, 0644); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	return s.persistNumVerticesLocked()
}

// MaxAllocatedVid returns the current high-water mark.
func (s *Store) MaxAllocatedVid() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxVid
}
