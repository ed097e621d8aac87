// Package partition implements the on-disk edge leaf format: a
// sorted-by-(dst,src) adjacency file with sparse src/dst indices and
// parallel property column blocks, per spec §4.5 and §6's on-disk layout.
//
// Grounded on the teacher's storage/binary/mmap_reader.go (mmap a whole
// file read-only, expose a zero-copy byte view owned by the reader) and
// storage/binary/format.go's fixed-width little-endian record layout,
// generalized from entity records to the 25-byte adjacency record spec §6
// defines. golang.org/x/crypto/blake2b is wired for a leaf content checksum
// in meta, completing the corruption-detection concern the teacher's own
// storage/binary/corruption_detector.go gestures at without ever picking a
// hash implementation.
package partition

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/crypto/blake2b"

	"skg/codec"
	"skg/env"
	"skg/skgerr"
	"skg/storage/pools"
)

// RecordSize is the fixed adjacency-record width: src:u32 | dst:u32 |
// weight:f32 | tag:u8 | next:u32 | bitset:u64.
const RecordSize = 4 + 4 + 4 + 1 + 4 + 8

// NoNext is the sentinel "no further record in this dst chain" value; the
// top bit of next is the tombstone flag so only 31 bits are available.
const NoNext = uint32(1<<31) - 1

const tombstoneBit = uint32(1) << 31

// Record is a decoded adjacency record.
type Record struct {
	Src    uint32
	Dst    uint32
	Weight float32
	Tag    uint8
	Next   uint32 // link to the next record sharing Dst, NoNext if none
	Tomb   bool
	Bitset codec.Bitset64
}

func encodeRecord(r Record) []byte {
	buf := make([]byte, RecordSize)
	codec.PutUint32(buf[0:4], r.Src)
	codec.PutUint32(buf[4:8], r.Dst)
	codec.PutUint32(buf[8:12], float32bits(r.Weight))
	buf[12] = r.Tag
	next := r.Next
	if r.Tomb {
		next |= tombstoneBit
	}
	codec.PutUint32(buf[13:17], next)
	codec.PutUint64(buf[17:25], uint64(r.Bitset))
	return buf
}

func decodeRecord(buf []byte) Record {
	next := codec.Uint32(buf[13:17])
	return Record{
		Src:    codec.Uint32(buf[0:4]),
		Dst:    codec.Uint32(buf[4:8]),
		Weight: float32frombits(codec.Uint32(buf[8:12])),
		Tag:    buf[12],
		Next:   next &^ tombstoneBit,
		Tomb:   next&tombstoneBit != 0,
		Bitset: codec.Bitset64(codec.Uint64(buf[17:25])),
	}
}

// idxEntry is one (value, position) pair in a sparse index file.
type idxEntry struct {
	Value uint32
	Pos   uint32
}

const idxEntrySize = 8

func encodeIdx(entries []idxEntry) []byte {
	buf := make([]byte, len(entries)*idxEntrySize)
	for i, e := range entries {
		off := i * idxEntrySize
		codec.PutUint32(buf[off:off+4], e.Value)
		codec.PutUint32(buf[off+4:off+8], e.Pos)
	}
	return buf
}

func decodeIdx(buf []byte) []idxEntry {
	n := len(buf) / idxEntrySize
	out := make([]idxEntry, n)
	for i := 0; i < n; i++ {
		off := i * idxEntrySize
		out[i] = idxEntry{Value: codec.Uint32(buf[off : off+4]), Pos: codec.Uint32(buf[off+4 : off+8])}
	}
	return out
}

// encodeU32s/decodeU32s persist a permutation array: perm[rank] is the
// physical adj-file position of the rank-th record in some sort order.
func encodeU32s(vals []uint32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		codec.PutUint32(buf[i*4:i*4+4], v)
	}
	return buf
}

func decodeU32s(buf []byte) []uint32 {
	n := len(buf) / 4
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = codec.Uint32(buf[i*4 : i*4+4])
	}
	return out
}

// Meta is the leaf's interval and counts, persisted as JSON in the leaf's
// meta file.
type Meta struct {
	First    uint32 `json:"first"`
	Second   uint32 `json:"second"`
	NumEdges int    `json:"num_edges"`
	Checksum string `json:"checksum,omitempty"`
}

// Leaf is a read-only on-disk edge partition covering interval [First,Second].
// Once built it never changes; leaf replacement happens only at merge/split,
// when the whole directory is atomically swapped.
type Leaf struct {
	dir     string
	e       *env.Env
	records []byte // the raw adj file, mmap-backed when available
	srcIdx  []idxEntry
	srcPerm []uint32 // srcPerm[rank] = physical adj position of that src-sorted rank
	dstIdx  []idxEntry
	meta    Meta
	cols    map[string]*env.RandomAccessFile
}

// BuildLeaf writes a new leaf directory from a pre-sorted (by dst,src)
// slice of records plus their parallel column values. cols maps column name
// to a slice of raw column-width bytes, one entry per record in the same
// order as records.
func BuildLeaf(e *env.Env, dir string, interval [2]uint32, records []Record, cols map[string][]byte, colWidth map[string]int) *skgerr.Status {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "col"), 0755); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}

	adjBuf := pools.GetBuffer()
	defer pools.PutBuffer(adjBuf)
	for _, r := range records {
		adjBuf.Write(encodeRecord(r))
	}
	adj := adjBuf.Bytes()
	if err := os.WriteFile(filepath.Join(dir, "adj"), adj, 0644); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}

	srcIdx, srcPerm := buildSparseIndex(records, func(r Record) uint32 { return r.Src })
	dstIdx := buildFirstInIndex(records)
	if err := os.WriteFile(filepath.Join(dir, "src.idx"), encodeIdx(srcIdx), 0644); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src.perm"), encodeU32s(srcPerm), 0644); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "dst.idx"), encodeIdx(dstIdx), 0644); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}

	for name, data := range cols {
		if err := os.WriteFile(filepath.Join(dir, "col", name), data, 0644); err != nil {
			return skgerr.Wrap(skgerr.IOError, err)
		}
	}

	sum := blake2b.Sum256(adj)
	meta := Meta{First: interval[0], Second: interval[1], NumEdges: len(records), Checksum: hexEncode(sum[:])}
	data, err := json.Marshal(meta)
	if err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "meta"), data, 0644); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	return nil
}

// buildSparseIndex groups consecutive equal keys, under a sort by key, into
// (key, firstRank) pairs. records is physically ordered by (dst,src), which
// need not agree with key's order (e.g. key == Src), so the index ranks are
// positions into a separate perm array rather than into records itself;
// perm[rank] gives the physical position in records that rank corresponds
// to. Callers resolve a rank to a Record via records[perm[rank]], never by
// indexing records directly with a rank.
func buildSparseIndex(records []Record, key func(Record) uint32) ([]idxEntry, []uint32) {
	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return key(records[order[i]]) < key(records[order[j]]) })

	perm := make([]uint32, len(order))
	var out []idxEntry
	var last uint32
	have := false
	for rank, origPos := range order {
		perm[rank] = uint32(origPos)
		k := key(records[origPos])
		if !have || k != last {
			out = append(out, idxEntry{Value: k, Pos: uint32(rank)})
			last = k
			have = true
		}
	}
	return out, perm
}

// buildFirstInIndex returns, for each distinct Dst in records (already
// sorted by (dst,src) by the caller), the position of the chain head.
func buildFirstInIndex(records []Record) []idxEntry {
	var out []idxEntry
	var last uint32
	have := false
	for i, r := range records {
		if !have || r.Dst != last {
			out = append(out, idxEntry{Value: r.Dst, Pos: uint32(i)})
			last = r.Dst
			have = true
		}
	}
	return out
}

// Open mmaps an existing leaf directory for reads, rejecting it with
// IOError when the adj file does not match the checksum recorded in meta.
func Open(e *env.Env, dir string) (*Leaf, *skgerr.Status) {
	l := &Leaf{dir: dir, e: e, cols: make(map[string]*env.RandomAccessFile)}

	metaData, err := os.ReadFile(filepath.Join(dir, "meta"))
	if err != nil {
		return nil, skgerr.Wrap(skgerr.IOError, err)
	}
	if err := json.Unmarshal(metaData, &l.meta); err != nil {
		return nil, skgerr.Wrap(skgerr.IOError, err)
	}

	adjFile, err2 := e.NewRandomAccessFile(filepath.Join(dir, "adj"), env.OpenOptions{MMapRead: true})
	if err2 != nil {
		return nil, skgerr.Wrap(skgerr.IOError, err2)
	}
	l.records = adjFile.Bytes()
	if l.records == nil {
		l.records = []byte{}
	}
	if l.meta.Checksum != "" {
		sum := blake2b.Sum256(l.records)
		if hexEncode(sum[:]) != l.meta.Checksum {
			return nil, skgerr.New(skgerr.IOError, "leaf %s: adj checksum mismatch", dir)
		}
	}

	srcIdxData, err := os.ReadFile(filepath.Join(dir, "src.idx"))
	if err != nil && !os.IsNotExist(err) {
		return nil, skgerr.Wrap(skgerr.IOError, err)
	}
	l.srcIdx = decodeIdx(srcIdxData)

	srcPermData, err := os.ReadFile(filepath.Join(dir, "src.perm"))
	if err != nil && !os.IsNotExist(err) {
		return nil, skgerr.Wrap(skgerr.IOError, err)
	}
	l.srcPerm = decodeU32s(srcPermData)

	dstIdxData, err := os.ReadFile(filepath.Join(dir, "dst.idx"))
	if err != nil && !os.IsNotExist(err) {
		return nil, skgerr.Wrap(skgerr.IOError, err)
	}
	l.dstIdx = decodeIdx(dstIdxData)

	return l, nil
}

// Interval returns the leaf's [first, second] vid range.
func (l *Leaf) Interval() (uint32, uint32) { return l.meta.First, l.meta.Second }

// NumEdges returns the live-and-tombstoned record count at build time.
func (l *Leaf) NumEdges() int { return l.meta.NumEdges }

func (l *Leaf) recordAt(pos uint32) Record {
	off := int(pos) * RecordSize
	return decodeRecord(l.records[off : off+RecordSize])
}

func (l *Leaf) recordCount() int { return len(l.records) / RecordSize }

// OutEdges returns every live record with Src == src. src.idx ranks a
// permutation of records sorted by Src (records itself stays physically
// sorted by (dst,src)), so a matched [start,end) rank range is resolved
// through srcPerm to the records each rank actually names.
func (l *Leaf) OutEdges(src uint32) []Record {
	s, e := rangeFor(l.srcIdx, src, len(l.srcPerm))
	out := make([]Record, 0, e-s)
	for rank := s; rank < e; rank++ {
		r := l.recordAt(l.srcPerm[rank])
		if r.Src != src {
			continue
		}
		if !r.Tomb {
			out = append(out, r)
		}
	}
	return out
}

// AllRecords returns every physical record in the leaf, live and
// tombstoned, in on-disk (dst,src) order. Unlike OutEdges/InEdges — which
// are keyed lookups that only surface records reachable from one axis's
// index — this enumerates the full adj file, which callers reconstructing
// a leaf's complete state (e.g. a merge ahead of a flush or split) need.
func (l *Leaf) AllRecords() []Record {
	n := l.recordCount()
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = l.recordAt(uint32(i))
	}
	return out
}

// InEdges returns every live record with Dst == dst, walking the next chain
// from the dst-index chain head.
func (l *Leaf) InEdges(dst uint32) []Record {
	pos, ok := firstIn(l.dstIdx, dst)
	if !ok {
		return nil
	}
	var out []Record
	for pos != NoNext {
		if int(pos) >= l.recordCount() {
			break
		}
		r := l.recordAt(pos)
		if r.Dst != dst {
			break
		}
		if !r.Tomb {
			out = append(out, r)
		}
		pos = r.Next
	}
	return out
}

// EdgeAttr returns the first live record matching (src, dst, tag), scanning
// src's out-edge range.
func (l *Leaf) EdgeAttr(src, dst uint32, tag uint8) (Record, bool) {
	for _, r := range l.OutEdges(src) {
		if r.Dst == dst && r.Tag == tag {
			return r, true
		}
	}
	return Record{}, false
}

// rangeFor binary-searches a sparse (value,pos) index built over some rank
// space sorted by the index's key, returning the [start,end) rank range
// covered by value. rankSpaceSize bounds end for the index's last entry.
func rangeFor(idx []idxEntry, value uint32, rankSpaceSize int) (int, int) {
	i := sort.Search(len(idx), func(i int) bool { return idx[i].Value >= value })
	if i >= len(idx) || idx[i].Value != value {
		return 0, 0
	}
	start := int(idx[i].Pos)
	end := rankSpaceSize
	if i+1 < len(idx) {
		end = int(idx[i+1].Pos)
	}
	return start, end
}

func firstIn(idx []idxEntry, value uint32) (uint32, bool) {
	i := sort.Search(len(idx), func(i int) bool { return idx[i].Value >= value })
	if i >= len(idx) || idx[i].Value != value {
		return 0, false
	}
	return idx[i].Pos, true
}

// Column reads a column block's raw bytes for the record at pos (zero-based
// position within adj), given the column's fixed width.
func (l *Leaf) Column(e *env.Env, name string, pos uint32, width int) ([]byte, *skgerr.Status) {
	f, ok := l.cols[name]
	if !ok {
		var st *skgerr.Status
		f, st = openColumn(e, l.dir, name)
		if st != nil {
			return nil, st
		}
		l.cols[name] = f
	}
	if f == nil {
		return make([]byte, width), nil // column file absent: all-null
	}
	buf := make([]byte, width)
	if _, err := f.ReadAt(buf, int64(pos)*int64(width)); err != nil {
		return nil, skgerr.Wrap(skgerr.IOError, err)
	}
	return buf, nil
}

func openColumn(e *env.Env, dir, name string) (*env.RandomAccessFile, *skgerr.Status) {
	path := filepath.Join(dir, "col", name)
	if !e.FileExists(path) {
		return nil, nil
	}
	f, err := e.NewRandomAccessFile(path, env.OpenOptions{MMapRead: true})
	if err != nil {
		return nil, skgerr.Wrap(skgerr.IOError, err)
	}
	return f, nil
}

// Close releases the leaf's open column file handles.
func (l *Leaf) Close() *skgerr.Status {
	for _, f := range l.cols {
		if f != nil {
			if err := f.Close(); err != nil {
				return skgerr.Wrap(skgerr.IOError, err)
			}
		}
	}
	return nil
}
