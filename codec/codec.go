// Package codec provides the fixed-size and variable-length integer encodings,
// little-endian helpers and bitset primitives shared by the schema, vertex
// store and edge partition packages.
//
// Every on-disk structure in skg is little-endian and fixed-width by design
// (predictable record sizes are what make the sparse src/dst indices and the
// column blocks binary-searchable). Varint is used only for the handful of
// variable-length fields (VARCHAR columns, tag dictionary strings).
package codec

import (
	"encoding/binary"
	"io"
)

// PutUint32 and friends are thin aliases kept so call sites in this module
// read the same way regardless of which width they touch.
var (
	PutUint32 = binary.LittleEndian.PutUint32
	PutUint64 = binary.LittleEndian.PutUint64
	PutUint16 = binary.LittleEndian.PutUint16
	Uint32    = binary.LittleEndian.Uint32
	Uint64    = binary.LittleEndian.Uint64
	Uint16    = binary.LittleEndian.Uint16
)

// Order is the byte order used by every on-disk structure in skg.
var Order = binary.LittleEndian

// PutVarint appends a varint-encoded uint64 to buf and returns the result.
func PutVarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// ReadVarint reads a varint-encoded uint64 from r.
func ReadVarint(r io.ByteReader) (uint64, error) {
	return binary.ReadUvarint(r)
}

// Bitset64 is a 64-bit property-presence mask: bit i set means column i
// (by schema-assigned column index, 0..63) has a non-null value in this row.
type Bitset64 uint64

// Set marks column i as present.
func (b Bitset64) Set(i uint) Bitset64 { return b | (1 << i) }

// Clear marks column i as absent (a read of a cleared bit returns "null").
func (b Bitset64) Clear(i uint) Bitset64 { return b &^ (1 << i) }

// Has reports whether column i is present.
func (b Bitset64) Has(i uint) bool { return b&(1<<i) != 0 }

// PopCount returns the number of set bits.
func (b Bitset64) PopCount() int {
	n := 0
	for x := uint64(b); x != 0; x &= x - 1 {
		n++
	}
	return n
}
