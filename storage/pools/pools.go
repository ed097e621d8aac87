// Package pools provides reusable byte buffers for the hot paths that build
// on-disk leaf files: partition.BuildLeaf runs once per shard flush/split and
// sharder's merge phase runs once per output leaf, both allocating and
// discarding a scratch buffer per call.
//
// Trimmed from the teacher's storage/pools/pools.go, which additionally
// pooled string slices, strings.Builder, and json.Encoder/Decoder. The
// encoder/decoder pools are dropped: encoding/json's Encoder and Decoder
// bind their writer/reader at construction with no exported way to rebind
// one to a new buffer, so a pool of them can only ever hand back instances
// still wired to their original (here, nil) stream — not a working pool.
// The string-slice and builder pools had no callsite in a binary-record
// store with no string-heavy hot path, so they're dropped along with them.
package pools

import (
	"bytes"
	"sync"
)

// BufferPool holds scratch buffers sized for one on-disk leaf's adjacency
// and index bytes.
var BufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// LargeBufferPool holds scratch buffers sized for a bulk-sharder shovel
// file's worth of gob-encoded edges.
var LargeBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 65536))
	},
}

// GetBuffer gets a reset buffer from BufferPool.
func GetBuffer() *bytes.Buffer {
	buf := BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns buf to BufferPool, unless it has grown unreasonably
// large (in which case pooling it would just pin that memory).
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1024*1024 {
		return
	}
	BufferPool.Put(buf)
}

// GetLargeBuffer gets a reset buffer from LargeBufferPool.
func GetLargeBuffer() *bytes.Buffer {
	buf := LargeBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutLargeBuffer returns buf to LargeBufferPool, unless it has grown past
// the bulk-sharder's usual shovel-file size.
func PutLargeBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 10*1024*1024 {
		return
	}
	LargeBufferPool.Put(buf)
}
