package env

import (
	"os"
	"syscall"

	"skg/skgerr"
)

// WritableFile is a sequential-write file handle.
type WritableFile struct {
	f *os.File
}

// Append writes p at the current file position.
func (w *WritableFile) Append(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		return n, skgerr.Wrap(skgerr.IOError, err)
	}
	return n, nil
}

// Sync flushes dirty pages to stable storage.
func (w *WritableFile) Sync() error {
	if err := w.f.Sync(); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	return nil
}

// Close closes the handle.
func (w *WritableFile) Close() error {
	if err := w.f.Close(); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	return nil
}

// Position returns the current write offset.
func (w *WritableFile) Position() (int64, error) {
	return w.f.Seek(0, os.SEEK_CUR)
}

// RandomAccessFile is a pread-style (or mmap-backed) random-read file
// handle. Scans returned by mmap() borrow directly from the mapping; the
// owner must outlive every borrowed slice, which is why partition leaves
// hold their RandomAccessFile for their whole lifetime rather than copying.
type RandomAccessFile struct {
	f      *os.File
	mapped []byte // non-nil when memory-mapped
}

// mmap memory-maps the whole file read-only.
func (r *RandomAccessFile) mmap() error {
	st, err := r.f.Stat()
	if err != nil {
		return err
	}
	size := st.Size()
	if size == 0 {
		return nil // legitimate empty file; nothing to map
	}
	data, err := syscall.Mmap(int(r.f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return err
	}
	r.mapped = data
	return nil
}

// ReadAt reads len(buf) bytes starting at offset, via the mapping when one
// exists, otherwise via pread.
func (r *RandomAccessFile) ReadAt(buf []byte, offset int64) (int, error) {
	if r.mapped != nil {
		if offset < 0 || offset > int64(len(r.mapped)) {
			return 0, skgerr.New(skgerr.IOError, "read offset %d out of range", offset)
		}
		n := copy(buf, r.mapped[offset:])
		return n, nil
	}
	n, err := r.f.ReadAt(buf, offset)
	if err != nil {
		return n, skgerr.Wrap(skgerr.IOError, err)
	}
	return n, nil
}

// Bytes returns the whole memory-mapped region for zero-copy scans. Returns
// nil if the file isn't mapped.
func (r *RandomAccessFile) Bytes() []byte { return r.mapped }

// IsMapped reports whether this handle is backed by a memory mapping.
func (r *RandomAccessFile) IsMapped() bool { return r.mapped != nil }

// Close unmaps (if mapped) and closes the underlying file.
func (r *RandomAccessFile) Close() error {
	if r.mapped != nil {
		if err := syscall.Munmap(r.mapped); err != nil {
			return skgerr.Wrap(skgerr.IOError, err)
		}
	}
	if err := r.f.Close(); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	return nil
}
