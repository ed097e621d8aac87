// Package env provides the process-wide file/OS abstraction the storage
// engine is built on: file handles, directory operations, whole-file
// advisory locks, a steady-clock nanosecond source, a background thread
// pool with priority tiers, and a unique-id generator.
//
// Grounded directly on original_source/gfs/env/env_posix.cc (NewRandomAccessFile,
// NewWritableFile, LockFile/UnlockFile, GetChildren, Schedule/SleepForMicroseconds,
// GenerateUniqueId) and, for the mmap path, entitydb's storage/binary/mmap_reader.go
// (raw syscall.Mmap — no third-party mmap wrapper appears anywhere in the corpus).
package env

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"skg/skgerr"
)

// Env is a process-wide handle to the filesystem and scheduling primitives
// the engine needs. One Env is shared by every open Database in a process.
type Env struct {
	pool *Pool

	mu          sync.Mutex
	lockedPaths map[string]*FileLock
}

// Default returns the process-wide default Env. Permitted to live until
// process exit — the one process-wide singleton design note allows for.
var defaultEnv = New()

// Default returns the shared process-wide Env.
func Default() *Env { return defaultEnv }

// New constructs a fresh Env with its own thread pool and lock table. Tests
// that want isolation from the process-wide singleton construct their own.
func New() *Env {
	return &Env{
		pool:        NewPool(),
		lockedPaths: make(map[string]*FileLock),
	}
}

// NowNanos returns a steady-clock nanosecond timestamp.
func (e *Env) NowNanos() int64 { return time.Now().UnixNano() }

// NewUniqueID generates a process-unique identifier. Seeds from
// /proc/sys/kernel/random/uuid when available (google/uuid's NewRandom
// reads from crypto/rand, which itself is backed by the kernel RNG on
// Linux — the same entropy source the teacher's env_posix.cc names
// explicitly), falling back to steady clock + math/rand on any error.
func (e *Env) NewUniqueID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	return fmt.Sprintf("%x-%x", e.NowNanos(), rand.Uint64())
}

// OpenOptions is passed to the New*File constructors. NewWritableFile
// applies only Append and NewRandomAccessFile applies only MMapRead; no
// constructor applies DirectIO, MMapWrite or CloseOnExec.
type OpenOptions struct {
	Append       bool // append instead of truncate on create
	DirectIO     bool // O_DIRECT request; not applied by any constructor
	MMapRead     bool // memory-map for reads
	MMapWrite    bool // memory-map for writes; not applied by any constructor
	CloseOnExec  bool
}

// NewWritableFile opens fname for sequential writes, truncating unless
// Append is set.
func (e *Env) NewWritableFile(fname string, opts OpenOptions) (*WritableFile, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if opts.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(fname, flags, 0644)
	if err != nil {
		return nil, skgerr.Wrap(skgerr.IOError, err)
	}
	return &WritableFile{f: f}, nil
}

// NewRandomAccessFile opens fname for pread-style random reads, optionally
// memory-mapping the whole file for zero-copy access.
func (e *Env) NewRandomAccessFile(fname string, opts OpenOptions) (*RandomAccessFile, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, skgerr.Wrap(skgerr.FileNotFound, err)
	}
	raf := &RandomAccessFile{f: f}
	if opts.MMapRead {
		if err := raf.mmap(); err != nil {
			f.Close()
			return nil, skgerr.Wrap(skgerr.IOError, err)
		}
	}
	return raf, nil
}

// NewSequentialFile opens fname for streaming reads (used by the bulk
// sharder's shovel-file merge pass).
func (e *Env) NewSequentialFile(fname string) (*os.File, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, skgerr.Wrap(skgerr.FileNotFound, err)
	}
	return f, nil
}

// FileExists reports whether fname exists.
func (e *Env) FileExists(fname string) bool {
	_, err := os.Stat(fname)
	return err == nil
}

// GetFileSize returns the size in bytes of fname.
func (e *Env) GetFileSize(fname string) (int64, error) {
	st, err := os.Stat(fname)
	if err != nil {
		return 0, skgerr.Wrap(skgerr.FileNotFound, err)
	}
	return st.Size(), nil
}

// GetChildren lists the entries of dir, or an empty slice if dir doesn't
// exist (a missing directory is not an error at this layer — callers
// distinguish "no children yet" from a real I/O failure).
func (e *Env) GetChildren(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, skgerr.Wrap(skgerr.IOError, err)
	}
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		names = append(names, ent.Name())
	}
	return names, nil
}

// CreateDir creates dir and any missing parents.
func (e *Env) CreateDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	return nil
}

// DeleteFile removes fname.
func (e *Env) DeleteFile(fname string) error {
	if err := os.Remove(fname); err != nil && !os.IsNotExist(err) {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	return nil
}

// DeleteDir recursively removes dir.
func (e *Env) DeleteDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	return nil
}

// RenameFile renames src to dst, replacing dst if it exists.
func (e *Env) RenameFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return skgerr.Wrap(skgerr.IOError, err)
	}
	return nil
}

// AbsolutePath resolves p to an absolute path.
func (e *Env) AbsolutePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", skgerr.Wrap(skgerr.IOError, err)
	}
	return abs, nil
}

// FileLock is a handle to an acquired whole-file advisory lock.
type FileLock struct {
	f    *os.File
	path string
}

// LockFile acquires an exclusive whole-file advisory lock on fname,
// creating it if necessary. Re-locking the same absolute path from the
// same process is rejected with NotImplemented (an Open Question the spec
// leaves as "ENOLCK"-flavored behavior, implemented here as a process-local
// guard since flock(2) itself is reentrant within a process and would
// otherwise silently succeed).
func (e *Env) LockFile(fname string) (*FileLock, error) {
	abs, err := e.AbsolutePath(fname)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if _, locked := e.lockedPaths[abs]; locked {
		e.mu.Unlock()
		return nil, skgerr.New(skgerr.NotImplemented, "database already locked by this process: %s", abs)
	}
	e.mu.Unlock()

	f, oerr := os.OpenFile(abs, os.O_CREATE|os.O_RDWR, 0644)
	if oerr != nil {
		return nil, skgerr.Wrap(skgerr.IOError, oerr)
	}
	if ferr := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); ferr != nil {
		f.Close()
		return nil, skgerr.New(skgerr.IOError, "flock %s: %v", abs, ferr)
	}

	lock := &FileLock{f: f, path: abs}
	e.mu.Lock()
	e.lockedPaths[abs] = lock
	e.mu.Unlock()
	return lock, nil
}

// UnlockFile releases a previously acquired lock.
func (e *Env) UnlockFile(lock *FileLock) error {
	if lock == nil {
		return nil
	}
	e.mu.Lock()
	delete(e.lockedPaths, lock.path)
	e.mu.Unlock()

	if err := syscall.Flock(int(lock.f.Fd()), syscall.LOCK_UN); err != nil {
		lock.f.Close()
		return skgerr.Wrap(skgerr.IOError, err)
	}
	return lock.f.Close()
}

// Pool returns the Env's background thread pool.
func (e *Env) Pool() *Pool { return e.pool }
