package env

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skg/skgerr"
)

func TestWritableAndRandomAccessRoundTrip(t *testing.T) {
	e := New()
	dir := t.TempDir()
	fname := filepath.Join(dir, "data")

	wf, err := e.NewWritableFile(fname, OpenOptions{})
	require.NoError(t, err)
	_, err = wf.Append([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, wf.Sync())
	require.NoError(t, wf.Close())

	raf, err := e.NewRandomAccessFile(fname, OpenOptions{MMapRead: true})
	require.NoError(t, err)
	defer raf.Close()

	buf := make([]byte, 5)
	n, err := raf.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))
	assert.True(t, raf.IsMapped())
}

func TestLockFileRejectsSameProcessRelock(t *testing.T) {
	e := New()
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "LOCK")

	lock, err := e.LockFile(lockPath)
	require.NoError(t, err)
	defer e.UnlockFile(lock)

	_, err2 := e.LockFile(lockPath)
	require.Error(t, err2)
	st, ok := err2.(*skgerr.Status)
	require.True(t, ok)
	assert.True(t, st.Is(skgerr.NotImplemented))
}

func TestGetChildrenMissingDirIsEmptyNotError(t *testing.T) {
	e := New()
	children, err := e.GetChildren(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestNewUniqueIDIsUnique(t *testing.T) {
	e := New()
	a := e.NewUniqueID()
	b := e.NewUniqueID()
	assert.NotEqual(t, a, b)
}
