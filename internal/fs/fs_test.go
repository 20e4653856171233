package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "vecs", "price")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	f, err := lfs.CreateTemp(dir, ".put-*")
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
	require.NoError(t, f.Close())

	target := filepath.Join(dir, "manifest")
	require.NoError(t, lfs.Rename(f.Name(), target))

	r, err := lfs.Open(target)
	require.NoError(t, err)
	buf := make([]byte, 3)
	_, err = r.ReadAt(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, "llo", string(buf))
	require.NoError(t, r.Close())

	var files []string
	require.NoError(t, lfs.WalkDir(tmp, func(p string, d iofs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, d.Name())
		}
		return err
	}))
	assert.Equal(t, []string{"manifest"}, files)

	require.NoError(t, lfs.Remove(target))
	_, err = os.Stat(target)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFaultyFS(t *testing.T) {
	tmp := t.TempDir()
	boom := errors.New("boom")

	t.Run("FailAfterBytes", func(t *testing.T) {
		ffs := NewFaultyFS(nil)
		ffs.AddRule(".put-", Fault{FailAfterBytes: 4, Err: boom})

		f, err := ffs.CreateTemp(tmp, ".put-*")
		require.NoError(t, err)
		_, err = f.Write([]byte("abc"))
		require.NoError(t, err)
		_, err = f.Write([]byte("de"))
		assert.ErrorIs(t, err, boom)
		require.NoError(t, f.Close())
	})

	t.Run("SyncAndClose", func(t *testing.T) {
		ffs := NewFaultyFS(nil)
		ffs.AddRule("sync", Fault{FailAfterBytes: -1, FailOnSync: true, FailOnClose: true})

		f, err := ffs.CreateTemp(tmp, "sync-*")
		require.NoError(t, err)
		assert.ErrorIs(t, f.Sync(), ErrInjected)
		assert.ErrorIs(t, f.Close(), ErrInjected)
	})

	t.Run("Rename", func(t *testing.T) {
		ffs := NewFaultyFS(nil)
		ffs.AddRule("manifest", Fault{FailAfterBytes: -1, FailOnRename: true, Err: boom})

		f, err := ffs.CreateTemp(tmp, "tmp-*")
		require.NoError(t, err)
		require.NoError(t, f.Close())
		assert.ErrorIs(t, ffs.Rename(f.Name(), filepath.Join(tmp, "manifest")), boom)

		ffs.ClearRules()
		assert.NoError(t, ffs.Rename(f.Name(), filepath.Join(tmp, "manifest")))
	})

	t.Run("Unmatched", func(t *testing.T) {
		ffs := NewFaultyFS(nil)
		ffs.AddRule("other", Fault{FailAfterBytes: 0})

		f, err := ffs.CreateTemp(tmp, "plain-*")
		require.NoError(t, err)
		_, err = f.Write([]byte("data"))
		require.NoError(t, err)
		require.NoError(t, f.Close())
	})
}
