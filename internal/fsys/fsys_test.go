package fsys

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCopyAndMove(t *testing.T) {
	fs := NewMemory()
	require.NoError(t, WriteFile(fs, "/p/textures/wood.jpg", []byte("wood")))

	require.NoError(t, CopyFile(fs, "/p/textures/wood.jpg", "/p/maps/wood.jpg"))
	data, err := ReadFile(fs, "/p/maps/wood.jpg")
	require.NoError(t, err)
	assert.Equal(t, "wood", string(data))

	require.NoError(t, MoveFile(fs, "/p/textures/wood.jpg", "/p/unused/wood.jpg"))
	ok, err := Exists(fs, "/p/textures/wood.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, IsDir(fs, "/p/unused/wood.jpg"))
	assert.True(t, IsDir(fs, "/p/unused"))

	size, err := Size(fs, "/p/unused/wood.jpg")
	require.NoError(t, err)
	assert.EqualValues(t, 4, size)
}

func TestMoveMissingSource(t *testing.T) {
	fs := NewMemory()
	err := MoveFile(fs, "/p/none.png", "/p/maps/none.png")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOSAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	fs := NewOS()
	src := filepath.Join(dir, "a", "tex.png")
	dst := filepath.Join(dir, "maps", "tex.png")

	require.NoError(t, WriteFile(fs, src, []byte("png")))
	require.NoError(t, MoveFile(fs, src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, RemoveAll(fs, filepath.Join(dir, "maps")))
	_, err = os.Stat(dst)
	assert.True(t, os.IsNotExist(err))
}

func TestWalkOrder(t *testing.T) {
	fs := NewMemory()
	for _, p := range []string{"/p/b/2.png", "/p/a/1.png", "/p/c.png"} {
		require.NoError(t, WriteFile(fs, p, []byte("x")))
	}

	var files []string
	err := Walk(fs, "/p", func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/a/1.png", "/p/b/2.png", "/p/c.png"}, files)
}

func TestMemoryLockSerializes(t *testing.T) {
	fs := NewMemory()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := fs.Lock(context.Background(), "/journal/history.json")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, counter)
}

func TestOSLockReleases(t *testing.T) {
	fs := NewOS()
	target := filepath.Join(t.TempDir(), "journal", "history.json")

	for i := 0; i < 2; i++ {
		unlock, err := fs.Lock(context.Background(), target)
		require.NoError(t, err)
		require.NoError(t, unlock())
	}
	_, err := os.Stat(target + ".lock")
	assert.NoError(t, err)
}
