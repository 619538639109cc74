// Package fsys carries assetkeeper's project-tree and journal I/O.
//
// Every read, write, move and delete performed by the scanner, reconciler,
// organizer, backup journal and operation history goes through a Filesystem.
// Production code uses NewOS, which addresses the native filesystem with
// absolute paths. Tests use NewMemory.
//
// Two packages talk to the operating system directly because their
// libraries need real paths: watch registers directories with fsnotify, and
// scancache creates the folder of its SQLite database.
package fsys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/harrison/assetkeeper/internal/filelock"
)

// Filesystem is a billy filesystem that can also serialize journal writers.
type Filesystem interface {
	billy.Filesystem

	// Lock takes an exclusive lock associated with name and returns the
	// function that releases it.
	Lock(ctx context.Context, name string) (func() error, error)
}

// nativeOS addresses the host filesystem without a chroot.
type nativeOS struct {
	osfs.ChrootOS
}

func (n *nativeOS) Chroot(path string) (billy.Filesystem, error) {
	return osfs.New(path), nil
}

func (n *nativeOS) Root() string {
	return "/"
}

func (n *nativeOS) Chmod(name string, mode os.FileMode) error {
	return os.Chmod(name, mode)
}

func (n *nativeOS) Lchown(name string, uid, gid int) error {
	return os.Lchown(name, uid, gid)
}

func (n *nativeOS) Chown(name string, uid, gid int) error {
	return os.Chown(name, uid, gid)
}

func (n *nativeOS) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(name, atime, mtime)
}

// FS implements Filesystem over a billy backend.
type FS struct {
	billy.Filesystem
	lock func(ctx context.Context, name string) (func() error, error)
}

// NewOS returns the native filesystem. Locks are flock files next to the
// guarded path, so they also exclude other assetkeeper processes.
func NewOS() *FS {
	return &FS{
		Filesystem: &nativeOS{},
		lock: func(ctx context.Context, name string) (func() error, error) {
			if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
				return nil, fmt.Errorf("failed to create lock directory: %w", err)
			}
			fl := filelock.NewFileLock(name + ".lock")
			if err := fl.LockContext(ctx); err != nil {
				return nil, err
			}
			return fl.Unlock, nil
		},
	}
}

// NewMemory returns an empty in-memory filesystem with process-local locks.
func NewMemory() *FS {
	var mu sync.Mutex
	locks := make(map[string]*sync.Mutex)
	return &FS{
		Filesystem: memfs.New(),
		lock: func(_ context.Context, name string) (func() error, error) {
			mu.Lock()
			l, ok := locks[name]
			if !ok {
				l = &sync.Mutex{}
				locks[name] = l
			}
			mu.Unlock()
			l.Lock()
			return func() error { l.Unlock(); return nil }, nil
		},
	}
}

// Lock implements Filesystem.
func (f *FS) Lock(ctx context.Context, name string) (func() error, error) {
	return f.lock(ctx, name)
}

// Raw returns the underlying billy filesystem.
func (f *FS) Raw() billy.Filesystem {
	return f.Filesystem
}

// raw unwraps fs to its billy backend so optional interfaces such as
// billy.Change are visible.
func raw(fs billy.Filesystem) billy.Filesystem {
	if r, ok := fs.(interface{ Raw() billy.Filesystem }); ok {
		return r.Raw()
	}
	return fs
}

// Exists reports whether path exists. Stat failures other than not-exist
// are returned.
func Exists(fs billy.Basic, path string) (bool, error) {
	_, err := fs.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// IsDir reports whether path exists and is a directory.
func IsDir(fs billy.Basic, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.IsDir()
}

// ReadFile returns the contents of path.
func ReadFile(fs billy.Basic, path string) ([]byte, error) {
	return util.ReadFile(fs, path)
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(fs billy.Filesystem, path string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return util.WriteFile(fs, path, data, 0644)
}

// AtomicWrite replaces path with data through a temp file and rename.
func AtomicWrite(fs billy.Filesystem, path string, data []byte) error {
	return filelock.AtomicWrite(raw(fs), path, data)
}

// RemoveAll deletes path and everything below it.
func RemoveAll(fs billy.Filesystem, path string) error {
	return util.RemoveAll(fs, path)
}

// Walk walks the tree rooted at root in lexical order.
func Walk(fs billy.Filesystem, root string, fn filepath.WalkFunc) error {
	return util.Walk(fs, root, fn)
}

// CopyFile copies src to dst, creating dst's parent directory and
// overwriting dst if present. Modification times are kept when the backend
// supports it.
func CopyFile(fs billy.Filesystem, src, dst string) (err error) {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := fs.Stat(src)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}

	if ch, ok := raw(fs).(billy.Change); ok {
		_ = ch.Chtimes(dst, info.ModTime(), info.ModTime())
	}
	return nil
}

// MoveFile renames src to dst. When the rename crosses devices it falls
// back to copy then remove.
func MoveFile(fs billy.Filesystem, src, dst string) error {
	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	err := fs.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := CopyFile(fs, src, dst); err != nil {
		return err
	}
	return fs.Remove(src)
}

// Size returns the size of path in bytes.
func Size(fs billy.Basic, path string) (int64, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
