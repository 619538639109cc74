package organize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/go-git/go-billy/v5"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// sampleSize is how many bytes of the head and tail feed a quick fingerprint.
	sampleSize = 1024

	memoSize = 512
)

type memoEntry struct {
	size int64
	sum  string
}

// Fingerprinter computes content fingerprints for duplicate detection.
//
// The quick mode hashes only the size plus the first and last KiB, so two
// files of equal size that differ only in the middle compare equal. Full
// mode hashes every byte.
type Fingerprinter struct {
	fs   billy.Filesystem
	full bool
	memo *lru.Cache[string, memoEntry]
}

// NewFingerprinter returns a fingerprinter over fs.
func NewFingerprinter(fs billy.Filesystem, full bool) *Fingerprinter {
	memo, _ := lru.New[string, memoEntry](memoSize)
	return &Fingerprinter{fs: fs, full: full, memo: memo}
}

// Full reports whether whole-file hashing is enabled.
func (f *Fingerprinter) Full() bool {
	return f.full
}

// Fingerprint returns "<size>:<sha256 hex>" for path. Results are memoized
// per path and size.
func (f *Fingerprinter) Fingerprint(path string) (string, error) {
	info, err := f.fs.Stat(path)
	if err != nil {
		return "", err
	}
	size := info.Size()
	if e, ok := f.memo.Get(path); ok && e.size == size {
		return e.sum, nil
	}

	file, err := f.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if f.full {
		if _, err := io.Copy(h, file); err != nil {
			return "", fmt.Errorf("failed to hash %s: %w", path, err)
		}
	} else {
		h.Write(readAt(file, 0, sampleSize))
		if size > sampleSize {
			h.Write(readAt(file, size-sampleSize, sampleSize))
		}
	}

	sum := fmt.Sprintf("%d:%s", size, hex.EncodeToString(h.Sum(nil)))
	f.memo.Add(path, memoEntry{size: size, sum: sum})
	return sum, nil
}

// Same reports whether a and b have equal fingerprints.
func (f *Fingerprinter) Same(a, b string) (bool, error) {
	fa, err := f.Fingerprint(a)
	if err != nil {
		return false, err
	}
	fb, err := f.Fingerprint(b)
	if err != nil {
		return false, err
	}
	return fa == fb, nil
}

// Forget drops the memoized fingerprint for path.
func (f *Fingerprinter) Forget(path string) {
	f.memo.Remove(path)
}
