package organize

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/harrison/assetkeeper/internal/fsys"
)

// uniquePath returns dir/name, or dir/stem_N.ext with the lowest free N.
func uniquePath(fs billy.Basic, dir, name string) string {
	candidate := filepath.Join(dir, name)
	if ok, _ := fsys.Exists(fs, candidate); !ok {
		return candidate
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		if ok, _ := fsys.Exists(fs, candidate); !ok {
			return candidate
		}
	}
}

// variantName returns stem_<folder>.ext for a same-name file from folder.
func variantName(name, folder string) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s_%s%s", strings.TrimSuffix(name, ext), folder, ext)
}

// within reports whether p is dir or lies below it.
func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// pruneEmpty removes empty directories below root, deepest first. Hidden
// directories and anything within keep are left alone. Root itself is
// never removed.
func pruneEmpty(fs billy.Filesystem, root string, keep ...string) ([]string, error) {
	var dirs []string
	err := fsys.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() || p == root {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		for _, k := range keep {
			if within(p, k) {
				return filepath.SkipDir
			}
		}
		dirs = append(dirs, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(dirs, func(i, j int) bool {
		di, dj := strings.Count(dirs[i], string(filepath.Separator)), strings.Count(dirs[j], string(filepath.Separator))
		if di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})

	var removed []string
	for _, d := range dirs {
		entries, err := fs.ReadDir(d)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := fs.Remove(d); err == nil {
			removed = append(removed, d)
		}
	}
	sort.Strings(removed)
	return removed, nil
}
