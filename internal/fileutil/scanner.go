package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/harrison/assetkeeper/internal/fsys"
)

// ScanOptions configures the directory scanning behavior
type ScanOptions struct {
	// Extensions is a list of file extensions to include (e.g., ".png", "tga")
	Extensions []string
	// Recursive enables recursive directory scanning
	Recursive bool
	// ExcludeDirs lists directory names skipped at any depth, compared case-insensitively
	ExcludeDirs []string
}

// Entry is one matched file.
type Entry struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Files contains the paths of all matched files, sorted
	Files []string
	// Entries mirrors Files with size and modification time
	Entries []Entry
	// Errors contains any errors encountered during scanning
	Errors []error
}

// ScanDirectory walks dir on fs and collects files matching opts.
// Hidden directories are always skipped.
func ScanDirectory(fs billy.Filesystem, dir string, opts ScanOptions) (*ScanResult, error) {
	info, err := fs.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	result := &ScanResult{
		Files:   make([]string, 0),
		Entries: make([]Entry, 0),
		Errors:  make([]error, 0),
	}

	extMap := make(map[string]bool)
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[strings.ToLower(ext)] = true
	}

	excludeMap := make(map[string]bool)
	for _, name := range opts.ExcludeDirs {
		excludeMap[strings.ToLower(name)] = true
	}

	root := filepath.Clean(dir)
	err = fsys.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil
		}

		if path == root {
			return nil
		}

		if fi.IsDir() {
			name := fi.Name()
			if excludeMap[strings.ToLower(name)] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}

		if len(extMap) > 0 && !extMap[strings.ToLower(filepath.Ext(fi.Name()))] {
			return nil
		}

		result.Entries = append(result.Entries, Entry{
			Path:    path,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Slice(result.Entries, func(i, j int) bool {
		return result.Entries[i].Path < result.Entries[j].Path
	})
	for _, e := range result.Entries {
		result.Files = append(result.Files, e.Path)
	}

	return result, nil
}
