// Package pathmap turns completed file operations into old/new path pairs
// for tools that rewrite references inside scene documents.
//
// The rewriting itself happens outside this program: the organize command
// writes the mapping file and an external updater consumes it. Updater,
// Result and Read describe that contract from the consumer side.
package pathmap

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/harrison/assetkeeper/internal/fsys"
	"github.com/harrison/assetkeeper/internal/models"
)

// Separator splits the two paths of a line.
const Separator = "|"

// Mapping is one relocated file.
type Mapping struct {
	Old string
	New string
}

// Result is what an external updater reports for one document.
type Result struct {
	Document string
	Updated  int
	Success  bool
	Message  string
}

// Updater rewrites references in a scene document. No implementation ships
// with this module. Implementations run an external process and must not be
// invoked concurrently on one document.
type Updater interface {
	Update(ctx context.Context, document string, mappings []Mapping) (Result, error)
}

// FromOperations returns the mappings of every successful move and copy,
// in operation order, without duplicates.
func FromOperations(ops []*models.FileOperation) []Mapping {
	seen := make(map[Mapping]bool)
	var out []Mapping
	for _, op := range ops {
		if !op.Success || op.Destination == "" {
			continue
		}
		if op.Action != models.ActionMove && op.Action != models.ActionCopy {
			continue
		}
		m := Mapping{Old: op.Source, New: op.Destination}
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// Write emits one "old|new" line per mapping.
func Write(w io.Writer, mappings []Mapping) error {
	bw := bufio.NewWriter(w)
	for _, m := range mappings {
		if strings.Contains(m.Old, Separator) || strings.Contains(m.New, Separator) {
			return fmt.Errorf("path contains %q: %s", Separator, m.Old)
		}
		if _, err := fmt.Fprintf(bw, "%s%s%s\n", m.Old, Separator, m.New); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes mappings to path atomically.
func WriteFile(fs billy.Filesystem, path string, mappings []Mapping) error {
	var sb strings.Builder
	if err := Write(&sb, mappings); err != nil {
		return err
	}
	return fsys.AtomicWrite(fs, path, []byte(sb.String()))
}

// Read parses "old|new" lines as written by Write. Blank lines are ignored.
// Updaters use it to load a mapping file.
func Read(r io.Reader) ([]Mapping, error) {
	var out []Mapping
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		old, newPath, ok := strings.Cut(text, Separator)
		if !ok || old == "" || newPath == "" {
			return nil, fmt.Errorf("line %d: expected old%snew", line, Separator)
		}
		out = append(out, Mapping{Old: old, New: newPath})
	}
	return out, sc.Err()
}
