// Package reconcile matches scene references against the files of a project
// tree.
//
// Matching is by lowercase file name only. Full paths are never compared
// because scene references are frequently stale after a project is moved or
// re-rooted, so two references to different assets that share a name are
// treated as one.
package reconcile

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/harrison/assetkeeper/internal/fileutil"
	"github.com/harrison/assetkeeper/internal/fsys"
	"github.com/harrison/assetkeeper/internal/models"
)

// Reconciler builds ReconciliationResults.
type Reconciler struct {
	fs           billy.Filesystem
	unusedFolder string
}

// New returns a reconciler that skips the unusedFolder staging directory
// at any depth.
func New(fs billy.Filesystem, unusedFolder string) *Reconciler {
	return &Reconciler{fs: fs, unusedFolder: unusedFolder}
}

// Reconcile walks root and classifies every supported file against sets.
// It fails only when root cannot be walked or ctx is canceled.
func (r *Reconciler) Reconcile(ctx context.Context, root string, sets []*models.ReferenceSet) (*models.ReconciliationResult, error) {
	root = filepath.Clean(root)
	result := models.NewReconciliationResult(root)

	for _, refs := range sets {
		result.Documents = append(result.Documents, refs.Document)
		result.References = append(result.References, refs)
		result.Textures.Union(refs.Textures)
		result.Proxies.Union(refs.Proxies)
		result.Other.Union(refs.Other)
		result.Errors = append(result.Errors, refs.Errors...)
	}

	index := buildIndex(result)

	var exclude []string
	if r.unusedFolder != "" {
		exclude = append(exclude, r.unusedFolder)
	}
	scan, err := fileutil.ScanDirectory(r.fs, root, fileutil.ScanOptions{
		Extensions:  models.SupportedExtensions(),
		Recursive:   true,
		ExcludeDirs: exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan project %s: %w", root, err)
	}
	for _, walkErr := range scan.Errors {
		result.Errors = append(result.Errors, walkErr.Error())
	}

	names := make(map[string]bool, len(scan.Entries))
	for _, entry := range scan.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := filepath.Base(entry.Path)
		key := strings.ToLower(name)
		names[key] = true

		cat, _ := models.CategoryOf(name)
		rec := &models.FileRecord{
			Path:      entry.Path,
			Name:      name,
			Extension: strings.ToLower(filepath.Ext(name)),
			Folder:    folderLabel(root, entry.Path),
			Category:  cat,
			Size:      entry.Size,
		}
		if refs, ok := index[key]; ok {
			rec.IsUsed = true
			rec.References = refs
		}
		result.AddFile(rec)
	}

	for _, ref := range allReferences(result) {
		if names[referenceName(ref)] {
			continue
		}
		if ok, err := fsys.Exists(r.fs, ref); err == nil && ok {
			continue
		}
		result.Missing.Add(ref)
	}

	return result, nil
}

// buildIndex maps lowercase file name to every reference with that name.
func buildIndex(result *models.ReconciliationResult) map[string][]string {
	index := make(map[string][]string)
	for _, ref := range allReferences(result) {
		key := referenceName(ref)
		index[key] = append(index[key], ref)
	}
	return index
}

func allReferences(result *models.ReconciliationResult) []string {
	all := models.NewPathSet()
	all.Union(result.Textures)
	all.Union(result.Proxies)
	all.Union(result.Other)
	return all.Items()
}

// referenceName returns the lowercase base name of a reference. References
// are normalized to forward slashes by the scanner, but raw Windows paths
// are tolerated too.
func referenceName(ref string) string {
	return strings.ToLower(path.Base(strings.ReplaceAll(ref, `\`, "/")))
}

// folderLabel returns the first path segment below root, or the root label
// for files directly in root.
func folderLabel(root, file string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return models.RootFolderLabel
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 1 {
		return parts[0]
	}
	return models.RootFolderLabel
}
