package scene

import (
	"fmt"

	"github.com/go-git/go-billy/v5"

	"github.com/harrison/assetkeeper/internal/fileutil"
)

// FindDocuments lists the scene documents in dir, sorted. Subfolders are
// searched only when recursive is set.
func FindDocuments(fs billy.Filesystem, dir string, recursive bool, exts []string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultDocumentExtensions
	}
	result, err := fileutil.ScanDirectory(fs, dir, fileutil.ScanOptions{
		Extensions: exts,
		Recursive:  recursive,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list scene documents: %w", err)
	}
	return result.Files, nil
}
