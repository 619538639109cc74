// Package fileutil provides the extension-filtered directory walk shared by
// document discovery and the asset reconciler.
//
// ScanDirectory runs on any go-billy filesystem, so the same walk serves the
// native filesystem and in-memory test trees. It skips hidden directories and
// any directory whose name appears in ScanOptions.ExcludeDirs (the reserved
// "unused" staging folder, for example) at every depth. Non-fatal errors such
// as an unreadable subdirectory are collected in ScanResult.Errors and the
// walk continues. Output is sorted so repeated scans of an unchanged tree
// return identical results.
//
// Usage:
//
//	result, err := fileutil.ScanDirectory(fs, "/projects/house", fileutil.ScanOptions{
//	    Extensions:  models.SupportedExtensions(),
//	    Recursive:   true,
//	    ExcludeDirs: []string{"unused"},
//	})
package fileutil
