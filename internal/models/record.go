package models

import (
	"encoding/json"
	"sort"
	"strings"
)

// RootFolderLabel is the folder name reported for files directly in the project root.
const RootFolderLabel = "(root)"

// FileRecord is one real asset file found under the project root.
type FileRecord struct {
	Path       string   `json:"path"`
	Name       string   `json:"name"`
	Extension  string   `json:"extension"`
	Folder     string   `json:"folder"`
	Category   Category `json:"category"`
	Size       int64    `json:"size"`
	IsUsed     bool     `json:"is_used"`
	References []string `json:"references,omitempty"`
}

// FileSet is a set of real file paths compared exactly. Two names that
// differ only in case are two files on a case-sensitive filesystem.
type FileSet struct {
	items map[string]bool
}

// NewFileSet returns a set holding the given paths.
func NewFileSet(paths ...string) *FileSet {
	s := &FileSet{items: make(map[string]bool)}
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add inserts p and reports whether it was new.
func (s *FileSet) Add(p string) bool {
	if s.items == nil {
		s.items = make(map[string]bool)
	}
	if s.items[p] {
		return false
	}
	s.items[p] = true
	return true
}

// Contains reports whether p is in the set.
func (s *FileSet) Contains(p string) bool {
	return s != nil && s.items[p]
}

// Len returns the number of paths.
func (s *FileSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns the paths sorted case-insensitively, ties broken bytewise.
func (s *FileSet) Items() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.items))
	for p := range s.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i]), strings.ToLower(out[j])
		if a != b {
			return a < b
		}
		return out[i] < out[j]
	})
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s FileSet) MarshalJSON() ([]byte, error) {
	items := s.Items()
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}

// UnmarshalJSON decodes an array of paths.
func (s *FileSet) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	s.items = make(map[string]bool, len(items))
	for _, p := range items {
		s.Add(p)
	}
	return nil
}

// FolderStats counts files per top-level subfolder.
type FolderStats struct {
	Total    int `json:"total"`
	Used     int `json:"used"`
	Unused   int `json:"unused"`
	Textures int `json:"textures"`
	Proxies  int `json:"proxies"`
	Other    int `json:"other"`
}

func (s *FolderStats) add(rec *FileRecord) {
	s.Total++
	if rec.IsUsed {
		s.Used++
	} else {
		s.Unused++
	}
	switch rec.Category {
	case CategoryTexture:
		s.Textures++
	case CategoryProxy:
		s.Proxies++
	default:
		s.Other++
	}
}

// ReconciliationResult is the outcome of matching scene references against a tree.
type ReconciliationResult struct {
	Root       string          `json:"root"`
	Documents  []string        `json:"documents"`
	References []*ReferenceSet `json:"references"`

	Textures *PathSet `json:"textures"`
	Proxies  *PathSet `json:"proxies"`
	Other    *PathSet `json:"other"`

	// Files is keyed by absolute path.
	Files   map[string]*FileRecord `json:"files"`
	Linked  *FileSet               `json:"linked"`
	Unused  *FileSet               `json:"unused"`
	Missing *PathSet               `json:"missing"`

	FolderStats map[string]*FolderStats `json:"folder_stats"`
	Errors      []string                `json:"errors,omitempty"`
}

// NewReconciliationResult returns an empty result for root.
func NewReconciliationResult(root string) *ReconciliationResult {
	return &ReconciliationResult{
		Root:        root,
		Textures:    NewPathSet(),
		Proxies:     NewPathSet(),
		Other:       NewPathSet(),
		Files:       make(map[string]*FileRecord),
		Linked:      NewFileSet(),
		Unused:      NewFileSet(),
		Missing:     NewPathSet(),
		FolderStats: make(map[string]*FolderStats),
	}
}

// AddFile registers rec and updates the linked or unused set and folder counters.
func (r *ReconciliationResult) AddFile(rec *FileRecord) {
	r.Files[rec.Path] = rec
	if rec.IsUsed {
		r.Linked.Add(rec.Path)
	} else {
		r.Unused.Add(rec.Path)
	}
	stats, ok := r.FolderStats[rec.Folder]
	if !ok {
		stats = &FolderStats{}
		r.FolderStats[rec.Folder] = stats
	}
	stats.add(rec)
}

func (r *ReconciliationResult) records(set *FileSet) []*FileRecord {
	out := make([]*FileRecord, 0, set.Len())
	for _, p := range set.Items() {
		if rec, ok := r.Files[p]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// LinkedRecords returns linked files sorted by path.
func (r *ReconciliationResult) LinkedRecords() []*FileRecord {
	return r.records(r.Linked)
}

// UnusedRecords returns unused files sorted by path.
func (r *ReconciliationResult) UnusedRecords() []*FileRecord {
	return r.records(r.Unused)
}

// UnusedByFolder groups unused files by their folder label.
func (r *ReconciliationResult) UnusedByFolder() map[string][]*FileRecord {
	out := make(map[string][]*FileRecord)
	for _, rec := range r.UnusedRecords() {
		out[rec.Folder] = append(out[rec.Folder], rec)
	}
	return out
}

// FilesByCategory returns every file of cat, sorted by path.
func (r *ReconciliationResult) FilesByCategory(cat Category) []*FileRecord {
	var out []*FileRecord
	for _, rec := range r.Files {
		if rec.Category == cat {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Path) < strings.ToLower(out[j].Path)
	})
	return out
}

// Folders returns the folder labels with statistics, sorted.
func (r *ReconciliationResult) Folders() []string {
	out := make([]string, 0, len(r.FolderStats))
	for name := range r.FolderStats {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// TotalReferences counts distinct references across all documents.
func (r *ReconciliationResult) TotalReferences() int {
	return r.Textures.Len() + r.Proxies.Len() + r.Other.Len()
}
