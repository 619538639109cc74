// Package backup keeps copies of files before the organizer moves or
// deletes them, so a run can be rolled back.
//
// Backups live outside the project tree, one directory per project:
//
//	<dir>/<project key>/backup_metadata.json
//	<dir>/<project key>/<run id>/<path relative to the project root>
//
// The metadata file maps run ids to their timestamp and snapshot entries.
// Every operation is best effort: failures are logged and reported through
// the boolean results, never returned as errors.
package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/assetkeeper/internal/fsys"
)

// MetadataFile is the per-project run index.
const MetadataFile = "backup_metadata.json"

const lockTimeout = 10 * time.Second

// Logger receives durability warnings.
type Logger interface {
	LogWarn(message string)
}

// Entry is one snapshotted file.
type Entry struct {
	Original string `json:"original"`
	Backup   string `json:"backup"`
	Relative string `json:"relative"`
}

// record is the on-disk form of a run.
type record struct {
	Timestamp string  `json:"timestamp"`
	Root      string  `json:"root,omitempty"`
	Files     []Entry `json:"files"`
}

type metadata map[string]*record

// RunInfo describes a run for listings.
type RunInfo struct {
	ID        string
	Root      string
	Timestamp time.Time
	Files     []Entry
}

// Store is a BackupJournal rooted at a staging directory.
type Store struct {
	fs     fsys.Filesystem
	dir    string
	logger Logger
	now    func() time.Time

	mu   sync.Mutex
	runs map[string]string // run id -> project dir
}

// DefaultDir is the staging directory used when none is configured.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "assetkeeper-backups")
}

// NewStore returns a store under dir. A nil logger discards warnings.
func NewStore(filesystem fsys.Filesystem, dir string, logger Logger) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{
		fs:     filesystem,
		dir:    filepath.Clean(dir),
		logger: logger,
		now:    time.Now,
		runs:   make(map[string]string),
	}
}

// Dir returns the staging directory.
func (s *Store) Dir() string {
	return s.dir
}

// ProjectKey derives the per-project directory name from root.
func ProjectKey(root string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(root)))
	return hex.EncodeToString(sum[:8])
}

func (s *Store) projectDir(root string) string {
	return filepath.Join(s.dir, ProjectKey(root))
}

func (s *Store) warn(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.LogWarn(fmt.Sprintf("backup: "+format, args...))
	}
}

// BeginRun registers a new run for root and returns its id.
func (s *Store) BeginRun(root string) (string, bool) {
	root = filepath.Clean(root)
	now := s.now()
	id := fmt.Sprintf("%s-%s", now.Format("20060102-150405"), uuid.NewString()[:8])
	dir := s.projectDir(root)

	if err := s.fs.MkdirAll(filepath.Join(dir, id), 0755); err != nil {
		s.warn("cannot create run folder: %v", err)
		return "", false
	}
	err := s.update(dir, func(meta metadata) error {
		meta[id] = &record{Timestamp: now.Format(time.RFC3339), Root: root, Files: []Entry{}}
		return nil
	})
	if err != nil {
		s.warn("cannot register run %s: %v", id, err)
		return "", false
	}

	s.mu.Lock()
	s.runs[id] = dir
	s.mu.Unlock()
	return id, true
}

// Snapshot copies path into the run and returns the backup location.
func (s *Store) Snapshot(runID, path string) (string, bool) {
	dir, ok := s.locate(runID)
	if !ok {
		s.warn("unknown run %s", runID)
		return "", false
	}
	path = filepath.Clean(path)

	var backupPath string
	err := s.update(dir, func(meta metadata) error {
		rec, ok := meta[runID]
		if !ok {
			return fmt.Errorf("run %s not in metadata", runID)
		}
		rel := relativeTo(rec.Root, path)
		backupPath = filepath.Join(dir, runID, rel)
		if exists, _ := fsys.Exists(s.fs, backupPath); exists {
			backupPath = uniqueBackup(s.fs, backupPath)
			rel, _ = filepath.Rel(filepath.Join(dir, runID), backupPath)
		}
		if err := fsys.CopyFile(s.fs, path, backupPath); err != nil {
			return err
		}
		rec.Files = append(rec.Files, Entry{Original: path, Backup: backupPath, Relative: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		s.warn("snapshot of %s failed: %v", path, err)
		return "", false
	}
	return backupPath, true
}

// RestoreRun copies every snapshot of the run back to its original path.
// It succeeds if at least one file was restored.
func (s *Store) RestoreRun(runID string) bool {
	_, restored := s.RestoreRunFiles(runID)
	return restored > 0
}

// RestoreRunFiles restores the run and returns the entries that were put back.
func (s *Store) RestoreRunFiles(runID string) ([]Entry, int) {
	info, ok := s.Run(runID)
	if !ok {
		s.warn("unknown run %s", runID)
		return nil, 0
	}
	var done []Entry
	for _, e := range info.Files {
		if err := fsys.CopyFile(s.fs, e.Backup, e.Original); err != nil {
			s.warn("restore of %s failed: %v", e.Original, err)
			continue
		}
		done = append(done, e)
	}
	return done, len(done)
}

// RestoreFile restores one original path from the run. The most recent
// snapshot of that path wins.
func (s *Store) RestoreFile(runID, original string) bool {
	info, ok := s.Run(runID)
	if !ok {
		return false
	}
	original = filepath.Clean(original)
	for i := len(info.Files) - 1; i >= 0; i-- {
		e := info.Files[i]
		if e.Original != original {
			continue
		}
		if err := fsys.CopyFile(s.fs, e.Backup, e.Original); err != nil {
			s.warn("restore of %s failed: %v", original, err)
			return false
		}
		return true
	}
	return false
}

// DeleteRun removes the run's files and metadata.
func (s *Store) DeleteRun(runID string) bool {
	dir, ok := s.locate(runID)
	if !ok {
		return false
	}
	if err := fsys.RemoveAll(s.fs, filepath.Join(dir, runID)); err != nil {
		s.warn("cannot remove run %s: %v", runID, err)
		return false
	}
	err := s.update(dir, func(meta metadata) error {
		delete(meta, runID)
		return nil
	})
	if err != nil {
		s.warn("cannot update metadata for %s: %v", runID, err)
		return false
	}

	s.mu.Lock()
	delete(s.runs, runID)
	s.mu.Unlock()
	return true
}

// PurgeOlderThan deletes every run older than days, including runs whose
// timestamp cannot be parsed. It returns the number of runs removed.
func (s *Store) PurgeOlderThan(days int) int {
	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	purged := 0
	for _, dir := range s.projectDirs() {
		meta, err := s.load(dir)
		if err != nil {
			continue
		}
		for id, rec := range meta {
			ts, err := time.Parse(time.RFC3339, rec.Timestamp)
			if err == nil && !ts.Before(cutoff) {
				continue
			}
			s.mu.Lock()
			s.runs[id] = dir
			s.mu.Unlock()
			if s.DeleteRun(id) {
				purged++
			}
		}
	}
	return purged
}

// Runs lists the runs recorded for root, newest first.
func (s *Store) Runs(root string) []RunInfo {
	dir := s.projectDir(root)
	meta, err := s.load(dir)
	if err != nil {
		return nil
	}
	out := make([]RunInfo, 0, len(meta))
	for id, rec := range meta {
		out = append(out, toInfo(id, rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Run returns one run by id.
func (s *Store) Run(runID string) (RunInfo, bool) {
	dir, ok := s.locate(runID)
	if !ok {
		return RunInfo{}, false
	}
	meta, err := s.load(dir)
	if err != nil {
		return RunInfo{}, false
	}
	rec, ok := meta[runID]
	if !ok {
		return RunInfo{}, false
	}
	return toInfo(runID, rec), true
}

// Size returns the bytes held by the run's snapshots.
func (s *Store) Size(runID string) int64 {
	info, ok := s.Run(runID)
	if !ok {
		return 0
	}
	var total int64
	for _, e := range info.Files {
		if n, err := fsys.Size(s.fs, e.Backup); err == nil {
			total += n
		}
	}
	return total
}

func toInfo(id string, rec *record) RunInfo {
	ts, _ := time.Parse(time.RFC3339, rec.Timestamp)
	files := make([]Entry, len(rec.Files))
	copy(files, rec.Files)
	return RunInfo{ID: id, Root: rec.Root, Timestamp: ts, Files: files}
}

// locate finds the project directory holding runID, scanning metadata
// files when the run was created by another process.
func (s *Store) locate(runID string) (string, bool) {
	if runID == "" {
		return "", false
	}
	s.mu.Lock()
	dir, ok := s.runs[runID]
	s.mu.Unlock()
	if ok {
		return dir, true
	}

	for _, dir := range s.projectDirs() {
		meta, err := s.load(dir)
		if err != nil {
			continue
		}
		if _, ok := meta[runID]; ok {
			s.mu.Lock()
			s.runs[runID] = dir
			s.mu.Unlock()
			return dir, true
		}
	}
	return "", false
}

func (s *Store) projectDirs() []string {
	infos, err := s.fs.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, fi := range infos {
		if fi.IsDir() {
			dirs = append(dirs, filepath.Join(s.dir, fi.Name()))
		}
	}
	return dirs
}

func (s *Store) load(dir string) (metadata, error) {
	data, err := fsys.ReadFile(s.fs, filepath.Join(dir, MetadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return metadata{}, nil
	}
	if err != nil {
		return nil, err
	}
	meta := metadata{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("corrupt %s: %w", MetadataFile, err)
	}
	return meta, nil
}

// update runs fn on the metadata of dir under the project lock and writes
// the result atomically.
func (s *Store) update(dir string, fn func(metadata) error) error {
	path := filepath.Join(dir, MetadataFile)
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	unlock, err := s.fs.Lock(ctx, path)
	if err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer unlock()

	meta, err := s.load(dir)
	if err != nil {
		return err
	}
	if err := fn(meta); err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return fsys.AtomicWrite(s.fs, path, data)
}

// relativeTo returns path relative to root, or its base name when path
// lies outside root.
func relativeTo(root, path string) string {
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return rel
		}
	}
	return filepath.Base(path)
}

func uniqueBackup(filesystem fsys.Filesystem, path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s.%d%s", stem, n, ext)
		if ok, _ := fsys.Exists(filesystem, candidate); !ok {
			return candidate
		}
	}
}
