// Package history keeps the durable log of file operations and undoes the
// most recent one.
//
// The log is a single JSON array rewritten in full after every append. It
// is never edited after the fact: undoing an operation appends a restore
// entry describing the outcome.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/assetkeeper/internal/fsys"
	"github.com/harrison/assetkeeper/internal/models"
)

const lockTimeout = 10 * time.Second

// EntryType mirrors models.Action on disk.
type EntryType string

const (
	TypeMove    EntryType = "move"
	TypeCopy    EntryType = "copy"
	TypeDelete  EntryType = "delete"
	TypeRestore EntryType = "restore"
)

// Entry is one logged operation.
type Entry struct {
	ID          string    `json:"id"`
	Type        EntryType `json:"type"`
	Source      string    `json:"source"`
	Destination string    `json:"destination,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	BackupID    string    `json:"backup_id,omitempty"`
	BaseFolder  string    `json:"base_folder,omitempty"`
}

// RunSummary groups the entries of one run.
type RunSummary struct {
	ID        string
	Root      string
	Started   time.Time
	Entries   []Entry
	Succeeded int
	Failed    int
}

// Restorer puts a single file back from a backup run.
type Restorer interface {
	RestoreFile(runID, original string) bool
}

// Logger receives durability warnings.
type Logger interface {
	LogWarn(message string)
}

// Log is the operation history backed by one JSON file.
type Log struct {
	fs       fsys.Filesystem
	path     string
	restorer Restorer
	logger   Logger
	now      func() time.Time

	mu      sync.Mutex
	entries []Entry
}

// Open loads the log at path. A missing file starts an empty log; a corrupt
// one is set aside as path.corrupt and replaced.
func Open(filesystem fsys.Filesystem, path string, restorer Restorer, logger Logger) *Log {
	l := &Log{
		fs:       filesystem,
		path:     filepath.Clean(path),
		restorer: restorer,
		logger:   logger,
		now:      time.Now,
	}
	entries, err := l.load()
	if err != nil {
		l.warn("unreadable history %s: %v", l.path, err)
		if rerr := filesystem.Rename(l.path, l.path+".corrupt"); rerr != nil {
			l.warn("cannot set aside %s: %v", l.path, rerr)
		}
	}
	l.entries = entries
	return l
}

// Path returns the backing file.
func (l *Log) Path() string {
	return l.path
}

func (l *Log) warn(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.LogWarn(fmt.Sprintf("history: "+format, args...))
	}
}

func (l *Log) load() ([]Entry, error) {
	data, err := fsys.ReadFile(l.fs, l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Append records e, filling in its id and timestamp when unset, and
// persists the whole log. The entry stays in memory even when the write
// fails; the returned bool reports durability.
func (l *Log) Append(e Entry) (Entry, bool) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	unlock, err := l.fs.Lock(ctx, l.path)
	if err != nil {
		l.entries = append(l.entries, e)
		l.warn("cannot lock %s: %v", l.path, err)
		return e, false
	}
	defer unlock()

	// Pick up entries written by other processes since the last read.
	if onDisk, err := l.load(); err == nil && len(onDisk) > len(l.entries) {
		l.entries = onDisk
	}
	l.entries = append(l.entries, e)

	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err == nil {
		err = fsys.AtomicWrite(l.fs, l.path, data)
	}
	if err != nil {
		l.warn("cannot write %s: %v", l.path, err)
		return e, false
	}
	return e, true
}

// RecordOperation appends an organizer operation to the log.
func (l *Log) RecordOperation(op *models.FileOperation, runID, root string) {
	l.Append(Entry{
		Type:        EntryType(op.Action),
		Source:      op.Source,
		Destination: op.Destination,
		Timestamp:   op.Time,
		Success:     op.Success,
		Error:       op.Error,
		BackupID:    runID,
		BaseFolder:  root,
	})
}

// Entries returns a copy of the whole log, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Last returns the most recent entry.
func (l *Log) Last() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// CanUndo reports whether the most recent entry succeeded and is not itself
// a restore.
func (l *Log) CanUndo() bool {
	last, ok := l.Last()
	return ok && last.Success && last.Type != TypeRestore
}

// UndoLast reverses the most recent operation and appends a restore entry.
func (l *Log) UndoLast() bool {
	if !l.CanUndo() {
		return false
	}
	last, _ := l.Last()

	restore := Entry{Type: TypeRestore, BackupID: last.BackupID, BaseFolder: last.BaseFolder}
	var err error
	switch last.Type {
	case TypeMove:
		restore.Source, restore.Destination = last.Destination, last.Source
		err = fsys.MoveFile(l.fs, last.Destination, last.Source)
	case TypeCopy:
		restore.Source = last.Destination
		err = l.fs.Remove(last.Destination)
	case TypeDelete:
		restore.Source, restore.Destination = last.BackupID, last.Source
		switch {
		case l.restorer == nil || last.BackupID == "":
			err = errors.New("no backup recorded")
		case !l.restorer.RestoreFile(last.BackupID, last.Source):
			err = fmt.Errorf("backup %s has no copy of %s", last.BackupID, last.Source)
		}
	default:
		err = fmt.Errorf("cannot undo %q", last.Type)
	}

	restore.Success = err == nil
	if err != nil {
		restore.Error = err.Error()
		l.warn("undo of %s %s failed: %v", last.Type, last.Source, err)
	}
	l.Append(restore)
	return restore.Success
}

// EntriesForRun returns the entries tagged with runID, oldest first.
func (l *Log) EntriesForRun(runID string) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.BackupID == runID {
			out = append(out, e)
		}
	}
	return out
}

// RunsForRoot groups the entries of root by run, newest first.
func (l *Log) RunsForRoot(root string) []RunSummary {
	root = filepath.Clean(root)
	byID := make(map[string]*RunSummary)
	var order []string
	for _, e := range l.Entries() {
		if e.BackupID == "" || filepath.Clean(e.BaseFolder) != root {
			continue
		}
		run, ok := byID[e.BackupID]
		if !ok {
			run = &RunSummary{ID: e.BackupID, Root: root, Started: e.Timestamp}
			byID[e.BackupID] = run
			order = append(order, e.BackupID)
		}
		run.Entries = append(run.Entries, e)
		if e.Type == TypeRestore {
			continue
		}
		if e.Success {
			run.Succeeded++
		} else {
			run.Failed++
		}
	}

	out := make([]RunSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Started.After(out[j].Started) })
	return out
}

// DeleteRun drops every entry of runID and returns how many were removed.
func (l *Log) DeleteRun(runID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	if unlock, err := l.fs.Lock(ctx, l.path); err == nil {
		defer unlock()
		if onDisk, err := l.load(); err == nil && len(onDisk) > len(l.entries) {
			l.entries = onDisk
		}
	} else {
		l.warn("cannot lock %s: %v", l.path, err)
	}

	kept := l.entries[:0:0]
	for _, e := range l.entries {
		if e.BackupID != runID {
			kept = append(kept, e)
		}
	}
	removed := len(l.entries) - len(kept)
	if removed == 0 {
		return 0
	}
	l.entries = kept

	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err == nil {
		err = fsys.AtomicWrite(l.fs, l.path, data)
	}
	if err != nil {
		l.warn("cannot write %s: %v", l.path, err)
	}
	return removed
}

// Recent returns up to limit entries, newest first. A limit of zero or less
// returns everything.
func (l *Log) Recent(limit int) []Entry {
	all := l.Entries()
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]Entry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out
}
