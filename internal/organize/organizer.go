// Package organize rearranges a reconciled project tree.
//
// Linked files are consolidated into one canonical folder, byte-identical
// duplicates are removed, same-name files with different content are kept
// under a renamed variant, and unreferenced files are moved into a staging
// folder. Every mutation is reported as a models.FileOperation. A failure is
// recorded on its operation and the batch carries on with the next file.
package organize

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"

	"github.com/harrison/assetkeeper/internal/fsys"
	"github.com/harrison/assetkeeper/internal/models"
	"github.com/harrison/assetkeeper/internal/progress"
)

// Options controls an organize run.
type Options struct {
	LinkedFolder      string
	UnusedFolder      string
	ConsolidateLinked bool
	RelocateUnused    bool
	CopyInsteadOfMove bool
	DeleteDuplicates  bool
	FullHash          bool
	CheckIntegrity    bool
	PruneEmpty        bool
}

// DefaultOptions returns the stock layout: linked files in "maps", unused
// files in "unused", everything enabled except forced copying and full
// hashing.
func DefaultOptions() Options {
	return Options{
		LinkedFolder:      "maps",
		UnusedFolder:      "unused",
		ConsolidateLinked: true,
		RelocateUnused:    true,
		DeleteDuplicates:  true,
		CheckIntegrity:    true,
		PruneEmpty:        true,
	}
}

// Journal captures file contents before they are moved or deleted.
type Journal interface {
	BeginRun(root string) (string, bool)
	Snapshot(runID, path string) (string, bool)
}

// Recorder receives every attempted operation of a run.
type Recorder interface {
	RecordOperation(op *models.FileOperation, runID, root string)
}

// Option configures an Organizer.
type Option func(*Organizer)

// WithJournal snapshots files before destructive operations.
func WithJournal(j Journal) Option {
	return func(o *Organizer) { o.journal = j }
}

// WithRecorder forwards operations to r.
func WithRecorder(r Recorder) Option {
	return func(o *Organizer) { o.recorder = r }
}

// WithSink reports progress to s.
func WithSink(s progress.Sink) Option {
	return func(o *Organizer) { o.sink = s }
}

// Organizer applies Options to reconciliation results.
type Organizer struct {
	fs       billy.Filesystem
	opts     Options
	journal  Journal
	recorder Recorder
	sink     progress.Sink
	fp       *Fingerprinter
}

// New returns an organizer over fs.
func New(fs billy.Filesystem, opts Options, options ...Option) *Organizer {
	o := &Organizer{
		fs:   fs,
		opts: opts,
		fp:   NewFingerprinter(fs, opts.FullHash),
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// run holds the state of one Organize call.
type run struct {
	*Organizer
	ctx       context.Context
	result    *models.OrganizeResult
	root      string
	linkedDir string
	unusedDir string
	sceneDirs []string
	journaled bool
	done      int
	total     int
}

// Organize mutates the tree described by rec. It returns an error only when
// a destination folder cannot be created or ctx is canceled; in the latter
// case the partial result is returned with Canceled set.
func (o *Organizer) Organize(ctx context.Context, rec *models.ReconciliationResult) (*models.OrganizeResult, error) {
	root := filepath.Clean(rec.Root)
	r := &run{
		Organizer: o,
		ctx:       ctx,
		root:      root,
		linkedDir: filepath.Join(root, o.opts.LinkedFolder),
		unusedDir: filepath.Join(root, o.opts.UnusedFolder),
	}
	r.result = &models.OrganizeResult{Root: root, LinkedFolder: r.linkedDir, UnusedFolder: r.unusedDir}

	for _, doc := range rec.Documents {
		r.sceneDirs = append(r.sceneDirs, filepath.Dir(filepath.Clean(doc)))
	}
	if len(r.sceneDirs) == 0 {
		r.sceneDirs = []string{root}
	}

	if o.journal != nil {
		if id, ok := o.journal.BeginRun(root); ok {
			r.result.RunID = id
			r.journaled = true
		} else {
			progress.Emitf(o.sink, progress.StageOrganize, progress.LevelWarn, "backup unavailable, continuing without snapshots")
		}
	}
	if r.result.RunID == "" {
		r.result.RunID = uuid.NewString()
	}

	var linked, unused []*models.FileRecord
	if o.opts.ConsolidateLinked {
		linked = rec.LinkedRecords()
	}
	if o.opts.RelocateUnused {
		unused = r.unusedCandidates(rec)
	}
	r.total = len(linked) + len(unused)

	if o.opts.ConsolidateLinked {
		if err := o.fs.MkdirAll(r.linkedDir, 0755); err != nil {
			return r.result, fmt.Errorf("failed to create %s: %w", r.linkedDir, err)
		}
		if err := r.consolidate(linked); err != nil {
			return r.result, err
		}
	}

	if len(unused) > 0 {
		if err := o.fs.MkdirAll(r.unusedDir, 0755); err != nil {
			return r.result, fmt.Errorf("failed to create %s: %w", r.unusedDir, err)
		}
		if err := r.relocate(unused); err != nil {
			return r.result, err
		}
	}
	r.dropEmptyUnused()

	if o.opts.PruneEmpty {
		pruned, err := pruneEmpty(o.fs, root, r.linkedDir, r.unusedDir)
		if err != nil {
			progress.Emitf(o.sink, progress.StageOrganize, progress.LevelWarn, "prune failed: %v", err)
		}
		r.result.PrunedDirs = pruned
	}

	progress.Emitf(o.sink, progress.StageOrganize, progress.LevelInfo,
		"organize finished: %d moved, %d copied, %d deduplicated, %d skipped, %d failed",
		r.result.Moved, r.result.Copied, r.result.Deduplicated, r.result.Skipped, len(r.result.Failed()))
	return r.result, nil
}

func (r *run) checkpoint() error {
	if err := r.ctx.Err(); err != nil {
		r.result.Canceled = true
		progress.Emitf(r.sink, progress.StageOrganize, progress.LevelWarn, "organize canceled after %d of %d files", r.done, r.total)
		return err
	}
	return nil
}

func (r *run) consolidate(records []*models.FileRecord) error {
	groups := make(map[string][]*models.FileRecord)
	for _, rec := range records {
		key := strings.ToLower(rec.Name)
		groups[key] = append(groups[key], rec)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		group := groups[key]
		sort.Slice(group, func(i, j int) bool { return group[i].Path < group[j].Path })
		if len(group) == 1 {
			if err := r.checkpoint(); err != nil {
				return err
			}
			r.placeSingle(group[0])
			continue
		}
		if err := r.resolveGroup(group); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) placeSingle(rec *models.FileRecord) {
	if within(rec.Path, r.linkedDir) {
		r.skip(rec.Path, "already in "+r.opts.LinkedFolder)
		return
	}
	r.verify(rec)
	r.transfer(rec.Path, uniquePath(r.fs, r.linkedDir, rec.Name))
}

// resolveGroup handles same-name files. The instance already in the linked
// folder is the reference; failing that the first instance is promoted.
func (r *run) resolveGroup(group []*models.FileRecord) error {
	refIdx := -1
	for i, rec := range group {
		if within(rec.Path, r.linkedDir) {
			refIdx = i
			break
		}
	}

	if err := r.checkpoint(); err != nil {
		return err
	}
	var ref string
	if refIdx >= 0 {
		ref = group[refIdx].Path
		r.skip(ref, "already in "+r.opts.LinkedFolder)
	} else {
		refIdx = 0
		first := group[0]
		r.verify(first)
		op := r.transfer(first.Path, uniquePath(r.fs, r.linkedDir, first.Name))
		ref = first.Path
		if op.Success && op.Action == models.ActionMove {
			ref = op.Destination
		}
	}

	for i, cand := range group {
		if i == refIdx {
			continue
		}
		if err := r.checkpoint(); err != nil {
			return err
		}
		r.resolveCandidate(ref, cand)
	}
	return nil
}

func (r *run) resolveCandidate(ref string, cand *models.FileRecord) {
	same, err := r.fp.Same(ref, cand.Path)
	if err != nil {
		op := r.newOp(cand.Path, "", r.actionFor(cand.Path))
		op.Fail(models.NewAssetError(models.Classify(err), "fingerprint", cand.Path, err))
		r.finish(op)
		return
	}

	if same {
		if !r.opts.DeleteDuplicates {
			r.skip(cand.Path, "duplicate of "+ref)
			return
		}
		r.remove(cand.Path)
		return
	}

	folder := filepath.Base(filepath.Dir(cand.Path))
	dst := uniquePath(r.fs, r.linkedDir, variantName(cand.Name, folder))
	r.verify(cand)
	op := r.transfer(cand.Path, dst)

	conflict := models.Conflict{Name: cand.Name, Reference: ref, Candidate: cand.Path}
	if op.Success {
		conflict.RenamedTo = dst
	}
	r.result.Conflicts = append(r.result.Conflicts, conflict)
	progress.Emitf(r.sink, progress.StageOrganize, progress.LevelWarn,
		"%s differs from %s, kept as %s", cand.Path, ref, filepath.Base(dst))
}

func (r *run) unusedCandidates(rec *models.ReconciliationResult) []*models.FileRecord {
	docs := models.NewPathSet(rec.Documents...)
	var out []*models.FileRecord
	for _, f := range rec.UnusedRecords() {
		if within(f.Path, r.unusedDir) || docs.Contains(f.Path) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (r *run) relocate(records []*models.FileRecord) error {
	for _, rec := range records {
		if err := r.checkpoint(); err != nil {
			return err
		}
		r.transfer(rec.Path, uniquePath(r.fs, r.unusedDir, rec.Name))
	}
	return nil
}

func (r *run) dropEmptyUnused() {
	if !fsys.IsDir(r.fs, r.unusedDir) {
		return
	}
	entries, err := r.fs.ReadDir(r.unusedDir)
	if err != nil || len(entries) > 0 {
		return
	}
	_ = r.fs.Remove(r.unusedDir)
}

// actionFor copies files from outside every scene directory so assets
// shared with other projects stay where they are.
func (r *run) actionFor(src string) models.Action {
	if r.opts.CopyInsteadOfMove {
		return models.ActionCopy
	}
	for _, dir := range r.sceneDirs {
		if within(src, dir) {
			return models.ActionMove
		}
	}
	return models.ActionCopy
}

func (r *run) newOp(src, dst string, action models.Action) *models.FileOperation {
	return &models.FileOperation{Source: src, Destination: dst, Action: action, Time: time.Now()}
}

func (r *run) transfer(src, dst string) *models.FileOperation {
	op := r.newOp(src, dst, r.actionFor(src))

	var err error
	if op.Action == models.ActionMove {
		if r.journaled {
			if backup, ok := r.journal.Snapshot(r.result.RunID, src); ok {
				op.BackupPath = backup
			} else {
				progress.Emitf(r.sink, progress.StageOrganize, progress.LevelWarn, "no backup for %s", src)
			}
		}
		err = fsys.MoveFile(r.fs, src, dst)
	} else {
		err = fsys.CopyFile(r.fs, src, dst)
	}

	if err != nil {
		op.Fail(err)
	} else {
		op.Success = true
		r.fp.Forget(src)
	}
	r.finish(op)
	return op
}

func (r *run) remove(path string) {
	op := r.newOp(path, "", models.ActionDelete)
	if r.journal != nil {
		backup, ok := "", false
		if r.journaled {
			backup, ok = r.journal.Snapshot(r.result.RunID, path)
		}
		if !ok {
			op.Fail(models.NewAssetError(models.KindIO, "backup", path, errors.New("snapshot failed, duplicate kept")))
			r.finish(op)
			return
		}
		op.BackupPath = backup
	}

	if err := r.fs.Remove(path); err != nil {
		op.Fail(err)
	} else {
		op.Success = true
		r.fp.Forget(path)
	}
	r.finish(op)
}

func (r *run) verify(rec *models.FileRecord) {
	if !r.opts.CheckIntegrity || rec.Category != models.CategoryTexture {
		return
	}
	err := CheckIntegrity(r.fs, rec.Path)
	if err == nil {
		return
	}
	reason := err.Error()
	var ae *models.AssetError
	if errors.As(err, &ae) && ae.Err != nil {
		reason = ae.Err.Error()
	}
	r.result.Warnings = append(r.result.Warnings, models.IntegrityWarning{Path: rec.Path, Reason: reason})
	progress.Emitf(r.sink, progress.StageOrganize, progress.LevelWarn, "integrity: %s: %s", rec.Path, reason)
}

func (r *run) skip(path, reason string) {
	r.result.Skipped++
	r.done++
	progress.Step(r.sink, progress.StageOrganize, r.done, r.total, fmt.Sprintf("skipped %s (%s)", filepath.Base(path), reason))
}

func (r *run) finish(op *models.FileOperation) {
	r.result.Record(op)
	if r.recorder != nil {
		r.recorder.RecordOperation(op, r.result.RunID, r.root)
	}
	r.done++

	if !op.Success {
		progress.Emitf(r.sink, progress.StageOrganize, progress.LevelError, "%s %s failed: %s", op.Action, op.Source, op.Error)
		return
	}
	msg := fmt.Sprintf("%s %s", op.Action, filepath.Base(op.Source))
	if op.Destination != "" {
		msg += " -> " + op.Destination
	}
	progress.Step(r.sink, progress.StageOrganize, r.done, r.total, msg)
}
