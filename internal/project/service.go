// Package project runs the asset pipeline for one project: scan scene
// documents, reconcile their references against the tree, organize the
// tree, and roll changes back.
package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrison/assetkeeper/internal/backup"
	"github.com/harrison/assetkeeper/internal/fsys"
	"github.com/harrison/assetkeeper/internal/history"
	"github.com/harrison/assetkeeper/internal/models"
	"github.com/harrison/assetkeeper/internal/organize"
	"github.com/harrison/assetkeeper/internal/progress"
	"github.com/harrison/assetkeeper/internal/reconcile"
	"github.com/harrison/assetkeeper/internal/scene"
)

var (
	// ErrNothingToUndo is returned when the last logged operation cannot be undone.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNoDocuments is returned when organizing a result that has no scene documents.
	ErrNoDocuments = errors.New("no scene documents in analysis")
	// ErrBackupDisabled is returned by operations that need the backup store.
	ErrBackupDisabled = errors.New("backups are disabled")
	// ErrNoHistory is returned by operations that need the operation log.
	ErrNoHistory = errors.New("operation history is not configured")
)

// Logger receives service-level messages.
type Logger interface {
	LogInfo(message string)
	LogWarn(message string)
}

// Options configures a Service.
type Options struct {
	Organize           organize.Options
	Recursive          bool
	DocumentExtensions []string
	RetentionDays      int
}

// Option wires an optional collaborator into a Service.
type Option func(*Service)

// WithScanner replaces the default scanner.
func WithScanner(sc *scene.Scanner) Option {
	return func(s *Service) { s.scanner = sc }
}

// WithBackups enables snapshots before destructive operations.
func WithBackups(store *backup.Store) Option {
	return func(s *Service) { s.backups = store }
}

// WithHistory records operations and enables undo.
func WithHistory(log *history.Log) Option {
	return func(s *Service) { s.history = log }
}

// WithSink reports progress to sink.
func WithSink(sink progress.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithLogger sets the service logger.
func WithLogger(l Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service owns the collaborators of one project session.
type Service struct {
	fs      fsys.Filesystem
	opts    Options
	scanner *scene.Scanner
	backups *backup.Store
	history *history.Log
	sink    progress.Sink
	logger  Logger
}

// NewService builds a service over filesystem.
func NewService(filesystem fsys.Filesystem, opts Options, options ...Option) *Service {
	s := &Service{fs: filesystem, opts: opts}
	for _, opt := range options {
		opt(s)
	}
	if s.scanner == nil {
		s.scanner = scene.NewScanner(filesystem, scene.WithDocumentExtensions(opts.DocumentExtensions))
	}
	return s
}

// Options returns the service configuration.
func (s *Service) Options() Options {
	return s.opts
}

// Backups returns the backup store, or nil when backups are disabled.
func (s *Service) Backups() *backup.Store {
	return s.backups
}

// History returns the operation log, or nil when none is configured.
func (s *Service) History() *history.Log {
	return s.history
}

func (s *Service) info(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.LogInfo(fmt.Sprintf(format, args...))
	}
}

func (s *Service) warn(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.LogWarn(fmt.Sprintf(format, args...))
	}
}

// ScanDocument extracts the references of one scene document.
func (s *Service) ScanDocument(path string) *models.ReferenceSet {
	return s.scanner.Scan(filepath.Clean(path))
}

// Analyze scans target and reconciles it against root. Target is either a
// scene document or a folder of them. An empty root defaults to the
// document's folder or to the target folder itself.
func (s *Service) Analyze(ctx context.Context, target, root string) (*models.ReconciliationResult, error) {
	target = filepath.Clean(target)
	info, err := s.fs.Stat(target)
	if err != nil {
		return nil, models.NewAssetError(models.Classify(err), "analyze", target, err)
	}

	var docs []string
	if info.IsDir() {
		docs, err = scene.FindDocuments(s.fs, target, s.opts.Recursive, s.scanner.DocumentExtensions())
		if err != nil {
			return nil, fmt.Errorf("failed to list documents in %s: %w", target, err)
		}
		if root == "" {
			root = target
		}
	} else {
		docs = []string{target}
		if root == "" {
			root = filepath.Dir(target)
		}
	}

	sets := make([]*models.ReferenceSet, 0, len(docs))
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress.Step(s.sink, progress.StageScan, i+1, len(docs), "scanning "+filepath.Base(doc))
		refs := s.scanner.Scan(doc)
		for _, e := range refs.Errors {
			progress.Emitf(s.sink, progress.StageScan, progress.LevelWarn, "%s", e)
		}
		for _, d := range refs.Diagnostics {
			progress.Emitf(s.sink, progress.StageScan, progress.LevelDebug, "%s: %s", filepath.Base(doc), d)
		}
		sets = append(sets, refs)
	}

	progress.Emitf(s.sink, progress.StageReconcile, progress.LevelInfo, "matching references under %s", root)
	result, err := reconcile.New(s.fs, s.opts.Organize.UnusedFolder).Reconcile(ctx, root, sets)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		result.Errors = append(result.Errors,
			models.NewAssetError(models.KindNotFound, "analyze", target, errors.New("no scene documents found")).Error())
	}

	progress.Emitf(s.sink, progress.StageReconcile, progress.LevelInfo,
		"%d linked, %d unused, %d missing", result.Linked.Len(), result.Unused.Len(), result.Missing.Len())
	return result, nil
}

// Organize applies the configured organize options to result. Old backup
// runs are purged first.
func (s *Service) Organize(ctx context.Context, result *models.ReconciliationResult) (*models.OrganizeResult, error) {
	if len(result.Documents) == 0 {
		return nil, ErrNoDocuments
	}

	options := []organize.Option{organize.WithSink(s.sink)}
	if s.backups != nil {
		if s.opts.RetentionDays > 0 {
			if n := s.backups.PurgeOlderThan(s.opts.RetentionDays); n > 0 {
				s.info("purged %d backup runs older than %d days", n, s.opts.RetentionDays)
			}
		}
		options = append(options, organize.WithJournal(s.backups))
	}
	if s.history != nil {
		options = append(options, organize.WithRecorder(s.history))
	}

	out, err := organize.New(s.fs, s.opts.Organize, options...).Organize(ctx, result)
	if err != nil {
		return out, err
	}
	for _, op := range out.Failed() {
		s.warn("%s %s failed: %s", op.Action, op.Source, op.Error)
	}
	return out, nil
}

// Undo reverses the most recent logged operation.
func (s *Service) Undo() error {
	if s.history == nil {
		return ErrNoHistory
	}
	if !s.history.CanUndo() {
		return ErrNothingToUndo
	}
	last, _ := s.history.Last()
	if !s.history.UndoLast() {
		restore, _ := s.history.Last()
		return fmt.Errorf("undo of %s %s failed: %s", last.Type, last.Source, restore.Error)
	}
	s.info("undid %s of %s", last.Type, last.Source)
	return nil
}

// RestoreSummary reports a run restore.
type RestoreSummary struct {
	RunID    string
	Restored []string
	Removed  []string
	Cleaned  bool
}

// RestoreRun puts back every file snapshotted by runID and removes the
// copies the run left in the linked and unused folders for those files.
// With cleanup the backup run is deleted afterwards.
func (s *Service) RestoreRun(runID string, cleanup bool) (*RestoreSummary, error) {
	if s.backups == nil {
		return nil, ErrBackupDisabled
	}
	info, ok := s.backups.Run(runID)
	if !ok {
		return nil, models.NewAssetError(models.KindNotFound, "restore", runID, os.ErrNotExist)
	}

	summary := &RestoreSummary{RunID: runID}
	restored, n := s.backups.RestoreRunFiles(runID)
	back := models.NewPathSet()
	for _, e := range restored {
		back.Add(e.Original)
		summary.Restored = append(summary.Restored, e.Original)
	}
	progress.Emitf(s.sink, progress.StageRestore, progress.LevelInfo, "restored %d of %d files from %s", n, len(info.Files), runID)

	if s.history != nil {
		for _, e := range s.history.EntriesForRun(runID) {
			if e.Type != history.TypeMove || !e.Success || e.Destination == "" || !back.Contains(e.Source) {
				continue
			}
			if ok, _ := fsys.Exists(s.fs, e.Destination); !ok {
				continue
			}
			if err := s.fs.Remove(e.Destination); err != nil {
				s.warn("cannot remove %s: %v", e.Destination, err)
				continue
			}
			summary.Removed = append(summary.Removed, e.Destination)
		}

		entry := history.Entry{Type: history.TypeRestore, Source: runID, BackupID: runID, BaseFolder: info.Root, Success: n > 0}
		if n == 0 {
			entry.Error = "no files restored"
		}
		s.history.Append(entry)
	}

	if n == 0 {
		return summary, fmt.Errorf("run %s: no files restored", runID)
	}
	if cleanup {
		summary.Cleaned = s.backups.DeleteRun(runID)
	}
	return summary, nil
}
