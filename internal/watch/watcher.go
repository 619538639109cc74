// Package watch reports changes to scene documents under a project folder.
package watch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op is the kind of change seen on a document.
type Op int

const (
	// Created means a new document appeared.
	Created Op = iota
	// Written means an existing document was saved.
	Written
	// Removed means a document was deleted or renamed away.
	Removed
)

// String returns a human-readable representation of the operation
func (op Op) String() string {
	switch op {
	case Created:
		return "created"
	case Written:
		return "written"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is one document change.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// DefaultDebounceDelay coalesces the burst of writes an application makes
// while saving a large document.
const DefaultDebounceDelay = 500 * time.Millisecond

// Watcher watches a folder tree for changes to files with one of the
// configured extensions.
type Watcher struct {
	watcher *fsnotify.Watcher
	events  chan Event
	errors  chan error
	done    chan struct{}
	root    string
	exts    map[string]bool
	skip    map[string]bool

	mu            sync.Mutex
	debounceDelay time.Duration
	pending       map[string]*time.Timer
	firstOp       map[string]Op
	closed        bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the delay used to coalesce writes to one file.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounceDelay = d
		}
	}
}

// WithSkipDirs excludes folders by name at any depth.
func WithSkipDirs(names ...string) Option {
	return func(w *Watcher) {
		for _, n := range names {
			w.skip[strings.ToLower(n)] = true
		}
	}
}

// New starts watching root and every folder below it. Only files whose
// extension is in exts produce events.
func New(root string, exts []string, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:       fsw,
		events:        make(chan Event, 100),
		errors:        make(chan error, 10),
		done:          make(chan struct{}),
		root:          filepath.Clean(root),
		exts:          make(map[string]bool, len(exts)),
		skip:          make(map[string]bool),
		debounceDelay: DefaultDebounceDelay,
		pending:       make(map[string]*time.Timer),
		firstOp:       make(map[string]Op),
	}
	for _, ext := range exts {
		w.exts[strings.ToLower(ext)] = true
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addRecursive(w.root); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.skipped(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil && !os.IsPermission(err) {
			return err
		}
		return nil
	})
}

func (w *Watcher) skipped(name string) bool {
	return strings.HasPrefix(name, ".") || w.skip[strings.ToLower(name)]
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

func (w *Watcher) reportError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !w.skipped(info.Name()) {
				if err := w.addRecursive(ev.Name); err != nil {
					w.reportError(err)
				}
			}
			return
		}
	}

	if !w.exts[strings.ToLower(filepath.Ext(ev.Name))] {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		w.debounce(ev.Name, Created)
	case ev.Has(fsnotify.Write):
		w.debounce(ev.Name, Written)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.send(ev.Name, Removed)
	}
}

// debounce restarts the file's timer. A create followed by writes is
// reported once, as created.
func (w *Watcher) debounce(path string, op Op) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
		if op == Written {
			if prev, ok := w.firstOp[path]; ok {
				op = prev
			}
		}
	}
	w.firstOp[path] = op

	w.pending[path] = time.AfterFunc(w.debounceDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		delete(w.firstOp, path)
		w.mu.Unlock()
		w.send(path, op)
	})
}

func (w *Watcher) send(path string, op Op) {
	select {
	case w.events <- Event{Path: path, Op: op, Time: time.Now()}:
	case <-w.done:
	default:
	}
}

// Events returns the channel of document changes.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns watcher errors. Errors are dropped when nobody reads them.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Root returns the watched folder.
func (w *Watcher) Root() string {
	return w.root
}

// Close stops the watcher and cancels pending events.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, timer := range w.pending {
		timer.Stop()
	}
	w.pending = nil
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}
