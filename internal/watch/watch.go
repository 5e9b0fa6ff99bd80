// Package watch reports debounced filesystem changes to SIMPL+ artifacts:
// user libraries, SIMPL# libraries and the API files generated from them.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"
)

// Op is the kind of change reported for a path.
type Op int

const (
	Write Op = iota // created or modified
	Remove          // removed or renamed away
)

func (o Op) String() string {
	if o == Remove {
		return "remove"
	}
	return "write"
}

// Change is one debounced filesystem change.
type Change struct {
	Path string
	Op   Op
}

// DefaultPatterns select the artifacts a program can reference. Patterns are
// doublestar globs matched against the slash separated path relative to the
// watched root.
var DefaultPatterns = []string{"**/*.usl", "**/*.clz", "**/SPlsWork/*.api"}

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// maxWatches limits directory watches per tree to avoid exhausting
// file descriptors.
const maxWatches = 1000

// Options configures a Watcher.
type Options struct {
	Patterns []string // default DefaultPatterns
	Ignore   []string // doublestar globs of paths to skip
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher watches directories and delivers matching changes to Run's
// callback once each path has been quiet for the debounce interval.
type Watcher struct {
	fs       *fsnotify.Watcher
	patterns []string
	ignore   []string
	debounce time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	dirs       map[string]string // watched directory -> root it was added under
	gitignores map[string]*ignore.GitIgnore
	trees      map[string]bool // roots added with AddTree
	timers     map[string]*time.Timer
	pending    map[string]Op

	ready     chan Change
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a watcher. Invalid glob patterns are rejected.
func New(opts Options) (*Watcher, error) {
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range append(append([]string(nil), patterns...), opts.Ignore...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid watch pattern %q", p)
		}
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &Watcher{
		fs:         fsw,
		patterns:   patterns,
		ignore:     opts.Ignore,
		debounce:   debounce,
		logger:     logger,
		dirs:       make(map[string]string),
		gitignores: make(map[string]*ignore.GitIgnore),
		trees:      make(map[string]bool),
		timers:     make(map[string]*time.Timer),
		pending:    make(map[string]Op),
		ready:      make(chan Change, 64),
		done:       make(chan struct{}),
	}, nil
}

// Add watches a single directory.
func (w *Watcher) Add(dir string) error {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	w.mu.Lock()
	_, ok := w.dirs[dir]
	w.mu.Unlock()
	if ok {
		return nil
	}
	if err := w.fs.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.mu.Lock()
	w.dirs[dir] = dir
	if _, ok := w.gitignores[dir]; !ok {
		w.gitignores[dir] = loadGitignore(dir)
	}
	w.mu.Unlock()
	w.logger.Debug("watching directory", "dir", dir)
	return nil
}

// AddTree watches root and its subdirectories, skipping version control
// folders, gitignored directories and Ignore globs.
func (w *Watcher) AddTree(root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w.mu.Lock()
	gi, ok := w.gitignores[root]
	if !ok {
		gi = loadGitignore(root)
		w.gitignores[root] = gi
	}
	w.trees[root] = true
	w.mu.Unlock()
	return w.walk(root, root, gi)
}

func (w *Watcher) walk(root, start string, gi *ignore.GitIgnore) error {
	count := 0
	limitReached := false
	err := filepath.WalkDir(start, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && w.skipDir(root, path, gi) {
			return filepath.SkipDir
		}
		if count >= maxWatches {
			if !limitReached {
				w.logger.Warn("reached max watches limit", "limit", maxWatches, "root", root)
				limitReached = true
			}
			return filepath.SkipDir
		}

		w.mu.Lock()
		_, watched := w.dirs[path]
		w.mu.Unlock()
		if watched {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			return nil
		}
		w.mu.Lock()
		w.dirs[path] = root
		w.mu.Unlock()
		count++
		return nil
	})
	w.logger.Debug("added watches", "count", count, "root", root)
	return err
}

func (w *Watcher) skipDir(root, path string, gi *ignore.GitIgnore) bool {
	if isIgnoredDir(filepath.Base(path)) {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if gi != nil && gi.MatchesPath(rel+"/") {
		return true
	}
	return w.ignored(rel) || w.ignored(rel+"/")
}

func (w *Watcher) ignored(rel string) bool {
	for _, p := range w.ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Watched returns the number of watched directories.
func (w *Watcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}

// Run delivers changes to fn until ctx is done or the watcher is closed.
// fn runs on Run's goroutine.
func (w *Watcher) Run(ctx context.Context, fn func(Change)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		case c := <-w.ready:
			fn(c)
		}
	}
}

// Close stops the watcher and pending timers. It is safe to call more than
// once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		for path, t := range w.timers {
			t.Stop()
			delete(w.timers, path)
		}
		w.mu.Unlock()
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.addCreatedDir(path)
			return
		}
	}

	var op Op
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		op = Remove
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		op = Write
	default:
		return
	}
	if !w.matches(path) {
		return
	}
	w.schedule(path, op)
}

// addCreatedDir extends a tree watch to a directory created inside it.
func (w *Watcher) addCreatedDir(path string) {
	w.mu.Lock()
	root, ok := w.dirs[filepath.Dir(path)]
	tree := w.trees[root]
	gi := w.gitignores[root]
	w.mu.Unlock()
	if !ok || !tree || w.skipDir(root, path, gi) {
		return
	}
	if err := w.walk(root, path, gi); err != nil {
		w.logger.Warn("failed to watch new directory", "dir", path, "error", err)
	}
}

// matches reports whether path is a watched artifact.
func (w *Watcher) matches(path string) bool {
	w.mu.Lock()
	root, ok := w.dirs[filepath.Dir(path)]
	gi := w.gitignores[root]
	w.mu.Unlock()
	if !ok {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if gi != nil && gi.MatchesPath(rel) {
		return false
	}
	if w.ignored(rel) {
		return false
	}
	// the last two segments let a directory added on its own, such as
	// SPlsWork, match patterns that name it
	tail := filepath.Base(filepath.Dir(path)) + "/" + filepath.Base(path)
	for _, p := range w.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, tail); ok {
			return true
		}
	}
	return false
}

// schedule records the latest op for path and restarts its quiet timer.
func (w *Watcher) schedule(path string, op Op) {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.done:
		return
	default:
	}
	w.pending[path] = op
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	op, ok := w.pending[path]
	delete(w.pending, path)
	delete(w.timers, path)
	w.mu.Unlock()
	if !ok {
		return
	}
	w.logger.Debug("artifact changed", "path", path, "op", op)
	select {
	case w.ready <- Change{Path: path, Op: op}:
	case <-w.done:
	}
}

func isIgnoredDir(name string) bool {
	switch name {
	case ".git", ".svn", ".hg", ".idea", ".vscode", "node_modules":
		return true
	}
	return false
}
