// Package indexer catalogues every SIMPL+ program, user library and
// generated API file under a workspace. Unchanged files are skipped by
// content hash, files that disappeared are dropped from the catalog.
package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	ignore "github.com/sabhiram/go-gitignore"
	"go.lsp.dev/uri"
	"golang.org/x/sync/errgroup"

	"splusls/internal/catalog"
	"splusls/internal/lexer"
	"splusls/internal/symbols"
)

// DefaultPatterns select the files a workspace index covers.
var DefaultPatterns = []string{"**/*.usp", "**/*.usl", "**/SPlsWork/*.api"}

// Indexer walks a workspace and keeps a catalog in step with it.
type Indexer struct {
	root     string
	catalog  *catalog.Catalog
	lexer    lexer.Lexer
	patterns []string
	ignore   []string
	workers  int
	logger   *slog.Logger
}

// Config configures the indexer.
type Config struct {
	Lexer    lexer.Lexer // default the built-in scanner
	Patterns []string    // default DefaultPatterns
	Ignore   []string    // doublestar globs relative to the root
	Workers  int         // default GOMAXPROCS
	Logger   *slog.Logger
}

// New creates an indexer for the workspace at root.
func New(root string, c *catalog.Catalog, cfg Config) (*Indexer, error) {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", absPath)
	}
	for _, p := range append(append([]string(nil), cfg.Patterns...), cfg.Ignore...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
	}

	idx := &Indexer{
		root:     absPath,
		catalog:  c,
		lexer:    cfg.Lexer,
		patterns: cfg.Patterns,
		ignore:   cfg.Ignore,
		workers:  cfg.Workers,
		logger:   cfg.Logger,
	}
	if idx.lexer == nil {
		idx.lexer = lexer.NewScanner()
	}
	if len(idx.patterns) == 0 {
		idx.patterns = DefaultPatterns
	}
	if idx.workers <= 0 {
		idx.workers = runtime.GOMAXPROCS(0)
	}
	if idx.logger == nil {
		idx.logger = slog.New(slog.DiscardHandler)
	}
	return idx, nil
}

// Root returns the absolute workspace path.
func (idx *Indexer) Root() string {
	return idx.root
}

// IndexOptions configures the index operation.
type IndexOptions struct {
	Force bool // re-extract files whose hash is unchanged
}

// IndexResult contains statistics from an index operation.
type IndexResult struct {
	FilesScanned   int           `json:"files_scanned"`
	FilesProcessed int           `json:"files_processed"`
	FilesSkipped   int           `json:"files_skipped"`
	FilesDeleted   int           `json:"files_deleted"`
	Symbols        int           `json:"symbols"`
	Duration       time.Duration `json:"duration"`
}

type extracted struct {
	uri     string
	hash    string
	entries []catalog.Entry
}

// Index brings the catalog up to date with the workspace. Files are read
// and parsed concurrently; catalog writes happen one file at a time.
func (idx *Indexer) Index(ctx context.Context, opts IndexOptions) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{}

	paths, err := idx.collect()
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", idx.root, err)
	}
	result.FilesScanned = len(paths)

	known, err := idx.catalog.Files(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu   sync.Mutex
		done []extracted
		seen = make(map[string]bool, len(paths))
	)
	for _, p := range paths {
		seen[string(uri.File(p))] = true
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)
	for _, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				idx.logger.Debug("skipping file", "path", path, "error", err)
				return nil
			}
			u := string(uri.File(path))
			hash := strconv.FormatUint(xxhash.Sum64(data), 16)
			if !opts.Force && known[u] == hash {
				return nil
			}
			tree, err := parse(gctx, idx.lexer, u, path, string(data))
			if err != nil {
				return fmt.Errorf("parsing %s: %w", path, err)
			}
			mu.Lock()
			done = append(done, extracted{uri: u, hash: hash, entries: catalog.Flatten(tree)})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, e := range done {
		if err := idx.catalog.ReplaceHashed(ctx, e.uri, e.hash, e.entries); err != nil {
			return nil, err
		}
		result.Symbols += len(e.entries)
	}
	result.FilesProcessed = len(done)
	result.FilesSkipped = len(paths) - len(done)

	for u := range known {
		if seen[u] || !idx.owns(u) {
			continue
		}
		if err := idx.catalog.Remove(ctx, u); err != nil {
			idx.logger.Warn("failed to remove stale file", "uri", u, "error", err)
			continue
		}
		result.FilesDeleted++
	}

	result.Duration = time.Since(start)
	idx.logger.Info("indexed workspace",
		"root", idx.root,
		"processed", result.FilesProcessed,
		"skipped", result.FilesSkipped,
		"deleted", result.FilesDeleted,
		"duration", result.Duration)
	return result, nil
}

// ParseFile reads and parses one program, library or API file.
func ParseFile(ctx context.Context, lx lexer.Lexer, path string) (*symbols.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(ctx, lx, string(uri.File(path)), path, string(data))
}

// parse reads .api files with the API parser and everything else through
// the lexer.
func parse(ctx context.Context, lx lexer.Lexer, u, path, text string) (*symbols.Tree, error) {
	if strings.EqualFold(filepath.Ext(path), ".api") {
		return symbols.ParseAPI(u, text), nil
	}
	tokens, err := lx.Tokenize(ctx, text)
	if err != nil {
		return nil, err
	}
	return symbols.Extract(u, tokens), nil
}

// owns reports whether a catalogued URI lies under the workspace root. Open
// documents elsewhere may share the catalog and are left alone.
func (idx *Indexer) owns(u string) bool {
	if !strings.HasPrefix(u, "file:") {
		return false
	}
	path := uri.URI(u).Filename()
	rel, err := filepath.Rel(idx.root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// collect lists matching files, skipping version control folders,
// gitignored paths and Ignore globs.
func (idx *Indexer) collect() ([]string, error) {
	gi := LoadGitignore(idx.root)
	var paths []string
	err := filepath.WalkDir(idx.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == idx.root {
			return nil
		}
		rel, err := filepath.Rel(idx.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if entry.IsDir() {
			if isIgnoredDir(entry.Name()) || (gi != nil && gi.MatchesPath(rel+"/")) || idx.ignored(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) || idx.ignored(rel) {
			return nil
		}
		if idx.matches(rel) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

func (idx *Indexer) matches(rel string) bool {
	for _, p := range idx.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		// case-insensitive extensions, as Windows tooling writes them
		if ok, _ := doublestar.Match(strings.ToLower(p), strings.ToLower(rel)); ok {
			return true
		}
	}
	return false
}

func (idx *Indexer) ignored(rel string) bool {
	for _, p := range idx.ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func isIgnoredDir(name string) bool {
	switch name {
	case ".git", ".svn", ".hg", ".idea", ".vscode", "node_modules":
		return true
	}
	return false
}

// LoadGitignore compiles the workspace's .gitignore. It returns nil when
// there is none.
func LoadGitignore(root string) *ignore.GitIgnore {
	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	patterns := parseGitignore(string(content))
	if len(patterns) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(patterns...)
}

// parseGitignore extracts patterns from gitignore content.
func parseGitignore(content string) []string {
	var patterns []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || trimmed[0] == '#' {
			continue
		}
		patterns = append(patterns, trimmed)
	}
	return patterns
}
