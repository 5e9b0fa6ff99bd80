// Package project maintains the symbol model of open SIMPL+ programs: each
// program's own symbols plus those of the user libraries (.usl) and SIMPL#
// libraries (.clz, through their generated .api files) it references.
//
// Entries are replaced whole, never mutated, so readers holding a Tree keep a
// consistent snapshot while a rebuild runs.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.lsp.dev/uri"
	"golang.org/x/sync/errgroup"

	"splusls/internal/lexer"
	"splusls/internal/symbols"
)

// EventKind identifies an index notification.
type EventKind int

const (
	// ProgramUpdated fires after a program's tree is replaced.
	ProgramUpdated EventKind = iota
	// LibrariesUpdated fires when a program's resolved library set changes
	// or a referenced library is reloaded or evicted.
	LibrariesUpdated
	// APIsUpdated is LibrariesUpdated for SIMPL# libraries.
	APIsUpdated
	// GenerationFailed carries the error of a failed API generation.
	GenerationFailed
	// ArtifactLoaded fires after a library or API tree is stored.
	ArtifactLoaded
)

var eventNames = [...]string{
	ProgramUpdated:   "ProgramUpdated",
	LibrariesUpdated: "LibrariesUpdated",
	APIsUpdated:      "APIsUpdated",
	GenerationFailed: "GenerationFailed",
	ArtifactLoaded:   "ArtifactLoaded",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "Unknown"
	}
	return eventNames[k]
}

// Event is delivered to subscribers after the index state it describes is in
// place.
type Event struct {
	Kind EventKind
	URI  string        // program URI, or the artifact URI for ArtifactLoaded
	Path string        // artifact path, when one artifact is concerned
	Tree *symbols.Tree // ProgramUpdated and ArtifactLoaded
	Err  error         // GenerationFailed
}

// Op is a filesystem change to an artifact.
type Op int

const (
	Write Op = iota // created or modified
	Remove
)

// Options configures an Index.
type Options struct {
	Lexer          lexer.Lexer
	Generator      string // API generator executable
	SimplDirectory string // passed to the generator
	Workers        int    // concurrent artifact loads, default 4
	Logger         *slog.Logger
}

type program struct {
	uri       string
	hash      uint64
	tree      *symbols.Tree
	libraries []string // .usl paths
	apis      []string // .clz paths
}

type artifact struct {
	tree    *symbols.Tree
	hash    uint64
	pending bool
	failed  bool // generation failed; retried only when the .clz changes
}

// Index owns programs and the artifacts they reference. It is safe for
// concurrent use.
type Index struct {
	lexer     lexer.Lexer
	generator string
	simplDir  string
	workers   int
	logger    *slog.Logger

	mu        sync.RWMutex
	programs  map[string]*program
	libraries map[string]*artifact // by .usl path
	apis      map[string]*artifact // by .clz path

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// New creates an empty index. A nil lexer selects the built-in scanner.
func New(opts Options) *Index {
	lx := opts.Lexer
	if lx == nil {
		lx = lexer.NewScanner()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Index{
		lexer:     lx,
		generator: opts.Generator,
		simplDir:  opts.SimplDirectory,
		workers:   workers,
		logger:    logger,
		programs:  make(map[string]*program),
		libraries: make(map[string]*artifact),
		apis:      make(map[string]*artifact),
		subs:      make(map[int]func(Event)),
	}
}

// Subscribe registers fn for every event and returns a function that
// removes it. fn runs on the goroutine that changed the index.
func (ix *Index) Subscribe(fn func(Event)) (unsubscribe func()) {
	ix.subMu.Lock()
	id := ix.nextID
	ix.nextID++
	ix.subs[id] = fn
	ix.subMu.Unlock()
	return func() {
		ix.subMu.Lock()
		delete(ix.subs, id)
		ix.subMu.Unlock()
	}
}

func (ix *Index) publish(ev Event) {
	ix.subMu.Lock()
	ids := make([]int, 0, len(ix.subs))
	for id := range ix.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), len(ids))
	for i, id := range ids {
		fns[i] = ix.subs[id]
	}
	ix.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Open is Update for a newly opened program.
func (ix *Index) Open(ctx context.Context, docURI, text string) error {
	return ix.Update(ctx, docURI, text)
}

// Update rebuilds a program's tree, rescans its reference directives and
// loads any referenced artifact not yet in the index. Unchanged text is a
// no-op. Generator failures are published as GenerationFailed events rather
// than returned.
func (ix *Index) Update(ctx context.Context, docURI, text string) error {
	hash := xxhash.Sum64String(text)

	ix.mu.RLock()
	prev := ix.programs[docURI]
	ix.mu.RUnlock()
	if prev != nil && prev.hash == hash {
		return nil
	}

	tokens, err := ix.lexer.Tokenize(ctx, text)
	if err != nil {
		return fmt.Errorf("tokenize %s: %w", docURI, err)
	}
	p := &program{
		uri:  docURI,
		hash: hash,
		tree: symbols.Extract(docURI, tokens),
	}
	if path, ok := pathOf(docURI); ok {
		refs := ScanReferences(text)
		dir := filepath.Dir(path)
		p.libraries = existing(dir, refs.Libraries, ".usl")
		p.apis = existing(dir, refs.APIs, ".clz")
	}

	ix.mu.Lock()
	ix.programs[docURI] = p
	ix.mu.Unlock()
	ix.logger.Debug("program parsed", "uri", docURI, "symbols", p.tree.Len())
	ix.publish(Event{Kind: ProgramUpdated, URI: docURI, Tree: p.tree})

	err = ix.load(ctx, p.libraries, p.apis)

	var prevLibs, prevAPIs []string
	if prev != nil {
		prevLibs, prevAPIs = prev.libraries, prev.apis
	}
	if !sameSet(prevLibs, p.libraries) {
		ix.publish(Event{Kind: LibrariesUpdated, URI: docURI})
	}
	if !sameSet(prevAPIs, p.apis) {
		ix.publish(Event{Kind: APIsUpdated, URI: docURI})
	}
	return err
}

// Close forgets a program. Cached artifacts stay for other programs.
func (ix *Index) Close(docURI string) {
	ix.mu.Lock()
	p := ix.programs[docURI]
	delete(ix.programs, docURI)
	ix.mu.Unlock()
	if p == nil {
		return
	}
	if len(p.libraries) > 0 {
		ix.publish(Event{Kind: LibrariesUpdated, URI: docURI})
	}
	if len(p.apis) > 0 {
		ix.publish(Event{Kind: APIsUpdated, URI: docURI})
	}
}

// Warm loads every artifact referenced by any open program.
func (ix *Index) Warm(ctx context.Context) error {
	libs := make(map[string]bool)
	apis := make(map[string]bool)
	ix.mu.RLock()
	for _, p := range ix.programs {
		for _, l := range p.libraries {
			libs[l] = true
		}
		for _, a := range p.apis {
			apis[a] = true
		}
	}
	ix.mu.RUnlock()
	return ix.load(ctx, sortedKeys(libs), sortedKeys(apis))
}

func (ix *Index) load(ctx context.Context, libraries, apis []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for _, path := range libraries {
		g.Go(func() error {
			return ix.loadLibrary(gctx, path, false)
		})
	}
	for _, clz := range apis {
		g.Go(func() error {
			ix.loadAPI(gctx, clz, false)
			return nil
		})
	}
	return g.Wait()
}

// loadLibrary parses a .usl file unless it is cached; force re-reads it.
func (ix *Index) loadLibrary(ctx context.Context, path string, force bool) error {
	ix.mu.RLock()
	cached, ok := ix.libraries[path]
	ix.mu.RUnlock()
	if ok && !force {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			ix.logger.Debug("library missing", "path", path)
			return nil
		}
		return fmt.Errorf("read library %s: %w", path, err)
	}
	hash := xxhash.Sum64(data)
	if ok && cached.hash == hash {
		return nil
	}

	tokens, err := ix.lexer.Tokenize(ctx, string(data))
	if err != nil {
		return fmt.Errorf("tokenize %s: %w", path, err)
	}
	artifactURI := string(uri.File(path))
	tree := symbols.Extract(artifactURI, tokens)

	ix.mu.Lock()
	ix.libraries[path] = &artifact{tree: tree, hash: hash}
	ix.mu.Unlock()
	ix.logger.Info("library parsed", "path", path, "symbols", tree.Len())
	ix.publish(Event{Kind: ArtifactLoaded, URI: artifactURI, Path: path, Tree: tree})
	return nil
}

// loadAPI generates and parses the API file of a .clz library. While the
// generator runs the entry holds an empty pending placeholder, so at most
// one generation per library is in flight. Without force, a cached entry is
// kept as long as its API file exists, and a failed one is not retried.
func (ix *Index) loadAPI(ctx context.Context, clz string, force bool) {
	apiPath := APIPath(clz)
	apiURI := string(uri.File(apiPath))

	ix.mu.Lock()
	cur, ok := ix.apis[clz]
	if ok && (cur.pending || (!force && (cur.failed || fileExists(apiPath)))) {
		ix.mu.Unlock()
		return
	}
	placeholder := &artifact{tree: symbols.EmptyTree(apiURI), pending: true}
	ix.apis[clz] = placeholder
	ix.mu.Unlock()

	settle := func(a *artifact) bool {
		ix.mu.Lock()
		defer ix.mu.Unlock()
		if ix.apis[clz] != placeholder {
			return false
		}
		ix.apis[clz] = a
		return true
	}
	fail := func(err error) {
		settle(&artifact{tree: placeholder.tree, failed: true})
		ix.logger.Warn("API generation failed", "library", clz, "error", err)
		ix.publish(Event{Kind: GenerationFailed, Path: clz, Err: err})
	}

	if err := ix.generate(ctx, clz); err != nil {
		fail(err)
		return
	}
	data, err := os.ReadFile(apiPath)
	if err != nil {
		fail(fmt.Errorf("%w: %s not produced", ErrGenerationFailed, apiPath))
		return
	}

	tree := symbols.ParseAPI(apiURI, string(data))
	if !settle(&artifact{tree: tree, hash: xxhash.Sum64(data)}) {
		return
	}
	ix.logger.Info("API parsed", "library", clz, "symbols", tree.Len())
	ix.publish(Event{Kind: ArtifactLoaded, URI: apiURI, Path: clz, Tree: tree})
}

// HandleArtifactChange applies a watched filesystem change. Only artifacts
// already in the index react: a written .usl is re-parsed and a written .clz
// regenerated, while removing a .usl, .clz or generated .api evicts the
// entry.
func (ix *Index) HandleArtifactChange(ctx context.Context, path string, op Op) {
	path = filepath.Clean(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".usl":
		if !ix.known(ix.libraries, path) {
			return
		}
		if op == Remove {
			ix.evict(ix.libraries, path)
		} else if err := ix.loadLibrary(ctx, path, true); err != nil {
			ix.logger.Warn("library reload failed", "path", path, "error", err)
		}
		ix.publish(Event{Kind: LibrariesUpdated, Path: path})

	case ".clz":
		if !ix.known(ix.apis, path) {
			return
		}
		if op == Remove {
			ix.evict(ix.apis, path)
		} else {
			ix.loadAPI(ctx, path, true)
		}
		ix.publish(Event{Kind: APIsUpdated, Path: path})

	case ".api":
		clz := clzForAPI(path)
		if op != Remove || !ix.known(ix.apis, clz) {
			return
		}
		ix.evict(ix.apis, clz)
		ix.publish(Event{Kind: APIsUpdated, Path: clz})
	}
}

func (ix *Index) known(m map[string]*artifact, key string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := m[key]
	return ok
}

func (ix *Index) evict(m map[string]*artifact, key string) {
	ix.mu.Lock()
	delete(m, key)
	ix.mu.Unlock()
	ix.logger.Debug("artifact evicted", "path", key)
}

// Objects returns a program's root symbols followed by those of its APIs and
// then its libraries. Nil when the program is not open.
func (ix *Index) Objects(docURI string) []*symbols.Symbol {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	p := ix.programs[docURI]
	if p == nil {
		return nil
	}
	out := p.tree.Roots()
	for _, clz := range p.apis {
		if a := ix.apis[clz]; a != nil {
			out = append(out, a.tree.Roots()...)
		}
	}
	for _, path := range p.libraries {
		if a := ix.libraries[path]; a != nil {
			out = append(out, a.tree.Roots()...)
		}
	}
	return out
}

// Program returns the tree of an open program.
func (ix *Index) Program(docURI string) *symbols.Tree {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if p := ix.programs[docURI]; p != nil {
		return p.tree
	}
	return nil
}

// Programs lists the open program URIs.
func (ix *Index) Programs() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, 0, len(ix.programs))
	for u := range ix.programs {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// References returns the resolved library and API paths of a program.
func (ix *Index) References(docURI string) (libraries, apis []string) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	p := ix.programs[docURI]
	if p == nil {
		return nil, nil
	}
	return append([]string(nil), p.libraries...), append([]string(nil), p.apis...)
}

// Library returns the cached tree of a .usl file.
func (ix *Index) Library(path string) *symbols.Tree {
	return ix.tree(ix.libraries, path)
}

// API returns the cached tree generated for a .clz library. A pending
// generation yields an empty tree.
func (ix *Index) API(clz string) *symbols.Tree {
	return ix.tree(ix.apis, clz)
}

func (ix *Index) tree(m map[string]*artifact, key string) *symbols.Tree {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if a := m[key]; a != nil {
		return a.tree
	}
	return nil
}

// SymbolAt returns the program symbol whose body or parameter list contains
// pos.
func (ix *Index) SymbolAt(docURI string, pos symbols.Position) *symbols.Symbol {
	return symbols.At(ix.Program(docURI).Roots(), pos)
}

// ResolveChain resolves the member chain ending text (the document text up
// to pos). Chains only resolve inside a function or event body.
func (ix *Index) ResolveChain(docURI string, pos symbols.Position, text string) *symbols.Symbol {
	chain := symbols.Chain(text)
	if chain == nil {
		return nil
	}
	scope := ix.SymbolAt(docURI, pos)
	if scope == nil || (scope.Kind != symbols.Function && scope.Kind != symbols.Event) {
		return nil
	}
	return symbols.Resolve(scope, ix.Objects(docURI), chain)
}

// TypeOf returns the project type named by s's data type.
func (ix *Index) TypeOf(docURI string, s *symbols.Symbol) *symbols.Symbol {
	return symbols.TypeOf(ix.Objects(docURI), s)
}

// pathOf converts a file URI to a path; other schemes have none.
func pathOf(docURI string) (string, bool) {
	u, err := url.ParseRequestURI(docURI)
	if err != nil || u.Scheme != uri.FileScheme {
		return "", false
	}
	return uri.URI(docURI).Filename(), true
}

// existing maps reference names to files in dir, dropping missing files and
// duplicates.
func existing(dir string, names []string, ext string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range names {
		path := filepath.Join(dir, name+ext)
		if seen[path] || !fileExists(path) {
			continue
		}
		seen[path] = true
		out = append(out, path)
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
