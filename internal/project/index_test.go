package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"go.lsp.dev/uri"

	"splusls/internal/lexer"
	"splusls/internal/logging"
	"splusls/internal/symbols"
)

const widgetAPI = `namespace Lib;
{
    class Widget
    {
        // class functions
        INTEGER_FUNCTION Compute ( INTEGER a );
    };
}
`

// workspace is a temporary program folder.
type workspace struct {
	t   *testing.T
	dir string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	return &workspace{t: t, dir: t.TempDir()}
}

func (w *workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *workspace) uri(name string) string {
	return string(uri.File(w.path(name)))
}

func (w *workspace) write(name, content string) string {
	w.t.Helper()
	path := w.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		w.t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		w.t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// generator writes a stub generator script. It logs its arguments to
// calls.log next to the library and, unless exitCode is non-zero, writes
// widgetAPI as the library's API file.
func (w *workspace) generator(exitCode int, delay string) string {
	w.t.Helper()
	if runtime.GOOS == "windows" {
		w.t.Skip("shell script generator")
	}
	script := `#!/bin/sh
dir=$(dirname "$1")
name=$(basename "$1" .clz)
echo "$1 $2" >> "$dir/calls.log"
`
	if delay != "" {
		script += "sleep " + delay + "\n"
	}
	if exitCode != 0 {
		script += "echo 'bad library' >&2\nexit 3\n"
	} else {
		script += "mkdir -p \"$dir/SPlsWork\"\ncat > \"$dir/SPlsWork/$name.api\" <<'API'\n" + widgetAPI + "API\n"
	}
	path := w.write("bin/generator.sh", script)
	if err := os.Chmod(path, 0755); err != nil {
		w.t.Fatalf("Chmod() error = %v", err)
	}
	return path
}

func (w *workspace) calls() []string {
	data, err := os.ReadFile(w.path("calls.log"))
	if err != nil {
		return nil
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func record(ix *Index) *recorder {
	r := &recorder{}
	ix.Subscribe(func(ev Event) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.Kind.String())
	}
	return out
}

func (r *recorder) find(kind EventKind) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return Event{}, false
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func names(list []*symbols.Symbol) []string {
	var out []string
	for _, s := range list {
		out = append(out, s.Name)
	}
	return out
}

func newIndex(opts Options) *Index {
	opts.Logger = logging.Nop()
	return New(opts)
}

func TestIndexProgramOnly(t *testing.T) {
	ix := newIndex(Options{})
	rec := record(ix)
	ctx := context.Background()

	const doc = "untitled:Untitled-1"
	if err := ix.Open(ctx, doc, "#USER_LIBRARY \"lib\"\nINTEGER counter;\nFUNCTION Main()\n{\n}\n"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	got := names(ix.Objects(doc))
	if strings.Join(got, ",") != "counter,Main" {
		t.Errorf("Objects() = %v", got)
	}
	if libs, apis := ix.References(doc); libs != nil || apis != nil {
		t.Errorf("References() = %v, %v; want none for a non-file URI", libs, apis)
	}
	if kinds := rec.kinds(); strings.Join(kinds, ",") != "ProgramUpdated" {
		t.Errorf("events = %v", kinds)
	}

	if err := ix.Update(ctx, doc, "#USER_LIBRARY \"lib\"\nINTEGER counter;\nFUNCTION Main()\n{\n}\n"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if n := len(rec.kinds()); n != 1 {
		t.Errorf("unchanged text published %d events, want 1 in total", n)
	}

	if ix.Objects("untitled:other") != nil {
		t.Error("Objects() of an unknown program should be nil")
	}
}

func TestIndexLibraries(t *testing.T) {
	w := newWorkspace(t)
	libPath := w.write("Helpers.usl", "INTEGER_FUNCTION LibFn(INTEGER x)\n{\n}\n")
	ix := newIndex(Options{})
	rec := record(ix)
	ctx := context.Background()

	doc := w.uri("main.usp")
	text := "#USER_LIBRARY \"Helpers\"\n#USER_LIBRARY \"Missing\"\n// #USER_LIBRARY \"Commented\"\nFUNCTION Main()\n{\n}\n"
	if err := ix.Open(ctx, doc, text); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	objects := ix.Objects(doc)
	if got := strings.Join(names(objects), ","); got != "Main,LibFn" {
		t.Fatalf("Objects() = %s, want Main,LibFn", got)
	}
	if objects[1].URI != string(uri.File(libPath)) {
		t.Errorf("library symbol URI = %q", objects[1].URI)
	}
	libs, _ := ix.References(doc)
	if len(libs) != 1 || libs[0] != libPath {
		t.Errorf("References() libraries = %v, want [%s]", libs, libPath)
	}
	if got := strings.Join(rec.kinds(), ","); got != "ProgramUpdated,ArtifactLoaded,LibrariesUpdated" {
		t.Errorf("events = %s", got)
	}

	// an edit that keeps the same references does not announce a new set
	rec.reset()
	if err := ix.Update(ctx, doc, text+"INTEGER extra;\n"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := strings.Join(rec.kinds(), ","); got != "ProgramUpdated" {
		t.Errorf("events = %s, want ProgramUpdated only", got)
	}

	// dropping the directive does
	rec.reset()
	if err := ix.Update(ctx, doc, "FUNCTION Main()\n{\n}\n"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, ok := rec.find(LibrariesUpdated); !ok {
		t.Error("removing a reference should publish LibrariesUpdated")
	}
	if got := strings.Join(names(ix.Objects(doc)), ","); got != "Main" {
		t.Errorf("Objects() = %s, want Main", got)
	}
	if ix.Library(libPath) == nil {
		t.Error("library should stay cached for other programs")
	}
}

func TestIndexLibraryChanges(t *testing.T) {
	w := newWorkspace(t)
	libPath := w.write("Helpers.usl", "FUNCTION First()\n{\n}\n")
	ix := newIndex(Options{})
	ctx := context.Background()

	doc := w.uri("main.usp")
	if err := ix.Open(ctx, doc, "#USER_LIBRARY \"Helpers\"\n"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	rec := record(ix)

	w.write("Helpers.usl", "FUNCTION Second()\n{\n}\n")
	ix.HandleArtifactChange(ctx, libPath, Write)
	if got := strings.Join(names(ix.Objects(doc)), ","); got != "Second" {
		t.Errorf("Objects() after change = %s, want Second", got)
	}

	ix.HandleArtifactChange(ctx, libPath, Remove)
	if got := ix.Objects(doc); len(got) != 0 {
		t.Errorf("Objects() after removal = %v, want none", names(got))
	}
	if ix.Library(libPath) != nil {
		t.Error("removed library should be evicted")
	}

	// unknown artifacts are ignored
	before := len(rec.kinds())
	ix.HandleArtifactChange(ctx, w.path("Other.usl"), Write)
	ix.HandleArtifactChange(ctx, w.path("notes.txt"), Remove)
	if after := len(rec.kinds()); after != before {
		t.Errorf("unknown artifacts published %d events", after-before)
	}

	if err := ix.Warm(ctx); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}
	if ix.Library(libPath) == nil {
		t.Error("Warm() should reload referenced libraries")
	}

	got := strings.Join(rec.kinds(), ",")
	want := "ArtifactLoaded,LibrariesUpdated,LibrariesUpdated,ArtifactLoaded"
	if got != want {
		t.Errorf("events = %s, want %s", got, want)
	}
}

func TestIndexAPIGeneration(t *testing.T) {
	w := newWorkspace(t)
	gen := w.generator(0, "")
	simplDir := t.TempDir()
	clz := w.write("Widgets.clz", "binary")

	ix := newIndex(Options{Generator: gen, SimplDirectory: simplDir})
	rec := record(ix)
	ctx := context.Background()

	doc := w.uri("main.usp")
	if err := ix.Open(ctx, doc, "#USER_SIMPLSHARP_LIBRARY \"Widgets\"\nFUNCTION Main()\n{\n}\n"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if got := strings.Join(names(ix.Objects(doc)), ","); got != "Main,Widget" {
		t.Fatalf("Objects() = %s, want Main,Widget", got)
	}
	calls := w.calls()
	if len(calls) != 1 || calls[0] != clz+" "+simplDir {
		t.Errorf("generator calls = %q", calls)
	}
	loaded, ok := rec.find(ArtifactLoaded)
	if !ok || loaded.Path != clz || loaded.URI != string(uri.File(APIPath(clz))) {
		t.Errorf("ArtifactLoaded = %+v", loaded)
	}
	if _, ok := rec.find(APIsUpdated); !ok {
		t.Error("new API reference should publish APIsUpdated")
	}

	// cached while the API file exists
	if err := ix.Update(ctx, doc, "#USER_SIMPLSHARP_LIBRARY \"Widgets\"\n"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if n := len(w.calls()); n != 1 {
		t.Errorf("generator ran %d times, want 1", n)
	}

	// regenerated when the API file disappears
	if err := os.Remove(APIPath(clz)); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := ix.Update(ctx, doc, "#USER_SIMPLSHARP_LIBRARY \"Widgets\"\nINTEGER x;\n"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if n := len(w.calls()); n != 2 {
		t.Errorf("generator ran %d times, want 2", n)
	}

	// regenerated when the library changes
	ix.HandleArtifactChange(ctx, clz, Write)
	if n := len(w.calls()); n != 3 {
		t.Errorf("generator ran %d times, want 3", n)
	}

	// removing the generated file evicts the entry
	ix.HandleArtifactChange(ctx, APIPath(clz), Remove)
	if ix.API(clz) != nil {
		t.Error("API entry should be evicted")
	}
	if got := strings.Join(names(ix.Objects(doc)), ","); got != "x" {
		t.Errorf("Objects() = %s, want x", got)
	}
}

func TestIndexGenerationFailure(t *testing.T) {
	w := newWorkspace(t)
	gen := w.generator(1, "")
	clz := w.write("Widgets.clz", "binary")

	ix := newIndex(Options{Generator: gen, SimplDirectory: t.TempDir()})
	rec := record(ix)
	ctx := context.Background()

	doc := w.uri("main.usp")
	if err := ix.Open(ctx, doc, "#USER_SIMPLSHARP_LIBRARY \"Widgets\"\n"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	ev, ok := rec.find(GenerationFailed)
	if !ok {
		t.Fatal("expected a GenerationFailed event")
	}
	if !errors.Is(ev.Err, ErrGenerationFailed) || ev.Path != clz {
		t.Errorf("GenerationFailed = %+v", ev)
	}
	if !strings.Contains(ev.Err.Error(), "bad library") {
		t.Errorf("error should carry generator output: %v", ev.Err)
	}
	if tree := ix.API(clz); tree == nil || tree.Len() != 0 {
		t.Errorf("API() = %v, want the empty placeholder", tree)
	}

	// no automatic retry on edits
	if err := ix.Update(ctx, doc, "#USER_SIMPLSHARP_LIBRARY \"Widgets\"\nINTEGER y;\n"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if n := len(w.calls()); n != 1 {
		t.Errorf("generator ran %d times, want 1", n)
	}

	// a library change retries
	ix.HandleArtifactChange(ctx, clz, Write)
	if n := len(w.calls()); n != 2 {
		t.Errorf("generator ran %d times after change, want 2", n)
	}
}

func TestIndexGeneratorNotConfigured(t *testing.T) {
	w := newWorkspace(t)
	w.write("Widgets.clz", "binary")

	tests := []struct {
		name string
		opts Options
	}{
		{"no generator", Options{SimplDirectory: t.TempDir()}},
		{"no directory", Options{Generator: "/bin/true"}},
		{"missing directory", Options{Generator: "/bin/true", SimplDirectory: w.path("nope")}},
		{"missing generator", Options{Generator: w.path("nope.exe"), SimplDirectory: t.TempDir()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := newIndex(tt.opts)
			rec := record(ix)
			if err := ix.Open(context.Background(), w.uri("main.usp"), "#USER_SIMPLSHARP_LIBRARY \"Widgets\"\n"); err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			ev, ok := rec.find(GenerationFailed)
			if !ok || !errors.Is(ev.Err, ErrGeneratorNotConfigured) {
				t.Errorf("GenerationFailed = %+v, want ErrGeneratorNotConfigured", ev)
			}
		})
	}
}

func TestIndexSingleGenerationInFlight(t *testing.T) {
	w := newWorkspace(t)
	gen := w.generator(0, "0.3")
	w.write("Widgets.clz", "binary")
	ix := newIndex(Options{Generator: gen, SimplDirectory: t.TempDir()})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i, name := range []string{"a.usp", "b.usp", "c.usp"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = ix.Open(ctx, w.uri(name), "#USER_SIMPLSHARP_LIBRARY \"Widgets\"\n")
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
	}
	if n := len(w.calls()); n != 1 {
		t.Errorf("generator ran %d times, want 1", n)
	}
}

func TestIndexChainResolution(t *testing.T) {
	ix := newIndex(Options{})
	ctx := context.Background()
	const doc = "untitled:chain"
	text := `STRUCTURE point
{
	INTEGER x;
};
point origin;
FUNCTION Main()
{
	origin.
}
`
	if err := ix.Open(ctx, doc, text); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	inside := symbols.Position{Line: 7, Character: 8}
	scope := ix.SymbolAt(doc, inside)
	if scope == nil || scope.Name != "Main" {
		t.Fatalf("SymbolAt() = %v, want Main", scope)
	}

	got := ix.ResolveChain(doc, inside, "\torigin.")
	if got == nil || got.Name != "origin" {
		t.Fatalf("ResolveChain() = %v, want origin", got)
	}
	if typ := ix.TypeOf(doc, got); typ == nil || typ.Name != "point" {
		t.Errorf("TypeOf() = %v, want point", typ)
	}
	if got := ix.ResolveChain(doc, inside, "origin.x."); got == nil || got.Name != "x" {
		t.Errorf("ResolveChain(origin.x.) = %v, want x", got)
	}

	// declarations outside bodies do not resolve chains
	if got := ix.ResolveChain(doc, symbols.Position{Line: 4, Character: 3}, "origin."); got != nil {
		t.Errorf("ResolveChain() outside a body = %s, want nil", got.Name)
	}
	if got := ix.ResolveChain(doc, inside, "origin"); got != nil {
		t.Errorf("ResolveChain() without a trailing dot = %s, want nil", got.Name)
	}
}

func TestIndexClose(t *testing.T) {
	w := newWorkspace(t)
	w.write("Helpers.usl", "FUNCTION Help()\n{\n}\n")
	ix := newIndex(Options{})
	ctx := context.Background()
	doc := w.uri("main.usp")

	if err := ix.Open(ctx, doc, "#USER_LIBRARY \"Helpers\"\n"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := ix.Programs(); len(got) != 1 || got[0] != doc {
		t.Errorf("Programs() = %v", got)
	}

	rec := record(ix)
	ix.Close(doc)
	if ix.Objects(doc) != nil {
		t.Error("Objects() after Close() should be nil")
	}
	if got := strings.Join(rec.kinds(), ","); got != "LibrariesUpdated" {
		t.Errorf("events = %s", got)
	}
	ix.Close(doc)
	if n := len(rec.kinds()); n != 1 {
		t.Errorf("closing twice published %d events", n)
	}
}

type failingLexer struct{}

func (failingLexer) Tokenize(context.Context, string) ([]lexer.Token, error) {
	return nil, errors.New("tokenizer crashed")
}

func TestIndexTokenizeError(t *testing.T) {
	ix := newIndex(Options{Lexer: failingLexer{}})
	err := ix.Open(context.Background(), "untitled:x", "FUNCTION f()\n{\n}\n")
	if err == nil || !strings.Contains(err.Error(), "tokenizer crashed") {
		t.Fatalf("Open() error = %v, want tokenizer error", err)
	}
	if ix.Program("untitled:x") != nil {
		t.Error("failed rebuild should not store a program")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	ix := newIndex(Options{})
	var count int
	unsubscribe := ix.Subscribe(func(Event) { count++ })
	ctx := context.Background()

	if err := ix.Open(ctx, "untitled:a", "INTEGER a;"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	unsubscribe()
	if err := ix.Update(ctx, "untitled:a", "INTEGER b;"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if count != 1 {
		t.Errorf("subscriber called %d times, want 1", count)
	}
}
