package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"splusls/internal/catalog"
)

const program = `#DEFINE_CONSTANT LIMIT 5
STRUCTURE reading
{
	INTEGER level;
};
INTEGER total;
INTEGER_FUNCTION scale(INTEGER value)
{
	return (value * LIMIT);
}
`

// run executes the root command with args in a fresh temporary working
// directory and returns what it wrote to stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	configPath, write, listOnly, formatJSON = "", false, false, false
	kindFilter, suggest, force, limit, workDir, verbose = "", "", false, defaultFindLimit, "", false

	var out, errOut strings.Builder
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// workspace makes a temporary directory holding main.usp the working
// directory for the rest of the test.
func workspace(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("EvalSymlinks() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.usp"), []byte(program), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Chdir(dir)
	return dir
}

func TestFormatStdin(t *testing.T) {
	workspace(t)
	out, err := run(t, "FUNCTION Main() {\r\nx = 1;\r\n}", "format")
	if err != nil {
		t.Fatalf("format error = %v", err)
	}
	if want := "FUNCTION Main()\r\n{\r\n\tx = 1;\r\n}"; out != want {
		t.Errorf("format = %q, want %q", out, want)
	}

	out, err = run(t, "x;", "format", "-l")
	if err != nil {
		t.Fatalf("format -l error = %v", err)
	}
	if out != "" {
		t.Errorf("format -l of formatted input = %q", out)
	}
}

func TestFormatFiles(t *testing.T) {
	dir := workspace(t)
	path := filepath.Join(dir, "messy.usp")
	if err := os.WriteFile(path, []byte("{\r\nx;\r\n}"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	out, err := run(t, "", "format", "--list", path)
	if err != nil {
		t.Fatalf("format --list error = %v", err)
	}
	if out != path+"\n" {
		t.Errorf("format --list = %q, want the file", out)
	}

	if _, err := run(t, "", "format", "--write", path); err != nil {
		t.Fatalf("format --write error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "{\r\n\tx;\r\n}" {
		t.Errorf("file = %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600 kept", info.Mode().Perm())
	}

	out, err = run(t, "", "format", "-l", path)
	if err != nil || out != "" {
		t.Errorf("format -l after write = %q, %v", out, err)
	}

	if _, err := run(t, "", "format", "-w"); err == nil {
		t.Error("format -w without files did not fail")
	}
	if _, err := run(t, "", "format", filepath.Join(dir, "missing.usp")); err == nil {
		t.Error("format of a missing file did not fail")
	}
}

func TestFormatUsesWorkspaceConfig(t *testing.T) {
	dir := workspace(t)
	if err := os.WriteFile(filepath.Join(dir, ".splusls.yaml"), []byte("format:\n  line_ending: lf\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	out, err := run(t, "{\r\nx;\r\n}", "format")
	if err != nil {
		t.Fatalf("format error = %v", err)
	}
	if out != "{\n\tx;\n}" {
		t.Errorf("format = %q, want LF line endings", out)
	}

	other := filepath.Join(t.TempDir(), "crlf.yaml")
	if err := os.WriteFile(other, []byte("format:\n  line_ending: crlf\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	out, err = run(t, "{\nx;\n}", "format", "--config", other)
	if err != nil {
		t.Fatalf("format --config error = %v", err)
	}
	if out != "{\r\n\tx;\r\n}" {
		t.Errorf("format --config = %q, want CRLF line endings", out)
	}
}

func TestSymbols(t *testing.T) {
	workspace(t)
	out, err := run(t, "", "symbols", "main.usp")
	if err != nil {
		t.Fatalf("symbols error = %v", err)
	}
	for _, want := range []string{
		"Struct reading : reading  [2:11]\n",
		"  Variable level : INTEGER  [4:10]\n",
		"Variable total : INTEGER  [6:9]\n",
		"Function scale : INTEGER  [7:18]\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("symbols output lacks %q:\n%s", want, out)
		}
	}

	out, err = run(t, "", "symbols", "--json", "main.usp")
	if err != nil {
		t.Fatalf("symbols --json error = %v", err)
	}
	var entries []catalog.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("symbols --json output %q: %v", out, err)
	}
	if len(entries) != 6 || entries[0].Name != "reading" {
		t.Errorf("symbols --json = %+v", entries)
	}

	if _, err := run(t, "", "symbols"); err == nil {
		t.Error("symbols without a file did not fail")
	}
}

func TestKeywords(t *testing.T) {
	workspace(t)
	out, err := run(t, "", "keywords", "--kind", "function")
	if err != nil {
		t.Fatalf("keywords error = %v", err)
	}
	if !strings.Contains(out, "Random") || strings.Contains(out, "DIGITAL_INPUT") {
		t.Errorf("keywords --kind function = %s", out)
	}

	out, err = run(t, "", "keywords", "--suggest", "Randon")
	if err != nil {
		t.Fatalf("keywords --suggest error = %v", err)
	}
	if !strings.HasPrefix(out, "Random ") {
		t.Errorf("keywords --suggest = %s", out)
	}

	if _, err := run(t, "", "keywords", "--kind", "widget"); err == nil {
		t.Error("keywords accepted an unknown kind")
	}
}

func TestIndexAndFind(t *testing.T) {
	dir := workspace(t)

	if _, err := run(t, "", "find", "total", "--dir", dir); err == nil || !strings.Contains(err.Error(), "splus index") {
		t.Errorf("find before index error = %v", err)
	}

	out, err := run(t, "", "index", dir)
	if err != nil {
		t.Fatalf("index error = %v", err)
	}
	if !strings.Contains(out, "1 files processed") {
		t.Errorf("index = %q", out)
	}

	out, err = run(t, "", "index", "--json")
	if err != nil {
		t.Fatalf("index --json error = %v", err)
	}
	var result struct {
		FilesSkipped int `json:"files_skipped"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil || result.FilesSkipped != 1 {
		t.Errorf("index --json = %q, %v", out, err)
	}

	out, err = run(t, "", "find", "total", "--dir", dir)
	if err != nil {
		t.Fatalf("find error = %v", err)
	}
	if want := filepath.Join(dir, "main.usp") + ":6:9: Variable total\n"; out != want {
		t.Errorf("find = %q, want %q", out, want)
	}

	out, err = run(t, "", "find", "level", "--kind", "variable")
	if err != nil {
		t.Fatalf("find --kind error = %v", err)
	}
	if !strings.HasSuffix(out, ": Variable reading.level\n") {
		t.Errorf("find --kind = %q", out)
	}

	if _, err := run(t, "", "find", "x", "--kind", "widget"); err == nil {
		t.Error("find accepted an unknown kind")
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "splus ") {
		t.Errorf("version = %q", out)
	}
}
