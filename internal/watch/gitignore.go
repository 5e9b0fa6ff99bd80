package watch

import (
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// loadGitignore loads patterns from the global ~/.gitignore and the
// .gitignore in root. Nil means nothing is ignored.
func loadGitignore(root string) *ignore.GitIgnore {
	var patterns []string
	if home, err := os.UserHomeDir(); err == nil {
		patterns = append(patterns, readPatterns(filepath.Join(home, ".gitignore"))...)
	}
	patterns = append(patterns, readPatterns(filepath.Join(root, ".gitignore"))...)
	if len(patterns) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(patterns...)
}

func readPatterns(path string) []string {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
