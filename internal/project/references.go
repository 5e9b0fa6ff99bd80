package project

import (
	"regexp"
	"strings"
)

var (
	libraryRefRe = regexp.MustCompile(`(?i)#USER_LIBRARY "(.*)"`)
	apiRefRe     = regexp.MustCompile(`(?i)#USER_SIMPLSHARP_LIBRARY "(.*)"`)
)

// References holds the artifact names a program declares.
type References struct {
	Libraries []string // #USER_LIBRARY names, without extension
	APIs      []string // #USER_SIMPLSHARP_LIBRARY names, without extension
}

// ScanReferences finds reference directives line by line. Comment tracking
// is coarse: any line containing "//" is skipped, and a single flag follows
// "/*" and "*/" with the opener checked first.
func ScanReferences(text string) References {
	var refs References
	inComment := false
	for _, line := range splitLines(text) {
		if strings.Contains(line, "//") {
			continue
		}
		if strings.Contains(line, "/*") {
			inComment = true
		}
		if strings.Contains(line, "*/") {
			inComment = false
		}
		if inComment {
			continue
		}
		if m := libraryRefRe.FindStringSubmatch(line); m != nil {
			refs.Libraries = append(refs.Libraries, m[1])
		}
		if m := apiRefRe.FindStringSubmatch(line); m != nil {
			refs.APIs = append(refs.APIs, m[1])
		}
	}
	return refs
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		if seen[s] == 0 {
			return false
		}
		seen[s]--
	}
	return true
}
