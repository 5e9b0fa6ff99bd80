// Package format re-indents and re-flows SIMPL+ source without a grammar.
//
// The pipeline is lexical: braces are re-placed, lines are indented from
// cumulative bracket depth with tabs, and keywords are re-cased. It
// tolerates partial and malformed programs and always terminates.
package format

import (
	"regexp"
	"strings"
)

var lineBreakRegex = regexp.MustCompile(`\r\n|\n|\r`)

// SplitLines splits text on CRLF, LF and lone CR.
func SplitLines(text string) []string {
	return lineBreakRegex.Split(text, -1)
}

// Format runs the whole pipeline over a document. Formatting its own
// output returns it unchanged.
func Format(text string, opts Options) string {
	lines := SplitLines(text)
	lines = Reflow(lines, opts.BraceStyle, opts.LegacyComments)
	lines = Indent(lines, opts.LegacyComments)
	out := strings.Join(lines, opts.LineEnding.Sequence())
	return NormalizeCase(out, opts.KeywordCase, opts.Keywords, opts.LegacyComments)
}
