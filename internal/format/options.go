package format

import (
	"fmt"
	"strings"
)

// BraceStyle controls where opening braces are placed.
type BraceStyle string

const (
	// BraceOwnLine puts every opening brace alone on its own line (default).
	BraceOwnLine BraceStyle = "ownLine"

	// BraceSameLine appends opening braces to the line that introduces them.
	BraceSameLine BraceStyle = "sameLine"
)

// ParseBraceStyle parses a brace style name case-insensitively.
func ParseBraceStyle(s string) (BraceStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ownline", "own-line", "own_line", "newline":
		return BraceOwnLine, nil
	case "sameline", "same-line", "same_line", "endofline":
		return BraceSameLine, nil
	default:
		return "", fmt.Errorf("unknown brace style %q", s)
	}
}

func (b BraceStyle) String() string {
	if b == "" {
		return string(BraceOwnLine)
	}
	return string(b)
}

// KeywordCase controls how recognized keywords are cased.
type KeywordCase string

const (
	CaseUpper     KeywordCase = "UPPERCASE"
	CaseLower     KeywordCase = "lowercase"
	CasePascal    KeywordCase = "PascalCase"
	CaseUnchanged KeywordCase = "Unchanged"
)

// ParseKeywordCase parses a keyword case style case-insensitively.
func ParseKeywordCase(s string) (KeywordCase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unchanged", "none":
		return CaseUnchanged, nil
	case "uppercase", "upper":
		return CaseUpper, nil
	case "lowercase", "lower":
		return CaseLower, nil
	case "pascalcase", "pascal":
		return CasePascal, nil
	default:
		return "", fmt.Errorf("unknown keyword case %q", s)
	}
}

func (k KeywordCase) String() string {
	if k == "" {
		return string(CaseUnchanged)
	}
	return string(k)
}

// LineEnding selects the terminator used to join output lines.
type LineEnding string

const (
	CRLF LineEnding = "crlf"
	LF   LineEnding = "lf"
)

// ParseLineEnding parses a line ending name case-insensitively.
func ParseLineEnding(s string) (LineEnding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "crlf", "windows", `\r\n`:
		return CRLF, nil
	case "lf", "unix", `\n`:
		return LF, nil
	default:
		return "", fmt.Errorf("unknown line ending %q", s)
	}
}

// Sequence returns the characters written between lines.
func (l LineEnding) Sequence() string {
	if l == LF {
		return "\n"
	}
	return "\r\n"
}

func (l LineEnding) String() string {
	if l == "" {
		return string(CRLF)
	}
	return string(l)
}

// Keywords resolves identifiers against the language keyword table.
// Canonical reports the keyword's canonical spelling and whether it is a
// constant; ok is false for words that are not keywords.
type Keywords interface {
	Canonical(word string) (name string, constant bool, ok bool)
}

// Options configures Format.
type Options struct {
	BraceStyle  BraceStyle
	KeywordCase KeywordCase
	LineEnding  LineEnding

	// LegacyComments also treats (* ... *) as a block comment.
	LegacyComments bool

	// Keywords is consulted by case normalization. Nil disables it.
	Keywords Keywords
}

// DefaultOptions returns own-line braces, unchanged keyword case and CRLF.
func DefaultOptions() Options {
	return Options{
		BraceStyle:  BraceOwnLine,
		KeywordCase: CaseUnchanged,
		LineEnding:  CRLF,
	}
}
