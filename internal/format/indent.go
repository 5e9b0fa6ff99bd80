package format

import (
	"regexp"
	"strings"
	"unicode"
)

// signalListRegex matches the directives that may spread one declaration
// over several lines.
var signalListRegex = regexp.MustCompile(`(?i)\b(digital_input|analog_input|string_input|buffer_input|digital_output|analog_output|string_output)\b`)

// signalListIndent is the fixed indent of signal list continuation lines.
const signalListIndent = "\t\t\t\t"

// Indent re-indents lines with tabs from cumulative bracket depth.
//
// Lines inside a block comment, including its closing line, are kept
// verbatim. Continuation lines of a signal list get a fixed indent and
// never change the depth. The indent level never drops below zero.
func Indent(lines []string, legacy bool) []string {
	out := make([]string, 0, len(lines))
	level := 0
	depth := 0
	inSignalList := false

	for _, line := range lines {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		info := scanLine(trimmed, depth, legacy)
		depth = info.depth
		code := info.text(trimmed)

		if inSignalList {
			out = append(out, signalListIndent+trimmed)
			if strings.Contains(code, ";") {
				inSignalList = false
			}
			continue
		}

		if (info.depth > 0 && !info.opens) || (info.depth == 0 && info.closes) {
			out = append(out, line)
			continue
		}

		if signalListRegex.MatchString(code) && !strings.Contains(code, ";") {
			inSignalList = true
			out = append(out, indentLine(level, trimmed))
			continue
		}

		delta := BracketDelta(code)
		switch {
		case delta > 0:
			out = append(out, indentLine(level, trimmed))
			level = clamp(level + delta)
		case delta < 0 && startsWithCloser(code):
			level = clamp(level + delta)
			out = append(out, indentLine(level, trimmed))
		case delta < 0:
			out = append(out, indentLine(level, trimmed))
			level = clamp(level + delta)
		default:
			out = append(out, indentLine(level, trimmed))
		}
	}
	return out
}

func indentLine(level int, text string) string {
	if text == "" {
		return ""
	}
	return strings.Repeat("\t", level) + text
}

func startsWithCloser(code string) bool {
	code = strings.TrimLeftFunc(code, unicode.IsSpace)
	return code != "" && (code[0] == '}' || code[0] == ']' || code[0] == ')')
}

func clamp(level int) int {
	if level < 0 {
		return 0
	}
	return level
}
