package format

import (
	"strings"
	"unicode"
)

// reflowed accumulates output lines and whether each one is plain code
// that an opening brace may be merged onto.
type reflowed struct {
	lines []string
	plain []bool
}

func (r *reflowed) push(line string, plain bool) {
	r.lines = append(r.lines, line)
	r.plain = append(r.plain, plain)
}

func (r *reflowed) last() int { return len(r.lines) - 1 }

// Reflow rewrites brace placement. Own-line style moves every opening
// brace onto a line of its own; same-line style appends it to the line that
// introduces it. A second pass puts text following a closing brace on a new
// line, keeping "};" and trailing line comments joined. Braces in comments
// and quoted literals are left alone.
func Reflow(lines []string, style BraceStyle, legacy bool) []string {
	return reflowClosers(reflowOpeners(lines, style, legacy), legacy)
}

func reflowOpeners(lines []string, style BraceStyle, legacy bool) []string {
	var out reflowed
	depth := 0

	for _, line := range lines {
		entry := depth
		info := scanLine(line, depth, legacy)
		depth = info.depth

		if strings.TrimSpace(line) == "" {
			out.push("", false)
			continue
		}

		plainPiece := func(s string) bool {
			return entry == 0 && !scanLine(s, 0, legacy).comment
		}

		prev := 0
		emitted := false
		for _, p := range info.positions(line, '{') {
			before := strings.TrimLeftFunc(line[prev:p], unicode.IsSpace)
			prev = p + 1

			if style == BraceSameLine {
				if before != "" {
					out.push(strings.TrimRightFunc(before, unicode.IsSpace)+" {", plainPiece(before))
					emitted = true
					continue
				}
				if t := out.last(); t >= 0 && canMerge(out.lines[t], out.plain[t]) {
					out.lines[t] = strings.TrimRightFunc(out.lines[t], unicode.IsSpace) + " {"
					emitted = true
					continue
				}
				out.push("{", true)
				emitted = true
				continue
			}

			if before != "" {
				out.push(strings.TrimRightFunc(before, unicode.IsSpace), plainPiece(before))
			}
			out.push("{", true)
			emitted = true
		}

		rest := line[prev:]
		switch {
		case strings.TrimSpace(rest) == "":
		case emitted && strings.HasPrefix(strings.TrimSpace(rest), "//"):
			t := out.last()
			out.lines[t] += " " + strings.TrimSpace(rest)
			out.plain[t] = false
		default:
			out.push(rest, plainPiece(rest))
		}
	}
	return out.lines
}

// canMerge reports whether a same-line brace may be appended to line.
// Blank lines, lines carrying comments and lines already ending in an
// opening brace are never merged onto.
func canMerge(line string, plain bool) bool {
	t := strings.TrimRightFunc(line, unicode.IsSpace)
	return plain && t != "" && !strings.HasSuffix(t, "{")
}

func reflowClosers(lines []string, legacy bool) []string {
	out := make([]string, 0, len(lines))
	depth := 0

	for _, line := range lines {
		info := scanLine(line, depth, legacy)
		depth = info.depth

		if strings.TrimSpace(line) == "" {
			out = append(out, "")
			continue
		}

		prev := 0
		emitted := false
		for _, p := range info.positions(line, '}') {
			if p < prev {
				continue
			}
			closer := line[prev:p] + "}"
			prev = p + 1
			if after := strings.TrimLeftFunc(line[prev:], unicode.IsSpace); strings.HasPrefix(after, ";") {
				closer += ";"
				prev = len(line) - len(after) + 1
			}
			out = append(out, closer)
			emitted = true
		}

		rest := line[prev:]
		switch {
		case strings.TrimSpace(rest) == "":
		case emitted && strings.HasPrefix(strings.TrimSpace(rest), "//"):
			out[len(out)-1] += " " + strings.TrimSpace(rest)
		default:
			out = append(out, rest)
		}
	}
	return out
}
