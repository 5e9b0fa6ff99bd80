package format

import "strings"

// span is a half-open byte range of a line.
type span struct{ from, to int }

// lineInfo describes the lexical layout of one line.
type lineInfo struct {
	code []span // bytes outside comments and string literals

	depth   int  // block comment depth after the line
	opens   bool // a comment opened from code and is still open at end of line
	closes  bool // the comment open on entry was closed on this line
	comment bool // the line carries comment text of any kind
}

func openerAt(line string, i int, legacy bool) int {
	if strings.HasPrefix(line[i:], "/*") || (legacy && strings.HasPrefix(line[i:], "(*")) {
		return 2
	}
	return 0
}

func closerAt(line string, i int, legacy bool) int {
	if strings.HasPrefix(line[i:], "*/") || (legacy && strings.HasPrefix(line[i:], "*)")) {
		return 2
	}
	return 0
}

// scanLine walks a line starting at the given block comment depth.
// Quoted literals ('...' and "...") must close on the same line; a lone
// quote is treated as code.
func scanLine(line string, depth int, legacy bool) lineInfo {
	info := lineInfo{depth: depth, comment: depth > 0}
	openedHere := false
	start := -1

	flush := func(i int) {
		if start >= 0 && i > start {
			info.code = append(info.code, span{start, i})
		}
		start = -1
	}

	for i := 0; i < len(line); {
		if info.depth > 0 {
			if n := closerAt(line, i, legacy); n > 0 {
				info.depth--
				i += n
				if info.depth == 0 {
					if openedHere {
						openedHere = false
					} else {
						info.closes = true
					}
				}
				continue
			}
			if n := openerAt(line, i, legacy); n > 0 {
				info.depth++
				i += n
				continue
			}
			i++
			continue
		}

		if strings.HasPrefix(line[i:], "//") {
			flush(i)
			info.comment = true
			info.opens = false
			return info
		}
		if n := openerAt(line, i, legacy); n > 0 {
			flush(i)
			info.depth++
			info.comment = true
			openedHere = true
			i += n
			continue
		}
		if c := line[i]; c == '"' || c == '\'' {
			if j := strings.IndexByte(line[i+1:], c); j >= 0 {
				flush(i)
				i += j + 2
				continue
			}
		}
		if start < 0 {
			start = i
		}
		i++
	}
	flush(len(line))
	info.opens = openedHere && info.depth > 0
	return info
}

// text joins the code spans of line.
func (info lineInfo) text(line string) string {
	if len(info.code) == 1 && info.code[0].from == 0 && info.code[0].to == len(line) {
		return line
	}
	var b strings.Builder
	for _, s := range info.code {
		b.WriteString(line[s.from:s.to])
	}
	return b.String()
}

// positions returns the offsets of ch in the code of line.
func (info lineInfo) positions(line string, ch byte) []int {
	var out []int
	for _, s := range info.code {
		for i := s.from; i < s.to; i++ {
			if line[i] == ch {
				out = append(out, i)
			}
		}
	}
	return out
}

// Stripped is the result of Strip.
type Stripped struct {
	// Code is the line with comments and quoted literals removed.
	Code string

	// Depth is the block comment nesting depth after the line.
	Depth int

	// Opens is set when the line opens a block comment that was not
	// already open and leaves it open.
	Opens bool

	// Closes is set when the line closes the outermost comment that was
	// open when the line started.
	Closes bool
}

// Strip removes line comments, block comments and quoted literals from one
// line given the incoming block comment depth. Legacy also recognises
// (* ... *) comments.
func Strip(line string, depth int, legacy bool) Stripped {
	info := scanLine(line, depth, legacy)
	return Stripped{
		Code:   info.text(line),
		Depth:  info.depth,
		Opens:  info.opens,
		Closes: info.closes,
	}
}
