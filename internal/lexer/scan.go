package lexer

import (
	"strings"
	"unicode"
)

type lexKind int

const (
	lexSpace lexKind = iota
	lexWord
	lexDecimal
	lexHex
	lexString
	lexChar
	lexLineComment
	lexBlockComment
	lexPunct
)

type lexeme struct {
	kind lexKind
	text string
	line int
	col  int
}

func (l lexeme) significant() bool {
	switch l.kind {
	case lexSpace, lexLineComment, lexBlockComment:
		return false
	}
	return true
}

// splitLines treats "\r\n", "\n" and a lone "\r" as line breaks.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

func isWordStart(r rune) bool {
	return r == '_' || r == '#' || unicode.IsLetter(r)
}

func isWordPart(r rune) bool {
	return r == '_' || r == '#' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// scan splits text into raw lexemes. Block comments may span lines and are
// emitted as one lexeme per line.
func scan(text string) []lexeme {
	var out []lexeme
	inComment := false

	for lineNo, line := range splitLines(text) {
		rs := []rune(line)
		i := 0
		emit := func(kind lexKind, start, end int) {
			out = append(out, lexeme{kind: kind, text: string(rs[start:end]), line: lineNo, col: start})
			i = end
		}

		for i < len(rs) {
			start := i
			if inComment {
				end := indexFrom(rs, i, "*/")
				if end < 0 {
					emit(lexBlockComment, start, len(rs))
					continue
				}
				inComment = false
				emit(lexBlockComment, start, end+2)
				continue
			}

			r := rs[i]
			switch {
			case r == ' ' || r == '\t' || r == '\f' || r == '\v':
				j := i
				for j < len(rs) && (rs[j] == ' ' || rs[j] == '\t' || rs[j] == '\f' || rs[j] == '\v') {
					j++
				}
				emit(lexSpace, start, j)

			case r == '/' && i+1 < len(rs) && rs[i+1] == '/':
				emit(lexLineComment, start, len(rs))

			case r == '/' && i+1 < len(rs) && rs[i+1] == '*':
				end := indexFrom(rs, i+2, "*/")
				if end < 0 {
					inComment = true
					emit(lexBlockComment, start, len(rs))
				} else {
					emit(lexBlockComment, start, end+2)
				}

			case r == '"':
				j := i + 1
				for j < len(rs) && rs[j] != '"' {
					if rs[j] == '\\' && j+1 < len(rs) {
						j++
					}
					j++
				}
				if j < len(rs) {
					j++
				}
				emit(lexString, start, j)

			case r == '\'':
				j := i + 1
				for j < len(rs) && rs[j] != '\'' {
					if rs[j] == '\\' && j+1 < len(rs) {
						j++
					}
					j++
				}
				if j < len(rs) {
					j++
				}
				emit(lexChar, start, j)

			case unicode.IsDigit(r):
				j := i + 1
				kind := lexDecimal
				if r == '0' && j < len(rs) && (rs[j] == 'x' || rs[j] == 'X') {
					kind = lexHex
					j++
				}
				for j < len(rs) && (unicode.IsDigit(rs[j]) || unicode.IsLetter(rs[j]) || rs[j] == '_') {
					j++
				}
				emit(kind, start, j)

			case isWordStart(r):
				j := i + 1
				for j < len(rs) && isWordPart(rs[j]) {
					j++
				}
				emit(lexWord, start, j)

			default:
				emit(lexPunct, start, i+1)
			}
		}
	}
	return out
}

func indexFrom(rs []rune, from int, sub string) int {
	if from > len(rs) {
		return -1
	}
	idx := strings.Index(string(rs[from:]), sub)
	if idx < 0 {
		return -1
	}
	return from + len([]rune(string(rs[from:])[:idx]))
}
