package format

import "strings"

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '#' || c == '_'
}

// NormalizeCase rewrites keywords to the given case style. Constants are
// always rewritten to their canonical spelling, even when the style is
// CaseUnchanged. Comments and double-quoted strings are skipped.
func NormalizeCase(text string, style KeywordCase, kw Keywords, legacy bool) string {
	if kw == nil {
		return text
	}

	buf := []byte(text)
	depth := 0
	for i := 0; i < len(text); {
		if depth > 0 {
			if n := closerAt(text, i, legacy); n > 0 {
				depth--
				i += n
			} else if n := openerAt(text, i, legacy); n > 0 {
				depth++
				i += n
			} else {
				i++
			}
			continue
		}

		if strings.HasPrefix(text[i:], "//") {
			i = endOfLine(text, i)
			continue
		}
		if n := openerAt(text, i, legacy); n > 0 {
			depth++
			i += n
			continue
		}
		if text[i] == '"' {
			end := strings.IndexAny(text[i+1:], "\"\r\n")
			if end < 0 {
				break
			}
			i += end + 1
			if text[i] == '"' {
				i++
			}
			continue
		}
		if !isWordByte(text[i]) {
			i++
			continue
		}

		j := i
		for j < len(text) && isWordByte(text[j]) {
			j++
		}
		if name, constant, ok := kw.Canonical(text[i:j]); ok {
			if repl, apply := casedKeyword(name, constant, style); apply {
				replaceAt(buf, i, repl)
			}
		}
		i = j
	}
	return string(buf)
}

func casedKeyword(name string, constant bool, style KeywordCase) (string, bool) {
	if constant {
		return name, true
	}
	switch style {
	case CaseUpper:
		return strings.ToUpper(name), true
	case CaseLower:
		return strings.ToLower(name), true
	case CasePascal:
		return name, true
	default:
		return "", false
	}
}

// replaceAt overwrites buf at index with repl, skipping replacements that
// would run past the end of the document.
func replaceAt(buf []byte, index int, repl string) {
	if index < 0 || index+len(repl) > len(buf) {
		return
	}
	copy(buf[index:], repl)
}

func endOfLine(text string, i int) int {
	if n := strings.IndexAny(text[i:], "\r\n"); n >= 0 {
		return i + n
	}
	return len(text)
}
