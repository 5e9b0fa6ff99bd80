package symbols

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// API files are generated from SIMPL# libraries and follow a fixed layout,
// so they are read with patterns rather than the tokenizer.
var (
	apiClassRe = regexp.MustCompile(`class\s*(\w*)\s*\{([^}]*)`)
	apiEnumRe  = regexp.MustCompile(`enum\s*(\w*)\s*\{([^}]*)`)

	apiDelegatesRe  = regexp.MustCompile(`class delegates([^/]*)`)
	apiEventsRe     = regexp.MustCompile(`class events([^/]*)`)
	apiFunctionsRe  = regexp.MustCompile(`class functions([^/]*)`)
	apiVariablesRe  = regexp.MustCompile(`class variables([^/]*)`)
	apiPropertiesRe = regexp.MustCompile(`class properties([^}]*)`)

	apiDelegateRe = regexp.MustCompile(`delegate[ \t]+(\w+)[ \t]+(\w+)[ \t]*\((.*)\)`)
	apiEventRe    = regexp.MustCompile(`EventHandler[ \t]+(\w+)[ \t]*\((.*)\)`)
	apiFunctionRe = regexp.MustCompile(`(\w+)[ \t]+(\w+)[ \t]*\((.*)\)`)
	apiVariableRe = regexp.MustCompile(`(\w+)[ \t]+(\w+)[ \t]*(?:\[,*\])?[ \t]*;`)
	apiPropertyRe = regexp.MustCompile(`(?m)^[ \t]*(?:(\w+)[ \t]+)?(\w+)[ \t]+(\w+)[ \t]*(?:\[,*\])?[ \t]*;`)
	apiMemberRe   = regexp.MustCompile(`(\w+)[ \t]*(?:=[^,\n]*)?,`)
)

// ParseAPI builds the symbol tree of a generated API file: one Class root per
// class block and one Enum root per enum block. A class's events, delegates,
// functions, variables and properties become its direct children, in that
// order.
func ParseAPI(uri, text string) *Tree {
	p := &apiParser{text: text, lines: newLineIndex(text), b: newBuilder(uri)}
	for _, m := range apiClassRe.FindAllStringSubmatchIndex(text, -1) {
		p.class(m)
	}
	for _, m := range apiEnumRe.FindAllStringSubmatchIndex(text, -1) {
		p.enum(m)
	}
	return p.b.tree()
}

type apiParser struct {
	text  string
	lines *lineIndex
	b     *builder
}

func (p *apiParser) rangeOf(start, end int) Range {
	return Range{Start: p.lines.position(start), End: p.lines.position(end)}
}

// wordRange is the identifier around off, or fallback when there is none.
func (p *apiParser) wordRange(off int, fallback Range) Range {
	if off < 0 || off >= len(p.text) || !isIdentByte(p.text[off]) {
		return fallback
	}
	start, end := off, off
	for start > 0 && isIdentByte(p.text[start-1]) {
		start--
	}
	for end < len(p.text) && isIdentByte(p.text[end]) {
		end++
	}
	return p.rangeOf(start, end)
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// section finds a sub-section of a class body; offsets are absolute.
func (p *apiParser) section(re *regexp.Regexp, bodyStart, bodyEnd int) (start, end int, ok bool) {
	m := re.FindStringSubmatchIndex(p.text[bodyStart:bodyEnd])
	if m == nil || m[3] <= m[2] {
		return 0, 0, false
	}
	return bodyStart + m[0], bodyStart + m[1], true
}

func (p *apiParser) class(m []int) {
	name := p.text[m[2]:m[3]]
	bodyStart, bodyEnd := m[4], m[5]
	body := p.rangeOf(bodyStart, m[1])

	id := p.b.add(NoParent, Symbol{
		Name:      name,
		Kind:      Class,
		NameRange: p.wordRange(m[2], body),
		DataType:  "class",
	})
	p.b.setBlock(id, body)

	if s, e, ok := p.section(apiEventsRe, bodyStart, bodyEnd); ok {
		p.events(id, s, e)
	}
	if s, e, ok := p.section(apiDelegatesRe, bodyStart, bodyEnd); ok {
		p.delegates(id, s, e)
	}
	if s, e, ok := p.section(apiFunctionsRe, bodyStart, bodyEnd); ok {
		p.functions(id, s, e)
	}
	if s, e, ok := p.section(apiVariablesRe, bodyStart, bodyEnd); ok {
		p.variables(id, s, e)
	}
	if s, e, ok := p.section(apiPropertiesRe, bodyStart, bodyEnd); ok {
		p.properties(id, s, e)
	}
}

func (p *apiParser) delegates(parent ID, start, end int) {
	area := p.rangeOf(start, end)
	for _, m := range apiDelegateRe.FindAllStringSubmatchIndex(p.text[start:end], -1) {
		id := p.b.add(parent, Symbol{
			Name:      p.text[start+m[4] : start+m[5]],
			Kind:      Class,
			NameRange: p.wordRange(start+m[4], area),
			DataType:  p.text[start+m[2] : start+m[3]],
			Modifier:  "delegate",
		})
		p.parameters(id, start+m[0], start+m[1])
	}
}

func (p *apiParser) events(parent ID, start, end int) {
	area := p.rangeOf(start, end)
	for _, m := range apiEventRe.FindAllStringSubmatchIndex(p.text[start:end], -1) {
		id := p.b.add(parent, Symbol{
			Name:      p.text[start+m[2] : start+m[3]],
			Kind:      Event,
			NameRange: p.wordRange(start+m[2], area),
			DataType:  "void",
		})
		p.parameters(id, start+m[0], start+m[1])
	}
}

func (p *apiParser) functions(parent ID, start, end int) {
	area := p.rangeOf(start, end)
	for _, m := range apiFunctionRe.FindAllStringSubmatchIndex(p.text[start:end], -1) {
		id := p.b.add(parent, Symbol{
			Name:      p.text[start+m[4] : start+m[5]],
			Kind:      Function,
			NameRange: p.wordRange(start+m[4], area),
			DataType:  FunctionReturnType(p.text[start+m[2] : start+m[3]]),
		})
		p.parameters(id, start+m[0], start+m[1])
	}
}

func (p *apiParser) variables(parent ID, start, end int) {
	area := p.rangeOf(start, end)
	for _, m := range apiVariableRe.FindAllStringSubmatchIndex(p.text[start:end], -1) {
		p.b.add(parent, Symbol{
			Name:      p.text[start+m[4] : start+m[5]],
			Kind:      Variable,
			NameRange: p.wordRange(start+m[4], area),
			DataType:  p.text[start+m[2] : start+m[3]],
		})
	}
}

func (p *apiParser) properties(parent ID, start, end int) {
	area := p.rangeOf(start, end)
	for _, m := range apiPropertyRe.FindAllStringSubmatchIndex(p.text[start:end], -1) {
		p.b.add(parent, Symbol{
			Name:      p.text[start+m[6] : start+m[7]],
			Kind:      Property,
			NameRange: p.wordRange(start+m[6], area),
			DataType:  p.text[start+m[4] : start+m[5]],
		})
	}
}

// parameters adds one TypeParameter per comma separated "[modifier] type
// name" in the first parenthesized list of text[start:end]. Entries of any
// other shape are skipped. Every parameter's block is the whole list.
func (p *apiParser) parameters(parent ID, start, end int) {
	decl := p.text[start:end]
	open := strings.IndexByte(decl, '(')
	if open < 0 {
		return
	}
	closing := strings.IndexByte(decl[open:], ')')
	if closing < 0 {
		return
	}
	listStart, listEnd := start+open, start+open+closing+1
	list := p.rangeOf(listStart, listEnd)

	off := listStart + 1
	for _, piece := range strings.Split(p.text[listStart+1:listEnd-1], ",") {
		pieceStart := off
		off += len(piece) + 1

		if i := strings.IndexByte(piece, '['); i >= 0 {
			piece = piece[:i]
		}
		fields := strings.Fields(piece)
		if len(fields) < 2 || len(fields) > 3 {
			continue
		}
		name := fields[len(fields)-1]
		nameOff := pieceStart + strings.LastIndex(piece, name)
		block := list
		p.b.add(parent, Symbol{
			Name:      name,
			Kind:      TypeParameter,
			NameRange: p.wordRange(nameOff, list),
			DataType:  fields[len(fields)-2],
			Block:     &block,
		})
	}
}

func (p *apiParser) enum(m []int) {
	name := p.text[m[2]:m[3]]
	bodyStart, bodyEnd := m[4], m[5]
	body := p.rangeOf(bodyStart, m[1])

	id := p.b.add(NoParent, Symbol{
		Name:      name,
		Kind:      Enum,
		NameRange: p.wordRange(m[2], body),
		DataType:  "enum",
	})
	p.b.setBlock(id, body)

	for _, mm := range apiMemberRe.FindAllStringSubmatchIndex(p.text[bodyStart:bodyEnd], -1) {
		member := p.text[bodyStart+mm[2] : bodyStart+mm[3]]
		p.b.add(id, Symbol{
			Name:      member,
			Kind:      EnumMember,
			NameRange: p.wordRange(bodyStart+mm[2], body),
			DataType:  name + "." + member,
		})
	}
}

// lineIndex converts byte offsets to positions. "\r\n", "\n" and a lone "\r"
// end a line; columns count runes.
type lineIndex struct {
	text   string
	starts []int
}

func newLineIndex(text string) *lineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		case '\n':
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{text: text, starts: starts}
}

func (li *lineIndex) position(off int) Position {
	if off > len(li.text) {
		off = len(li.text)
	}
	line := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > off }) - 1
	if line < 0 {
		line = 0
	}
	return Position{Line: line, Character: utf8.RuneCountInString(li.text[li.starts[line]:off])}
}
