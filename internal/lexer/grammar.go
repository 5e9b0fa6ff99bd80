package lexer

import "strings"

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = true
	}
	return m
}

// Declaration types: a following identifier is a declared variable.
var declarationTypes = wordSet(
	"INTEGER", "LONG_INTEGER", "SIGNED_INTEGER", "SIGNED_LONG_INTEGER", "STRING",
	"DIGITAL_INPUT", "ANALOG_INPUT", "STRING_INPUT", "BUFFER_INPUT",
	"DIGITAL_OUTPUT", "ANALOG_OUTPUT", "STRING_OUTPUT",
	"INTEGER_PARAMETER", "LONG_INTEGER_PARAMETER", "SIGNED_INTEGER_PARAMETER",
	"SIGNED_LONG_INTEGER_PARAMETER", "STRING_PARAMETER",
	"TCP_CLIENT", "TCP_SERVER", "UDP_SOCKET", "CMUTEX", "CEVENT", "FILE_INFO",
)

// Function types: a following identifier names a function.
var functionTypes = wordSet(
	"FUNCTION", "INTEGER_FUNCTION", "LONG_INTEGER_FUNCTION", "SIGNED_INTEGER_FUNCTION",
	"SIGNED_LONG_INTEGER_FUNCTION", "STRING_FUNCTION", "EVENTHANDLER",
)

// Event keywords: following identifiers, comma separated, are event targets.
var eventKeywords = wordSet(
	"PUSH", "RELEASE", "CHANGE", "EVENT",
	"SOCKETCONNECT", "SOCKETDISCONNECT", "SOCKETRECEIVE", "SOCKETSTATUS",
)

var modifiers = wordSet(
	"NONVOLATILE", "VOLATILE", "DYNAMIC", "INHERIT", "CALLBACK", "THREADSAFE",
	"BYREF", "BYVAL", "READONLYBYREF",
)

var controlKeywords = wordSet(
	"IF", "ELSE", "WHILE", "DO", "UNTIL", "FOR", "TO", "STEP", "RETURN", "BREAK",
	"CONTINUE", "SWITCH", "CSWITCH", "CASE", "DEFAULT", "CALL", "GOTO", "TRY",
	"CATCH", "WAIT", "PULSE", "PROCESSLOGIC", "TERMINATEEVENT", "_SKIP_",
)

const (
	structureKeyword = "structure"
	defineConstant   = "#define_constant"
	helpBegin        = "#help_begin"
	helpEnd          = "#help_end"
)

func knownWord(lower string) bool {
	return declarationTypes[lower] || functionTypes[lower] || eventKeywords[lower] ||
		modifiers[lower] || controlKeywords[lower] || lower == structureKeyword
}

type declKind int

const (
	declNone declKind = iota
	declVariable
	declFunction
	declEvent
	declStructure
	declDirective
	declStatement
)

// statement tracks the declaration being read between terminators.
type statement struct {
	kind       declKind
	started    bool // a non-modifier word has been read
	expectName bool
	openParams bool // the next '(' opens a parameter list
	block      string
	bracket    int
	paren      int
	line       int // directive line
	constant   int // 1: expecting a constant name
}

type param struct {
	typed bool
	named bool
}

type classifier struct {
	lexemes []lexeme
	next    []int // index of the next significant lexeme, or len
	tokens  []Token
	blocks  []string
	params  int
	param   param
	stmt    statement
	help    bool
}

func classify(lexemes []lexeme) []Token {
	c := &classifier{
		lexemes: lexemes,
		next:    make([]int, len(lexemes)),
		tokens:  make([]Token, 0, len(lexemes)),
	}
	n := len(lexemes)
	for i := len(lexemes) - 1; i >= 0; i-- {
		c.next[i] = n
		if lexemes[i].significant() {
			n = i
		}
	}
	for i := range lexemes {
		c.step(i)
	}
	return c.tokens
}

// peek returns the next significant lexeme after i.
func (c *classifier) peek(i int) (lexeme, bool) {
	j := c.next[i]
	if j >= len(c.lexemes) {
		return lexeme{}, false
	}
	return c.lexemes[j], true
}

func (c *classifier) emit(lx lexeme, scope string) {
	scopes := make([]string, 0, len(c.blocks)+3)
	scopes = append(scopes, ScopeSource)
	scopes = append(scopes, c.blocks...)
	if c.params > 0 {
		scopes = append(scopes, ScopeParameterList)
	}
	if scope != "" {
		scopes = append(scopes, scope)
	}
	c.tokens = append(c.tokens, Token{
		Text:   lx.text,
		Line:   lx.line,
		Column: lx.col,
		Scopes: scopes,
		Type:   scopes[len(scopes)-1],
	})
}

func (c *classifier) reset() {
	c.stmt = statement{}
}

func (c *classifier) step(i int) {
	lx := c.lexemes[i]

	if c.help {
		if lx.kind == lexWord && strings.EqualFold(lx.text, helpEnd) {
			c.help = false
			c.emit(lx, ScopeDirective)
			return
		}
		c.emit(lx, ScopeHelpText)
		return
	}

	switch lx.kind {
	case lexSpace:
		c.emit(lx, ScopeWhitespace)
		return
	case lexLineComment:
		c.emit(lx, ScopeLineComment)
		return
	case lexBlockComment:
		c.emit(lx, ScopeBlockComment)
		return
	}

	if c.stmt.kind == declDirective && lx.line != c.stmt.line {
		c.reset()
	}

	switch lx.kind {
	case lexDecimal:
		c.markStarted()
		c.emit(lx, ScopeDecimal)
	case lexHex:
		c.markStarted()
		c.emit(lx, ScopeHex)
	case lexString:
		c.markStarted()
		c.emit(lx, ScopeString)
	case lexChar:
		c.markStarted()
		c.emit(lx, ScopeCharacter)
	case lexPunct:
		c.punct(i, lx)
	case lexWord:
		c.word(i, lx)
	}
}

func (c *classifier) markStarted() {
	if c.stmt.kind != declDirective {
		c.stmt.started = true
	}
}

func (c *classifier) punct(i int, lx lexeme) {
	switch lx.text {
	case "{":
		scope := c.stmt.block
		if scope == "" {
			scope = ScopeBlock
		}
		c.params = 0
		c.blocks = append(c.blocks, scope)
		c.emit(lx, ScopePunctuation)
		c.reset()

	case "}":
		c.params = 0
		c.emit(lx, ScopePunctuation)
		if len(c.blocks) > 0 {
			c.blocks = c.blocks[:len(c.blocks)-1]
		}
		c.reset()

	case ";":
		c.params = 0
		c.emit(lx, ScopePunctuation)
		c.reset()

	case "(":
		switch {
		case c.stmt.openParams:
			c.stmt.openParams = false
			c.stmt.block = ScopeBlock
			if next, ok := c.peek(i); ok && next.kind == lexPunct && next.text == ")" {
				// "()" carries no parameter list scope
				c.emit(lx, ScopePunctuation)
				c.stmt.paren++
				return
			}
			c.params = 1
			c.param = param{}
		case c.params > 0:
			c.params++
		default:
			c.stmt.paren++
		}
		c.emit(lx, ScopePunctuation)

	case ")":
		c.emit(lx, ScopePunctuation)
		switch {
		case c.params > 0:
			c.params--
		case c.stmt.paren > 0:
			c.stmt.paren--
		}

	case "[":
		c.stmt.bracket++
		c.emit(lx, ScopePunctuation)

	case "]":
		if c.stmt.bracket > 0 {
			c.stmt.bracket--
		}
		c.emit(lx, ScopePunctuation)

	case ",":
		if c.params == 1 {
			c.param = param{}
		} else if c.params == 0 && c.stmt.bracket == 0 && c.stmt.paren == 0 {
			switch c.stmt.kind {
			case declVariable, declEvent:
				c.stmt.expectName = true
			}
		}
		c.emit(lx, ScopePunctuation)

	default:
		if c.params == 0 && c.stmt.bracket == 0 && c.stmt.kind != declDirective {
			c.stmt.expectName = false
			if c.stmt.kind != declEvent {
				c.stmt.kind = declStatement
			}
			c.stmt.started = true
		}
		c.emit(lx, ScopeOperator)
	}
}

func (c *classifier) word(i int, lx lexeme) {
	lower := strings.ToLower(lx.text)

	if c.params > 0 {
		c.parameterWord(lx, lower)
		return
	}

	if strings.HasPrefix(lower, "#") {
		c.reset()
		c.stmt.kind = declDirective
		c.stmt.line = lx.line
		switch lower {
		case defineConstant:
			c.stmt.constant = 1
		case helpBegin:
			c.help = true
		}
		c.emit(lx, ScopeDirective)
		return
	}

	if c.stmt.kind == declDirective {
		if c.stmt.constant == 1 {
			c.stmt.constant = 0
			c.emit(lx, ScopeConstant)
			return
		}
		c.emit(lx, ScopeIdentifier)
		return
	}

	switch {
	case modifiers[lower]:
		c.emit(lx, ScopeModifier)
		return

	case lower == structureKeyword:
		c.stmt.kind = declStructure
		c.stmt.started = true
		c.stmt.expectName = true
		c.stmt.block = ScopeStructureBlock
		c.emit(lx, ScopeStructureKeyword)
		return

	case functionTypes[lower]:
		c.stmt.kind = declFunction
		c.stmt.started = true
		c.stmt.expectName = true
		c.emit(lx, ScopeKeywordType)
		return

	case eventKeywords[lower]:
		c.stmt.kind = declEvent
		c.stmt.started = true
		c.stmt.expectName = true
		c.stmt.block = ScopeBlock
		c.emit(lx, ScopeKeywordType)
		return

	case declarationTypes[lower]:
		if !c.stmt.started {
			c.stmt.kind = declVariable
			c.stmt.expectName = true
		}
		c.stmt.started = true
		c.emit(lx, ScopeKeywordType)
		return

	case controlKeywords[lower]:
		c.stmt.started = true
		c.stmt.expectName = false
		c.emit(lx, ScopeControl)
		return
	}

	if c.stmt.expectName && c.stmt.bracket == 0 && c.stmt.paren == 0 {
		c.stmt.expectName = false
		switch c.stmt.kind {
		case declVariable:
			c.emit(lx, ScopeVariable)
			return
		case declEvent:
			c.emit(lx, ScopeEvent)
			return
		case declStructure:
			c.emit(lx, ScopeStructure)
			return
		case declFunction:
			c.stmt.openParams = true
			c.emit(lx, ScopeFunction)
			return
		}
	}

	next, hasNext := c.peek(i)
	if !c.stmt.started && hasNext && next.kind == lexWord &&
		!strings.HasPrefix(next.text, "#") && !knownWord(strings.ToLower(next.text)) {
		// "Type name": a user-defined type starting a declaration
		c.stmt.kind = declVariable
		c.stmt.started = true
		c.stmt.expectName = true
		c.emit(lx, ScopeUserType)
		return
	}

	c.stmt.started = true
	if hasNext && next.kind == lexPunct && next.text == "(" {
		c.emit(lx, ScopeCall)
		return
	}
	c.emit(lx, ScopeIdentifier)
}

// parameterWord classifies "[modifier...] type name" inside a parameter list.
func (c *classifier) parameterWord(lx lexeme, lower string) {
	switch {
	case c.params > 1:
		c.emit(lx, ScopeIdentifier)
	case modifiers[lower]:
		c.emit(lx, ScopeModifier)
	case !c.param.typed:
		c.param.typed = true
		if declarationTypes[lower] {
			c.emit(lx, ScopeKeywordType)
		} else {
			c.emit(lx, ScopeUserType)
		}
	case !c.param.named:
		c.param.named = true
		c.emit(lx, ScopeParameter)
	default:
		c.emit(lx, ScopeIdentifier)
	}
}
