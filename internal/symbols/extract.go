package symbols

import (
	"regexp"
	"strings"

	"splusls/internal/lexer"
)

var (
	builtinTypeRe  = regexp.MustCompile(`(?i)^(CMutex|CEvent|Tcp_Client|Tcp_Server|Udp_Socket)$`)
	eventHandlerRe = regexp.MustCompile(`(?i)^eventHandler$`)
	functionTypeRe = regexp.MustCompile(`(?i)^(?:(LONG_INTEGER|INTEGER|SIGNED_INTEGER|SIGNED_LONG_INTEGER|STRING)_)?FUNCTION$`)
	ioTypeRe       = regexp.MustCompile(`(?i)^(?:LONG_INTEGER|INTEGER|SIGNED_INTEGER|SIGNED_LONG_INTEGER|BUFFER|STRING|ANALOG|DIGITAL)_(INPUT|OUTPUT|PARAMETER)$`)
)

// constantTypes maps the literal following a constant name to its type.
var constantTypes = map[string]string{
	lexer.ScopeDecimal:                  "integer",
	lexer.ScopeHex:                      "integer",
	lexer.ScopeCharacter:                "integer",
	"constant.numeric.character":        "integer",
	"constant.numeric.other.prefix.hex": "integer",
	lexer.ScopeString:                   "string",
}

// FunctionReturnType collapses a function declaration keyword to its return
// type: INTEGER_FUNCTION gives INTEGER and a bare FUNCTION gives void. Other
// names are returned unchanged.
func FunctionReturnType(name string) string {
	m := functionTypeRe.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	if m[1] == "" {
		return "void"
	}
	return m[1]
}

type extractor struct {
	tokens []lexer.Token
	b      *builder
}

// Extract builds the symbol tree of one program or library from its tokens.
// Roots come out in the order structures, constants, variables, functions,
// events. Malformed constructs yield fewer children or no block, never an
// error.
func Extract(uri string, tokens []lexer.Token) *Tree {
	x := &extractor{tokens: tokens, b: newBuilder(uri)}
	x.structures()
	x.constants()
	x.variables()
	x.functions()
	x.events()
	return x.b.tree()
}

func (x *extractor) nameRange(i int) Range {
	tok := x.tokens[i]
	return Range{
		Start: Position{Line: tok.Line, Character: tok.Column},
		End:   Position{Line: tok.Line, Character: tok.End()},
	}
}

func (x *extractor) span(lo, hi int) Range {
	first, last := x.tokens[lo], x.tokens[hi-1]
	return Range{
		Start: Position{Line: first.Line, Character: first.Column},
		End:   Position{Line: last.Line, Character: last.End()},
	}
}

func insignificant(tok lexer.Token) bool {
	return tok.Blank() || tok.TypeContains("comment")
}

func (x *extractor) prevSignificant(i int) int {
	for i--; i >= 0; i-- {
		if !insignificant(x.tokens[i]) {
			return i
		}
	}
	return -1
}

func (x *extractor) nextSignificant(i int) int {
	for i++; i < len(x.tokens); i++ {
		if !insignificant(x.tokens[i]) {
			return i
		}
	}
	return -1
}

// run locates the contiguous tokens carrying scope, searching forward from
// the declaration at from. The search gives up at a statement terminator, at
// another function or structure name, and, for parameter lists, at an
// opening brace.
func (x *extractor) run(from int, scope string, stopAtBrace bool) (lo, hi int, ok bool) {
	lo = -1
	for j := from; j < len(x.tokens); j++ {
		tok := x.tokens[j]
		if tok.Has(scope) {
			lo = j
			break
		}
		if tok.Text == ";" || (stopAtBrace && tok.Text == "{") {
			return 0, 0, false
		}
		if j != from && (tok.Has(lexer.ScopeFunction) || tok.Has(lexer.ScopeStructure)) {
			return 0, 0, false
		}
	}
	if lo < 0 {
		return 0, 0, false
	}
	hi = lo
	for hi < len(x.tokens) && x.tokens[hi].Has(scope) {
		hi++
	}
	return lo, hi, true
}

// typeOf walks back from the declared name at i to the type keyword or user
// type preceding it and derives the data type and modifier.
func (x *extractor) typeOf(i int) (typ, modifier string) {
	j := i - 1
	for j >= 0 && !(x.tokens[j].TypeContains(lexer.ScopeKeywordType) || x.tokens[j].TypeContains(lexer.ScopeUserType)) {
		j--
	}
	if j < 0 {
		return "", ""
	}

	typ = x.tokens[j].Text
	if builtinTypeRe.MatchString(typ) {
		return typ, "BuiltIn"
	}
	if eventHandlerRe.MatchString(typ) {
		return "void", typ
	}
	typ = FunctionReturnType(typ)

	if k := x.prevSignificant(j); k >= 0 && x.tokens[k].TypeContains(lexer.ScopeModifier) {
		modifier = x.tokens[k].Text
	}
	if modifier == "" {
		if m := ioTypeRe.FindStringSubmatch(typ); m != nil {
			modifier = m[1]
		}
	}
	return typ, modifier
}

func (x *extractor) declaration(i int, kind Kind) Symbol {
	typ, mod := x.typeOf(i)
	return Symbol{
		Name:      x.tokens[i].Text,
		Kind:      kind,
		NameRange: x.nameRange(i),
		DataType:  typ,
		Modifier:  mod,
	}
}

// locals adds the variables declared in tokens[lo:hi] under parent.
func (x *extractor) locals(parent ID, lo, hi int) {
	for j := lo; j < hi; j++ {
		if x.tokens[j].Has(lexer.ScopeVariable) {
			x.b.add(parent, x.declaration(j, Variable))
		}
	}
}

func (x *extractor) structures() {
	for i, tok := range x.tokens {
		if !tok.Has(lexer.ScopeStructure) {
			continue
		}
		id := x.b.add(NoParent, Symbol{
			Name:      tok.Text,
			Kind:      Struct,
			NameRange: x.nameRange(i),
			DataType:  tok.Text,
		})
		if lo, hi, ok := x.run(i, lexer.ScopeStructureBlock, false); ok {
			x.b.setBlock(id, x.span(lo, hi))
			x.locals(id, lo, hi)
		}
	}
}

func (x *extractor) constants() {
	for i, tok := range x.tokens {
		if !tok.Has(lexer.ScopeConstant) {
			continue
		}
		typ := ""
		if j := x.nextSignificant(i); j >= 0 {
			typ = constantTypes[x.tokens[j].Type]
		}
		x.b.add(NoParent, Symbol{
			Name:      tok.Text,
			Kind:      Constant,
			NameRange: x.nameRange(i),
			DataType:  typ,
		})
	}
}

func (x *extractor) variables() {
	for i, tok := range x.tokens {
		if !tok.Has(lexer.ScopeVariable) || tok.Has(lexer.ScopeStructureBlock) || tok.Has(lexer.ScopeBlock) {
			continue
		}
		x.b.add(NoParent, x.declaration(i, Variable))
	}
}

func (x *extractor) functions() {
	for i, tok := range x.tokens {
		if !tok.Has(lexer.ScopeFunction) {
			continue
		}
		id := x.b.add(NoParent, x.declaration(i, Function))

		if lo, hi, ok := x.run(i, lexer.ScopeParameterList, true); ok {
			params := x.span(lo, hi)
			named := 0
			for j := lo; j < hi; j++ {
				if !x.tokens[j].Has(lexer.ScopeParameter) {
					continue
				}
				p := x.declaration(j, TypeParameter)
				p.Block = &params
				x.b.add(id, p)
				named++
			}
			if named == 0 {
				// keeps the parameter list addressable for position lookups
				x.b.add(id, Symbol{Kind: TypeParameter, Block: &params})
			}
		}

		if lo, hi, ok := x.run(i, lexer.ScopeBlock, false); ok {
			x.b.setBlock(id, x.span(lo, hi))
			x.locals(id, lo, hi)
		}
	}
}

func (x *extractor) events() {
	for i, tok := range x.tokens {
		if !tok.Has(lexer.ScopeEvent) {
			continue
		}
		id := x.b.add(NoParent, x.declaration(i, Event))
		if lo, hi, ok := x.run(i, lexer.ScopeBlock, false); ok {
			x.b.setBlock(id, x.span(lo, hi))
			x.locals(id, lo, hi)
		}
	}
}

// DescribeFunction renders "type name(type param, ...)".
func DescribeFunction(s *Symbol) string {
	var sb strings.Builder
	sb.WriteString(s.DataType)
	sb.WriteString(" ")
	sb.WriteString(s.Name)
	sb.WriteString("(")
	first := true
	for _, p := range s.Params() {
		if p.Name == "" {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(p.DataType)
		sb.WriteString(" ")
		sb.WriteString(p.Name)
	}
	sb.WriteString(")")
	return sb.String()
}
