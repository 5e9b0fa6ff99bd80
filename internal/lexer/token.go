// Package lexer turns SIMPL+ source into a flat, ordered list of classified
// tokens. Each token carries the scope labels of its lexical context
// (innermost last), the same shape a TextMate grammar engine produces, so the
// symbol extractor can run against either the built-in Scanner or an external
// tokenizer driven through Command.
package lexer

import (
	"context"
	"strings"
)

// Scope labels attached to tokens.
const (
	ScopeSource = "source.splus"

	ScopeVariable  = "entity.name.variable"
	ScopeConstant  = "entity.name.constant"
	ScopeFunction  = "entity.name.function"
	ScopeStructure = "entity.name.type.structure"
	ScopeEvent     = "entity.name.variable.event"
	ScopeParameter = "entity.name.variable.parameter"

	ScopeKeywordType = "keyword.type"
	ScopeUserType    = "entity.name.type"
	ScopeModifier    = "storage.modifier"

	ScopeBlock          = "meta.block"
	ScopeStructureBlock = "meta.block.structure"
	ScopeParameterList  = "meta.parenthesized.parameter-list"

	ScopeDecimal   = "constant.numeric.decimal"
	ScopeHex       = "constant.numeric.hex"
	ScopeCharacter = "constant.character"
	ScopeString    = "string.quoted.double"

	ScopeLineComment  = "comment.line.double-slash"
	ScopeBlockComment = "comment.block"
	ScopeHelpText     = "comment.block.documentation"

	ScopeDirective        = "keyword.control.directive"
	ScopeControl          = "keyword.control"
	ScopeStructureKeyword = "storage.type.structure"
	ScopeCall             = "meta.function-call"
	ScopeIdentifier       = "variable.other"
	ScopeOperator         = "keyword.operator"
	ScopePunctuation      = "punctuation"
	ScopeWhitespace       = "whitespace"
)

// Token is one classified lexeme. Line and Column are zero based; Column
// counts runes from the start of the line.
type Token struct {
	Text   string   `json:"text"`
	Line   int      `json:"line"`
	Column int      `json:"column"`
	Scopes []string `json:"scopes"`
	Type   string   `json:"type"`
}

// Has reports whether scope is one of the token's scope labels.
func (t Token) Has(scope string) bool {
	for _, s := range t.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// TypeContains reports whether the innermost scope contains sub.
func (t Token) TypeContains(sub string) bool {
	return strings.Contains(t.Type, sub)
}

// End returns the column just past the token.
func (t Token) End() int {
	return t.Column + len([]rune(t.Text))
}

// Blank reports whether the token is whitespace only.
func (t Token) Blank() bool {
	return strings.TrimSpace(t.Text) == ""
}

// Lexer classifies a whole document.
type Lexer interface {
	Tokenize(ctx context.Context, text string) ([]Token, error)
}
