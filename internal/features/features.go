// Package features implements the editor features of the language server
// on top of the project index: completion, signature help, hover, symbols
// and formatting. Results are go.lsp.dev/protocol values; nothing here
// touches the wire.
package features

import (
	"log/slog"
	"net/url"
	"path"
	"strings"

	"go.lsp.dev/protocol"

	"splusls/internal/catalog"
	"splusls/internal/format"
	"splusls/internal/help"
	"splusls/internal/keywords"
	"splusls/internal/project"
	"splusls/internal/symbols"
)

// Options wires a Service. Help and Catalog are optional.
type Options struct {
	Index    *project.Index
	Keywords *keywords.Table
	Help     *help.Client
	Catalog  *catalog.Catalog
	Format   format.Options
	Logger   *slog.Logger
}

// Service answers feature requests for open documents.
type Service struct {
	index    *project.Index
	keywords *keywords.Table
	help     *help.Client
	catalog  *catalog.Catalog
	format   format.Options
	logger   *slog.Logger
}

// New creates a Service.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	kw := opts.Keywords
	if kw == nil {
		var err error
		if kw, err = keywords.Load(); err != nil {
			logger.Error("failed to load keywords", "error", err)
			kw = new(keywords.Table)
		}
	}
	return &Service{
		index:    opts.Index,
		keywords: kw,
		help:     opts.Help,
		catalog:  opts.Catalog,
		format:   opts.Format,
		logger:   logger,
	}
}

// SetFormat replaces the formatting options, for configuration reloads.
func (s *Service) SetFormat(opts format.Options) {
	s.format = opts
}

// Document is the current text of an open document.
type Document struct {
	URI  string
	Text string
}

// Lines splits the text on CRLF, LF and lone CR.
func (d Document) Lines() []string {
	return format.SplitLines(d.Text)
}

// LinePrefix is the text of pos's line before pos.
func (d Document) LinePrefix(pos protocol.Position) string {
	lines := d.Lines()
	if int(pos.Line) >= len(lines) {
		return ""
	}
	runes := []rune(lines[pos.Line])
	n := int(pos.Character)
	if n > len(runes) {
		n = len(runes)
	}
	return string(runes[:n])
}

// Prefix is the whole text before pos, lines joined with "\n".
func (d Document) Prefix(pos protocol.Position) string {
	lines := d.Lines()
	n := int(pos.Line)
	if n >= len(lines) {
		return strings.Join(lines, "\n")
	}
	return strings.Join(append(lines[:n:n], d.LinePrefix(pos)), "\n")
}

// WordAt returns the identifier under pos and its range.
func (d Document) WordAt(pos protocol.Position) (string, protocol.Range) {
	lines := d.Lines()
	if int(pos.Line) >= len(lines) {
		return "", protocol.Range{Start: pos, End: pos}
	}
	runes := []rune(lines[pos.Line])
	at := int(pos.Character)
	if at > len(runes) {
		at = len(runes)
	}
	start, end := at, at
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	for end < len(runes) && isWordRune(runes[end]) {
		end++
	}
	r := protocol.Range{
		Start: protocol.Position{Line: pos.Line, Character: uint32(start)},
		End:   protocol.Position{Line: pos.Line, Character: uint32(end)},
	}
	return string(runes[start:end]), r
}

func isWordRune(r rune) bool {
	return r == '_' || r == '#' || r == '$' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// trimWord drops a partially typed identifier from the end of s.
func trimWord(s string) string {
	return strings.TrimRightFunc(s, isWordRune)
}

func toPosition(p protocol.Position) symbols.Position {
	return symbols.Position{Line: int(p.Line), Character: int(p.Character)}
}

func fromPosition(p symbols.Position) protocol.Position {
	return protocol.Position{Line: uint32(p.Line), Character: uint32(p.Character)}
}

func fromRange(r symbols.Range) protocol.Range {
	return protocol.Range{Start: fromPosition(r.Start), End: fromPosition(r.End)}
}

// artifactName is the file name of a symbol's artifact without extension.
func artifactName(symbolURI string) string {
	if symbolURI == "" {
		return ""
	}
	u, err := url.Parse(symbolURI)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

func completionKind(k symbols.Kind) protocol.CompletionItemKind {
	switch k {
	case symbols.Constant:
		return protocol.CompletionItemKindConstant
	case symbols.Function:
		return protocol.CompletionItemKindFunction
	case symbols.Method:
		return protocol.CompletionItemKindMethod
	case symbols.Event:
		return protocol.CompletionItemKindEvent
	case symbols.Struct:
		return protocol.CompletionItemKindStruct
	case symbols.Enum:
		return protocol.CompletionItemKindEnum
	case symbols.EnumMember:
		return protocol.CompletionItemKindEnumMember
	case symbols.Class:
		return protocol.CompletionItemKindClass
	case symbols.TypeParameter:
		return protocol.CompletionItemKindTypeParameter
	case symbols.Property:
		return protocol.CompletionItemKindProperty
	default:
		return protocol.CompletionItemKindVariable
	}
}

func keywordCompletionKind(k keywords.Kind) protocol.CompletionItemKind {
	switch k {
	case keywords.KindClass:
		return protocol.CompletionItemKindClass
	case keywords.KindFunction:
		return protocol.CompletionItemKindFunction
	case keywords.KindConstant:
		return protocol.CompletionItemKindConstant
	case keywords.KindVariable:
		return protocol.CompletionItemKindVariable
	case keywords.KindMethod:
		return protocol.CompletionItemKindMethod
	default:
		return protocol.CompletionItemKindKeyword
	}
}

func symbolKind(k symbols.Kind) protocol.SymbolKind {
	switch k {
	case symbols.Constant:
		return protocol.SymbolKindConstant
	case symbols.Function:
		return protocol.SymbolKindFunction
	case symbols.Method:
		return protocol.SymbolKindMethod
	case symbols.Event:
		return protocol.SymbolKindEvent
	case symbols.Struct:
		return protocol.SymbolKindStruct
	case symbols.Enum:
		return protocol.SymbolKindEnum
	case symbols.EnumMember:
		return protocol.SymbolKindEnumMember
	case symbols.Class:
		return protocol.SymbolKindClass
	case symbols.TypeParameter:
		return protocol.SymbolKindTypeParameter
	case symbols.Property:
		return protocol.SymbolKindProperty
	default:
		return protocol.SymbolKindVariable
	}
}

func isCallable(s *symbols.Symbol) bool {
	return s.Kind == symbols.Function || s.Kind == symbols.Method
}
