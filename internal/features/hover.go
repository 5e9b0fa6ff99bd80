package features

import (
	"context"
	"strings"

	"go.lsp.dev/protocol"

	"splusls/internal/help"
	"splusls/internal/symbols"
)

// maxSuggestions bounds the "did you mean" list of an unknown word.
const maxSuggestions = 3

// Hover explains the word under pos: a keyword's online help, the
// declaration of a project symbol, or likely keywords for an unknown word.
func (s *Service) Hover(ctx context.Context, doc Document, pos protocol.Position) *protocol.Hover {
	word, rng := doc.WordAt(pos)
	if word == "" {
		return nil
	}

	kw, isKeyword := s.keywords.Lookup(word)
	if isKeyword && kw.HasHelp {
		if page, err := s.help.Page(ctx, kw.Name); err == nil {
			return &protocol.Hover{Contents: markdown(helpMarkdown(page)), Range: &rng}
		}
	}

	if sym := s.lookup(doc, pos, rng, word); sym != nil {
		return &protocol.Hover{Contents: markdown("```csharp\n" + describe(sym) + "\n```"), Range: &rng}
	}

	if isKeyword {
		return &protocol.Hover{Contents: markdown("**" + kw.Name + "**: " + kw.Type), Range: &rng}
	}

	suggestions := s.keywords.Suggest(word, maxSuggestions)
	if len(suggestions) == 0 {
		return nil
	}
	names := make([]string, len(suggestions))
	for i, sug := range suggestions {
		names[i] = "`" + sug.Name + "`"
	}
	return &protocol.Hover{
		Contents: markdown("Unknown identifier `" + word + "`. Did you mean " + strings.Join(names, ", ") + "?"),
		Range:    &rng,
	}
}

// lookup finds the symbol a word names: a member when a "." precedes it,
// otherwise a local of the enclosing block or a project object.
func (s *Service) lookup(doc Document, pos protocol.Position, rng protocol.Range, word string) *symbols.Symbol {
	before := doc.Prefix(rng.Start)
	if strings.HasSuffix(before, ".") {
		owner := s.index.ResolveChain(doc.URI, toPosition(pos), before)
		if owner == nil {
			return nil
		}
		typ := owner
		if !symbols.IsType(owner) {
			typ = s.index.TypeOf(doc.URI, owner)
		}
		if typ == nil {
			return nil
		}
		return typ.Child(word)
	}
	if scope := s.index.SymbolAt(doc.URI, toPosition(pos)); scope != nil {
		if local := scope.Child(word); local != nil {
			return local
		}
	}
	return symbols.Find(s.index.Objects(doc.URI), word)
}

func describe(sym *symbols.Symbol) string {
	switch {
	case isCallable(sym):
		return symbols.DescribeFunction(sym)
	case symbols.IsType(sym):
		return strings.ToLower(sym.Kind.String()) + " " + sym.Name
	case sym.Kind == symbols.Constant:
		return "const " + strings.TrimSpace(sym.DataType+" "+sym.Name)
	}
	return strings.TrimSpace(sym.DataType + " " + sym.Name)
}

func markdown(value string) protocol.MarkupContent {
	return protocol.MarkupContent{Kind: protocol.Markdown, Value: value}
}

func helpMarkdown(page *help.Page) string {
	return page.Text() + "\n\n[" + page.Keyword + " online help](" + page.URL + ")"
}
