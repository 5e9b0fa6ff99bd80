package features

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.lsp.dev/protocol"

	"splusls/internal/symbols"
)

// workspaceLimit caps workspace symbol results.
const workspaceLimit = 100

// DocumentSymbols returns the outline of an open program.
func (s *Service) DocumentSymbols(docURI string) []protocol.DocumentSymbol {
	return documentSymbols(s.index.Program(docURI).Roots())
}

func documentSymbols(list []*symbols.Symbol) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(list))
	for _, sym := range list {
		if sym.Name == "" {
			continue
		}
		full := sym.NameRange
		if sym.Block != nil && sym.Kind != symbols.TypeParameter && full.End.Before(sym.Block.End) {
			full.End = sym.Block.End
		}
		out = append(out, protocol.DocumentSymbol{
			Name:           sym.Name,
			Detail:         sym.DataType,
			Kind:           symbolKind(sym.Kind),
			Range:          fromRange(full),
			SelectionRange: fromRange(sym.NameRange),
			Children:       documentSymbols(sym.Children()),
		})
	}
	return out
}

// WorkspaceSymbols finds symbols whose name contains query. The catalog
// covers every indexed file; without one only open programs are searched.
func (s *Service) WorkspaceSymbols(ctx context.Context, query string) ([]protocol.SymbolInformation, error) {
	if s.catalog == nil {
		return s.openSymbols(query), nil
	}
	entries, err := s.catalog.Find(ctx, query, "", workspaceLimit)
	if err != nil {
		return nil, err
	}
	out := make([]protocol.SymbolInformation, 0, len(entries))
	for _, e := range entries {
		kind, _ := symbols.ParseKind(e.Kind)
		start := protocol.Position{Line: uint32(e.Line), Character: uint32(e.Column)}
		end := start
		end.Character += uint32(utf8.RuneCountInString(e.Name))
		out = append(out, protocol.SymbolInformation{
			Name: e.Name,
			Kind: symbolKind(kind),
			Location: protocol.Location{
				URI:   protocol.DocumentURI(e.URI),
				Range: protocol.Range{Start: start, End: end},
			},
			ContainerName: e.Container,
		})
	}
	return out, nil
}

func (s *Service) openSymbols(query string) []protocol.SymbolInformation {
	query = strings.ToLower(query)
	var out []protocol.SymbolInformation
	for _, docURI := range s.index.Programs() {
		tree := s.index.Program(docURI)
		if tree == nil {
			continue
		}
		tree.Walk(func(sym *symbols.Symbol) bool {
			if len(out) >= workspaceLimit {
				return false
			}
			if sym.Name == "" || !strings.Contains(strings.ToLower(sym.Name), query) {
				return true
			}
			info := protocol.SymbolInformation{
				Name: sym.Name,
				Kind: symbolKind(sym.Kind),
				Location: protocol.Location{
					URI:   protocol.DocumentURI(docURI),
					Range: fromRange(sym.NameRange),
				},
			}
			if p := sym.Parent(); p != nil {
				info.ContainerName = p.Name
			}
			out = append(out, info)
			return true
		})
	}
	return out
}
