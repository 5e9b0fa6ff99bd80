package features

import (
	"context"
	"regexp"
	"strings"

	"go.lsp.dev/protocol"

	"splusls/internal/keywords"
	"splusls/internal/symbols"
)

var callRe = regexp.MustCompile(`([\w][#$\w]*)\s*\(([^)]*)$`)

// SignatureHelp describes the call open before pos. Project functions are
// described from their declaration, system functions from online help.
func (s *Service) SignatureHelp(ctx context.Context, doc Document, pos protocol.Position) *protocol.SignatureHelp {
	m := callRe.FindStringSubmatch(doc.LinePrefix(pos))
	if m == nil {
		return nil
	}
	name, args := m[1], m[2]

	var sig protocol.SignatureInformation
	if fn := s.functionAt(doc, pos); fn != nil && strings.EqualFold(fn.Name, name) {
		sig.Label = symbols.DescribeFunction(fn)
		for _, p := range fn.Params() {
			if p.Name != "" {
				sig.Parameters = append(sig.Parameters, protocol.ParameterInformation{Label: p.DataType + " " + p.Name})
			}
		}
	} else {
		kw, ok := s.keywords.Lookup(name)
		if !ok || !kw.HasHelp || kw.Kind != keywords.KindFunction {
			return nil
		}
		fn, err := s.help.FunctionInfo(ctx, kw.Name)
		if err != nil {
			s.logger.Debug("no signature", "function", kw.Name, "error", err)
			return nil
		}
		sig.Label = fn.String()
		for _, p := range fn.Params {
			sig.Parameters = append(sig.Parameters, protocol.ParameterInformation{Label: p.Type + " " + p.Name})
		}
	}

	return &protocol.SignatureHelp{
		Signatures:      []protocol.SignatureInformation{sig},
		ActiveSignature: 0,
		ActiveParameter: uint32(strings.Count(args, ",")),
	}
}

// functionAt resolves the callee of the innermost "(" before pos.
func (s *Service) functionAt(doc Document, pos protocol.Position) *symbols.Symbol {
	prefix := doc.Prefix(pos)
	i := strings.LastIndex(prefix, "(")
	if i < 0 {
		return nil
	}
	target := s.index.ResolveChain(doc.URI, toPosition(pos), prefix[:i+1])
	if target == nil || !isCallable(target) {
		return nil
	}
	return target
}
