package features

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"splusls/internal/help"
	"splusls/internal/keywords"
	"splusls/internal/symbols"
)

var (
	eventLineRe    = regexp.MustCompile(`(push|release|change|event)`)
	socketLineRe   = regexp.MustCompile(`(socketconnect|socketdisconnect|socketstatus|socketreceive)`)
	expressionRe   = regexp.MustCompile(`[=(\[]`)
	libraryQuoteRe = regexp.MustCompile(`(?i)#USER_LIBRARY\s"$`)
	apiQuoteRe     = regexp.MustCompile(`(?i)#USER_SIMPLSHARP_LIBRARY\s"$`)
	socketTypeRe   = regexp.MustCompile(`(tcp_client|tcp_server|udp_socket)`)
)

// keyword categories offered in each context
var (
	rootTypes      = []string{"Class", "Declaration", "Global Declaration", "Input Declaration", "Output Declaration", "Parameter Declaration", "Function Declaration", "Variable Declaration", "Modifier", "Structure"}
	parameterTypes = []string{"Modifier", "Variable Declaration"}
	bodyTypes      = []string{"Modifier", "Variable Declaration", "Global Declaration", "Statement"}
)

var triggerParameterHints = protocol.Command{
	Title:   "triggerSignatureHelp",
	Command: "editor.action.triggerParameterHints",
}

// completionData travels in CompletionItem.Data so resolve knows the
// document an item was offered in.
type completionData struct {
	URI string `json:"uri"`
}

// Complete returns the completion items for pos. A position after "." lists
// members of the resolved chain, a position inside the quotes of a library
// directive lists library files, and anything else is answered from the
// enclosing block.
func (s *Service) Complete(ctx context.Context, doc Document, pos protocol.Position) []protocol.CompletionItem {
	linePrefix := doc.LinePrefix(pos)
	before := trimWord(linePrefix)
	switch {
	case strings.HasSuffix(before, `"`):
		return s.completeFiles(doc, before)
	case strings.HasSuffix(before, "."):
		return s.completeMembers(doc, pos)
	}
	return s.completeInContext(doc, pos, linePrefix)
}

func (s *Service) completeInContext(doc Document, pos protocol.Position, linePrefix string) []protocol.CompletionItem {
	block := s.index.SymbolAt(doc.URI, toPosition(pos))
	var items []protocol.CompletionItem
	if block == nil {
		lower := strings.ToLower(linePrefix)
		switch {
		case eventLineRe.MatchString(lower):
			items = s.symbolItems(doc.URI, s.ownVariables(doc.URI, func(dataType string) bool {
				return strings.Contains(dataType, "input")
			}))
		case socketLineRe.MatchString(lower):
			items = s.symbolItems(doc.URI, s.ownVariables(doc.URI, socketTypeRe.MatchString))
		default:
			items = append(s.keywordItems(s.keywords.ByType(rootTypes...)),
				s.symbolItems(doc.URI, s.objectsOfKind(doc.URI, symbols.Struct, symbols.Class))...)
		}
		return s.tag(items, doc.URI)
	}

	switch block.Kind {
	case symbols.Function, symbols.Event:
		if block.InParameters(toPosition(pos)) {
			return s.tag(s.keywordItems(s.keywords.ByType(parameterTypes...)), doc.URI)
		}
		items = s.symbolItems(doc.URI, block.Children())
		if expressionRe.MatchString(linePrefix) {
			items = append(items, s.keywordItems(s.expressionKeywords())...)
			items = append(items, s.symbolItems(doc.URI, s.filterObjects(doc.URI, func(o *symbols.Symbol) bool {
				return !isCallable(o) || !strings.EqualFold(o.DataType, "void")
			}))...)
		} else {
			items = append(items, s.keywordItems(s.statementKeywords())...)
			items = append(items, s.symbolItems(doc.URI, s.filterObjects(doc.URI, func(o *symbols.Symbol) bool {
				if o.Kind == symbols.Constant {
					return false
				}
				return !isCallable(o) || strings.EqualFold(o.DataType, "void")
			}))...)
		}
	case symbols.Struct:
		// members may themselves be structures or classes
		items = append(s.symbolItems(doc.URI, s.objectsOfKind(doc.URI, symbols.Struct, symbols.Class)),
			s.keywordItems(s.keywords.ByType(parameterTypes...))...)
	default:
		items = s.keywordItems(s.keywords.ByType(rootTypes...))
	}
	return s.tag(items, doc.URI)
}

// expressionKeywords are statements plus built-ins that yield a value.
func (s *Service) expressionKeywords() []keywords.Keyword {
	out := s.keywords.ByType("Statement")
	for _, kw := range s.keywords.ByKind(keywords.KindFunction, keywords.KindVariable, keywords.KindConstant) {
		if kw.Type != "void" {
			out = append(out, kw)
		}
	}
	return out
}

// statementKeywords are declarations, statements and void built-ins.
func (s *Service) statementKeywords() []keywords.Keyword {
	out := s.keywords.ByType(bodyTypes...)
	for _, kw := range s.keywords.ByKind(keywords.KindFunction, keywords.KindClass, keywords.KindVariable) {
		if kw.Type == "void" {
			out = append(out, kw)
		}
	}
	return out
}

// ownVariables returns the program's own root variables whose lowercase
// data type satisfies match.
func (s *Service) ownVariables(docURI string, match func(dataType string) bool) []*symbols.Symbol {
	var out []*symbols.Symbol
	for _, r := range s.index.Program(docURI).Roots() {
		if r.Kind == symbols.Variable && match(strings.ToLower(r.DataType)) {
			out = append(out, r)
		}
	}
	return out
}

// objectsOfKind returns project objects grouped in kinds order.
func (s *Service) objectsOfKind(docURI string, kinds ...symbols.Kind) []*symbols.Symbol {
	objects := s.index.Objects(docURI)
	var out []*symbols.Symbol
	for _, k := range kinds {
		for _, o := range objects {
			if o.Kind == k {
				out = append(out, o)
			}
		}
	}
	return out
}

func (s *Service) filterObjects(docURI string, keep func(*symbols.Symbol) bool) []*symbols.Symbol {
	var out []*symbols.Symbol
	for _, o := range s.index.Objects(docURI) {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

// completeMembers lists the members reachable through the chain before
// the cursor: a type's own members, the members of a variable's project
// type, or the members of a built-in type.
func (s *Service) completeMembers(doc Document, pos protocol.Position) []protocol.CompletionItem {
	target := s.index.ResolveChain(doc.URI, toPosition(pos), trimWord(doc.Prefix(pos)))
	if target == nil {
		return nil
	}
	if symbols.IsType(target) {
		return s.symbolItems(doc.URI, target.Children())
	}
	if typ := s.index.TypeOf(doc.URI, target); typ != nil {
		return s.symbolItems(doc.URI, typ.Children())
	}
	var items []protocol.CompletionItem
	for _, m := range keywords.Members(target.DataType) {
		items = append(items, protocol.CompletionItem{
			Label:  m.Name,
			Kind:   keywordCompletionKind(m.Kind),
			Detail: m.Type,
		})
	}
	return items
}

// completeFiles lists library files next to the document for the library
// directive whose opening quote ends linePrefix.
func (s *Service) completeFiles(doc Document, linePrefix string) []protocol.CompletionItem {
	var ext string
	switch {
	case libraryQuoteRe.MatchString(linePrefix):
		ext = ".usl"
	case apiQuoteRe.MatchString(linePrefix):
		ext = ".clz"
	default:
		return nil
	}
	dir, ok := documentDir(doc.URI)
	if !ok {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Debug("failed to list libraries", "dir", dir, "error", err)
		return nil
	}
	var items []protocol.CompletionItem
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       protocol.CompletionItemKindFile,
			InsertText: strings.TrimSuffix(name, filepath.Ext(name)),
		})
	}
	return items
}

func documentDir(docURI string) (string, bool) {
	u, err := url.Parse(docURI)
	if err != nil || u.Scheme != uri.FileScheme {
		return "", false
	}
	return filepath.Dir(uri.URI(docURI).Filename()), true
}

// symbolItems converts symbols to items. Symbols from other artifacts get
// the artifact name in front of their type.
func (s *Service) symbolItems(docURI string, list []*symbols.Symbol) []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(list))
	for _, sym := range list {
		if sym.Name == "" {
			continue
		}
		detail := sym.DataType
		if sym.URI != docURI {
			if name := artifactName(sym.URI); name != "" {
				detail = name + ": " + detail
			}
		}
		item := protocol.CompletionItem{
			Label:  sym.Name,
			Kind:   completionKind(sym.Kind),
			Detail: detail,
		}
		if isCallable(sym) {
			item.Documentation = markdown("```csharp\n" + symbols.DescribeFunction(sym) + "\n```")
			item.InsertText = callSnippet(sym.Name, paramNames(sym))
			item.InsertTextFormat = protocol.InsertTextFormatSnippet
			cmd := triggerParameterHints
			item.Command = &cmd
		}
		items = append(items, item)
	}
	return items
}

func (s *Service) keywordItems(list []keywords.Keyword) []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(list))
	for _, kw := range list {
		detail := "BuiltIn: " + kw.Type
		if kw.Kind == keywords.KindKeyword {
			detail = "Keyword: " + kw.Type
		}
		item := protocol.CompletionItem{
			Label:  strings.TrimPrefix(kw.Name, "#"),
			Kind:   keywordCompletionKind(kw.Kind),
			Detail: detail,
		}
		if kw.Kind == keywords.KindFunction {
			cmd := triggerParameterHints
			item.Command = &cmd
		}
		items = append(items, item)
	}
	return items
}

func (s *Service) tag(items []protocol.CompletionItem, docURI string) []protocol.CompletionItem {
	for i := range items {
		items[i].Data = completionData{URI: docURI}
	}
	return items
}

// ResolveCompletion fills in the signature of a project function, or the
// online help of a keyword, for an item returned by Complete.
func (s *Service) ResolveCompletion(ctx context.Context, item protocol.CompletionItem) protocol.CompletionItem {
	var data completionData
	if raw, err := json.Marshal(item.Data); err == nil {
		_ = json.Unmarshal(raw, &data)
	}

	if fn := s.projectFunction(data.URI, item.Label); fn != nil {
		item.Detail = symbols.DescribeFunction(fn)
		return item
	}

	kw, ok := s.keywords.Lookup(item.Label)
	if !ok {
		kw, ok = s.keywords.Lookup("#" + item.Label)
	}
	if !ok || !kw.HasHelp {
		return item
	}
	page, err := s.help.Page(ctx, kw.Name)
	if err != nil {
		return item
	}
	item.Documentation = markdown(helpMarkdown(page))
	if kw.Kind == keywords.KindFunction {
		if fn, err := help.ParseFunction(kw.Name, page.Text()); err == nil {
			item.Detail = fn.String()
			names := make([]string, len(fn.Params))
			for i, p := range fn.Params {
				names[i] = p.Name
			}
			item.InsertText = callSnippet(kw.Name, names)
			item.InsertTextFormat = protocol.InsertTextFormatSnippet
		}
	}
	return item
}

// projectFunction finds a root function visible from the document.
func (s *Service) projectFunction(docURI, name string) *symbols.Symbol {
	if docURI == "" {
		return nil
	}
	for _, o := range s.index.Objects(docURI) {
		if isCallable(o) && strings.EqualFold(o.Name, name) {
			return o
		}
	}
	return nil
}

func paramNames(fn *symbols.Symbol) []string {
	var names []string
	for _, p := range fn.Params() {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return names
}

var snippetEscaper = strings.NewReplacer(`\`, `\\`, `$`, `\$`, `}`, `\}`)

// callSnippet renders name(${1:a}, ${2:b}), or name($1) without parameters.
func callSnippet(name string, params []string) string {
	var sb strings.Builder
	sb.WriteString(snippetEscaper.Replace(name))
	sb.WriteString("(")
	if len(params) == 0 {
		sb.WriteString("$1")
	}
	for i, p := range params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("${")
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(":")
		sb.WriteString(snippetEscaper.Replace(p))
		sb.WriteString("}")
	}
	sb.WriteString(")")
	return sb.String()
}
