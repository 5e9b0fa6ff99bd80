// Package symbols builds the SIMPL+ symbol model: a per-file tree of
// variables, constants, functions, events and structures extracted from
// classified tokens, plus classes, enums and delegates parsed from generated
// API files.
//
// A Tree is an arena. Symbols refer to their parent and children by ID, and a
// Tree is never mutated once built; rebuilding a file produces a new Tree.
package symbols

import "strings"

// Kind classifies a symbol.
type Kind int

const (
	Variable Kind = iota
	Constant
	Function
	Event
	Struct
	Enum
	EnumMember
	Class
	TypeParameter
	Property
	Method
)

var kindNames = [...]string{
	Variable:      "Variable",
	Constant:      "Constant",
	Function:      "Function",
	Event:         "Event",
	Struct:        "Struct",
	Enum:          "Enum",
	EnumMember:    "EnumMember",
	Class:         "Class",
	TypeParameter: "TypeParameter",
	Property:      "Property",
	Method:        "Method",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// ParseKind maps a kind name, case-insensitively, to a Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return Kind(k), true
		}
	}
	return 0, false
}

// Position is a zero based line/column pair.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Before reports whether p sorts strictly before q.
func (p Position) Before(q Position) bool {
	return p.Line < q.Line || (p.Line == q.Line && p.Character < q.Character)
}

// Range is a span of source text.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether p lies within r, both ends inclusive.
func (r Range) Contains(p Position) bool {
	return !p.Before(r.Start) && !r.End.Before(p)
}

// ID identifies a symbol within its Tree.
type ID int

// NoParent is the parent ID of root symbols.
const NoParent ID = -1

// Symbol is one named construct. Treat it as read-only.
type Symbol struct {
	Name      string
	Kind      Kind
	NameRange Range
	DataType  string
	Modifier  string
	Block     *Range // body, or the whole parameter list for parameters
	URI       string

	id       ID
	parent   ID
	children []ID
	tree     *Tree
}

// ID returns the symbol's arena index.
func (s *Symbol) ID() ID { return s.id }

// Tree returns the tree owning s.
func (s *Symbol) Tree() *Tree { return s.tree }

// Parent returns the enclosing symbol, or nil for a root.
func (s *Symbol) Parent() *Symbol {
	if s.parent == NoParent {
		return nil
	}
	return s.tree.Get(s.parent)
}

// Children returns nested symbols in declaration order.
func (s *Symbol) Children() []*Symbol {
	out := make([]*Symbol, len(s.children))
	for i, id := range s.children {
		out[i] = s.tree.Get(id)
	}
	return out
}

// Child returns the first child named name, ignoring case.
func (s *Symbol) Child(name string) *Symbol {
	for _, id := range s.children {
		if c := s.tree.Get(id); strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// Params returns the parameter children, placeholder included.
func (s *Symbol) Params() []*Symbol {
	var out []*Symbol
	for _, id := range s.children {
		if c := s.tree.Get(id); c.Kind == TypeParameter {
			out = append(out, c)
		}
	}
	return out
}

// InParameters reports whether pos lies inside s's parameter list.
func (s *Symbol) InParameters(pos Position) bool {
	for _, p := range s.Params() {
		if p.Block != nil && p.Block.Contains(pos) {
			return true
		}
	}
	return false
}

// Tree is the symbol arena for one source artifact.
type Tree struct {
	uri   string
	nodes []Symbol
	roots []ID
}

// URI identifies the artifact the tree was built from.
func (t *Tree) URI() string { return t.uri }

// Len is the number of symbols, nested ones included.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Get returns the symbol with the given ID, or nil.
func (t *Tree) Get(id ID) *Symbol {
	if t == nil || id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id]
}

// Roots returns the top-level symbols in extraction order.
func (t *Tree) Roots() []*Symbol {
	if t == nil {
		return nil
	}
	out := make([]*Symbol, len(t.roots))
	for i, id := range t.roots {
		out[i] = &t.nodes[id]
	}
	return out
}

// Walk visits every symbol depth first. Returning false from fn skips the
// symbol's children.
func (t *Tree) Walk(fn func(s *Symbol) bool) {
	var visit func(ids []ID)
	visit = func(ids []ID) {
		for _, id := range ids {
			s := &t.nodes[id]
			if fn(s) {
				visit(s.children)
			}
		}
	}
	if t != nil {
		visit(t.roots)
	}
}

// EmptyTree returns a tree with no symbols.
func EmptyTree(uri string) *Tree {
	return &Tree{uri: uri}
}

type builder struct {
	t *Tree
}

func newBuilder(uri string) *builder {
	return &builder{t: &Tree{uri: uri}}
}

// add appends s under parent and returns its ID.
func (b *builder) add(parent ID, s Symbol) ID {
	id := ID(len(b.t.nodes))
	s.id = id
	s.parent = parent
	s.children = nil
	s.tree = b.t
	s.URI = b.t.uri
	b.t.nodes = append(b.t.nodes, s)
	if parent == NoParent {
		b.t.roots = append(b.t.roots, id)
	} else {
		b.t.nodes[parent].children = append(b.t.nodes[parent].children, id)
	}
	return id
}

func (b *builder) setBlock(id ID, r Range) {
	b.t.nodes[id].Block = &r
}

func (b *builder) tree() *Tree {
	return b.t
}
