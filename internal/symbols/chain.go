package symbols

import (
	"regexp"
	"strings"
)

// chainSegmentRe matches the identifier ending a segment, allowing a trailing
// index and call suffix.
var chainSegmentRe = regexp.MustCompile(`([_\w][_#$\w]*)(?:\s*\[.*\])?(?:\s*\(.*\))?$`)

// Chain splits the text before the cursor into the identifiers of a member
// access chain. The text must end in "." (member completion) or "(" (call
// position, treated as if the call name were followed by a dot). Index and
// call suffixes are dropped: "a[1].b(x).c." gives [a b c]. The chain starts
// at the last segment that is not a bare identifier. Nil means no chain.
func Chain(text string) []string {
	if strings.HasSuffix(text, "(") {
		text = text[:len(text)-1] + "."
	}
	if !strings.HasSuffix(text, ".") {
		return nil
	}

	segments := strings.Split(text, ".")
	segments = segments[:len(segments)-1]

	var chain []string
	for i := len(segments) - 1; i >= 0; i-- {
		seg := strings.TrimSpace(segments[i])
		m := chainSegmentRe.FindStringSubmatchIndex(seg)
		if m == nil {
			break
		}
		chain = append(chain, seg[m[2]:m[3]])
		if m[0] != 0 {
			break
		}
	}
	if len(chain) == 0 {
		return nil
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Find returns the first symbol named name, ignoring case.
func Find(list []*Symbol, name string) *Symbol {
	for _, s := range list {
		if strings.EqualFold(s.Name, name) {
			return s
		}
	}
	return nil
}

// IsType reports whether s declares a type other symbols can refer to.
func IsType(s *Symbol) bool {
	switch s.Kind {
	case Struct, Class, Enum:
		return true
	}
	return false
}

// TypeOf returns the root structure, class or enum named by s's data type.
func TypeOf(roots []*Symbol, s *Symbol) *Symbol {
	if s == nil || s.DataType == "" {
		return nil
	}
	for _, r := range roots {
		if IsType(r) && strings.EqualFold(r.Name, s.DataType) {
			return r
		}
	}
	return nil
}

// Resolve walks chain from its first identifier: each following identifier
// is looked up among the members of the previous symbol's type. The first
// identifier is searched in scope's children (locals and parameters) before
// roots. Nil means the chain does not resolve.
func Resolve(scope *Symbol, roots []*Symbol, chain []string) *Symbol {
	if len(chain) == 0 {
		return nil
	}
	var cur *Symbol
	if scope != nil {
		cur = scope.Child(chain[0])
	}
	if cur == nil {
		cur = Find(roots, chain[0])
	}
	for _, name := range chain[1:] {
		if cur == nil {
			return nil
		}
		typ := cur
		if !IsType(cur) {
			typ = TypeOf(roots, cur)
		}
		if typ == nil {
			return nil
		}
		cur = typ.Child(name)
	}
	return cur
}

// At returns the root symbol whose body contains pos, or else the function
// whose parameter list contains it.
func At(roots []*Symbol, pos Position) *Symbol {
	for _, s := range roots {
		if s.Block != nil && s.Block.Contains(pos) {
			return s
		}
	}
	for _, s := range roots {
		if s.Kind == Function && s.InParameters(pos) {
			return s
		}
	}
	return nil
}
