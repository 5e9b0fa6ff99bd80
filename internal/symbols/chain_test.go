package symbols

import (
	"reflect"
	"testing"

	"splusls/internal/lexer"
)

func TestChain(t *testing.T) {
	full := []string{"testFunction", "test2", "testStr1", "intField"}
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "member access",
			text: `            async  testFunction (something, something, something)
            .test2.
            testStr1(   testasdf  ,   asdf ).
            intField.`,
			want: full,
		},
		{
			name: "call position",
			text: `            async  testFunction (something, something, something)
            .test2.
            testStr1(   testasdf  ,   asdf ).
            intField  (`,
			want: full,
		},
		{
			name: "assignment prefix",
			text: `            async =  testFunction (something, something, something)
            .test2.
            testStr1(   testasdf  ,   asdf ).
            intField.`,
			want: full,
		},
		{
			name: "indexed segments",
			text: `            async =  testFunction (something, something, something)
            .test2[2].
            testStr1[3](   testasdf  ,   asdf ).
            intField.`,
			want: full,
		},
		{
			name: "unfinished",
			text: `            async =  testFunction (something, something, something)
            .test2[2].
            testStr1[3](   testasdf  ,   asdf ).
            intField`,
			want: nil,
		},
		{
			name: "no chain",
			text: `            async test test`,
			want: nil,
		},
		{
			name: "single element",
			text: `            async test test   .`,
			want: []string{"test"},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
		{
			name: "lone dot",
			text: "  .",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chain(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Chain() = %q, want %q", got, tt.want)
			}
		})
	}
}

const nestedProgram = `STRUCTURE inner
{
	INTEGER value;
};
STRUCTURE outer
{
	inner child;
	STRING label[20];
};
outer top;
FUNCTION run(outer arg)
{
	inner local;
}
`

func TestResolve(t *testing.T) {
	roots := Extract(testURI, lexer.Scan(nestedProgram)).Roots()
	run := Find(roots, "run")
	if run == nil {
		t.Fatal("run not extracted")
	}

	tests := []struct {
		name  string
		scope *Symbol
		chain []string
		want  string
		kind  Kind
	}{
		{"global two levels", nil, []string{"top", "child", "value"}, "value", Variable},
		{"global one level", nil, []string{"top", "label"}, "label", Variable},
		{"ignores case", nil, []string{"TOP", "Child"}, "child", Variable},
		{"parameter", run, []string{"arg", "label"}, "label", Variable},
		{"local", run, []string{"local", "value"}, "value", Variable},
		{"global from function", run, []string{"top", "child"}, "child", Variable},
		{"single", nil, []string{"top"}, "top", Variable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.scope, roots, tt.chain)
			if got == nil {
				t.Fatalf("Resolve(%q) = nil", tt.chain)
			}
			if got.Name != tt.want || got.Kind != tt.kind {
				t.Errorf("Resolve(%q) = %s %v, want %s %v", tt.chain, got.Name, got.Kind, tt.want, tt.kind)
			}
		})
	}

	unresolved := [][]string{
		nil,
		{"nothing"},
		{"top", "missing"},
		{"top", "label", "length"},
		{"run", "arg"},
	}
	for _, chain := range unresolved {
		if got := Resolve(run, roots, chain); got != nil {
			t.Errorf("Resolve(%q) = %s, want nil", chain, got.Name)
		}
	}
}

func TestResolveEnumMember(t *testing.T) {
	roots := ParseAPI("file:///Lib.api", sampleAPI).Roots()
	got := Resolve(nil, roots, []string{"color", "green"})
	if got == nil || got.Kind != EnumMember || got.DataType != "Color.Green" {
		t.Fatalf("Resolve() = %+v, want Color.Green", got)
	}
}

func TestTypeOf(t *testing.T) {
	roots := Extract(testURI, lexer.Scan(nestedProgram)).Roots()
	top := Find(roots, "top")
	if typ := TypeOf(roots, top); typ == nil || typ.Name != "outer" {
		t.Errorf("TypeOf(top) = %v, want outer", typ)
	}
	run := Find(roots, "run")
	if typ := TypeOf(roots, run); typ != nil {
		t.Errorf("TypeOf(run) = %s, want nil", typ.Name)
	}
	if typ := TypeOf(roots, nil); typ != nil {
		t.Error("TypeOf(nil) should be nil")
	}
}

func TestAt(t *testing.T) {
	roots := Extract(testURI, lexer.Scan(nestedProgram)).Roots()

	tests := []struct {
		name string
		pos  Position
		want string
	}{
		{"function body", Position{Line: 12, Character: 2}, "run"},
		{"function closing brace", Position{Line: 13, Character: 0}, "run"},
		{"structure body", Position{Line: 2, Character: 3}, "inner"},
		{"parameter list", Position{Line: 10, Character: 15}, "run"},
		{"global statement", Position{Line: 9, Character: 2}, ""},
		{"past the end", Position{Line: 40, Character: 0}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := At(roots, tt.pos)
			name := ""
			if got != nil {
				name = got.Name
			}
			if name != tt.want {
				t.Errorf("At(%+v) = %q, want %q", tt.pos, name, tt.want)
			}
		})
	}
}

func TestRangeContains(t *testing.T) {
	r := rng(1, 4, 3, 2)
	tests := []struct {
		pos  Position
		want bool
	}{
		{Position{Line: 1, Character: 4}, true},
		{Position{Line: 3, Character: 2}, true},
		{Position{Line: 2, Character: 0}, true},
		{Position{Line: 1, Character: 3}, false},
		{Position{Line: 3, Character: 3}, false},
		{Position{Line: 0, Character: 9}, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.pos); got != tt.want {
			t.Errorf("Contains(%+v) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}
