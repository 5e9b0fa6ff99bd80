package symbols

import (
	"strings"
	"testing"
)

const sampleAPI = `namespace Lib;
{
    class Widget
    {
        // class delegates
        delegate FUNCTION OnDone ( INTEGER code );

        // class events
        EventHandler Changed ( Widget sender, EventArgs e );

        // class functions
        INTEGER_FUNCTION Compute ( INTEGER a, STRING b );
        FUNCTION Reset ();
        FUNCTION Odd ( ByRef STRING s, a b c d, INTEGER ok );

        // class variables
        INTEGER Count;
        STRING Names[];

        // class properties
        INTEGER Level;
        STRING Label[];
    };

    enum Color
    {
        Red,
        Green = 2,
        Blue,
    };
}
`

// at returns the position of the first occurrence of needle in text.
func at(t *testing.T, text, needle string) Position {
	t.Helper()
	off := strings.Index(text, needle)
	if off < 0 {
		t.Fatalf("%q not in text", needle)
	}
	return newLineIndex(text).position(off)
}

func TestParseAPIClass(t *testing.T) {
	tree := ParseAPI("file:///Lib.api", sampleAPI)
	roots := tree.Roots()
	if len(roots) != 2 {
		t.Fatalf("ParseAPI() returned %d roots, want 2", len(roots))
	}

	widget := roots[0]
	if widget.Name != "Widget" || widget.Kind != Class {
		t.Fatalf("roots[0] = %s %v, want Widget Class", widget.Name, widget.Kind)
	}
	if widget.NameRange.Start != at(t, sampleAPI, "Widget") {
		t.Errorf("Widget NameRange = %+v", widget.NameRange)
	}
	if widget.Block == nil || !widget.Block.Contains(at(t, sampleAPI, "Count")) {
		t.Errorf("Widget Block = %v, should contain its members", widget.Block)
	}

	type member struct {
		name     string
		kind     Kind
		dataType string
		modifier string
		params   int
	}
	want := []member{
		{"Changed", Event, "void", "", 2},
		{"OnDone", Class, "FUNCTION", "delegate", 1},
		{"Compute", Function, "INTEGER", "", 2},
		{"Reset", Function, "void", "", 0},
		{"Odd", Function, "void", "", 2},
		{"Count", Variable, "INTEGER", "", 0},
		{"Names", Variable, "STRING", "", 0},
		{"Level", Property, "INTEGER", "", 0},
		{"Label", Property, "STRING", "", 0},
	}
	children := widget.Children()
	if len(children) != len(want) {
		var names []string
		for _, c := range children {
			names = append(names, c.Name)
		}
		t.Fatalf("Widget children = %v, want %d", names, len(want))
	}
	for i, w := range want {
		c := children[i]
		if c.Name != w.name || c.Kind != w.kind || c.DataType != w.dataType || c.Modifier != w.modifier {
			t.Errorf("children[%d] = %s %v %q %q, want %+v", i, c.Name, c.Kind, c.DataType, c.Modifier, w)
		}
		if got := len(c.Params()); got != w.params {
			t.Errorf("%s has %d params, want %d", c.Name, got, w.params)
		}
		if c.Parent() != widget {
			t.Errorf("%s parent should be Widget", c.Name)
		}
		if c.URI != "file:///Lib.api" {
			t.Errorf("%s URI = %q", c.Name, c.URI)
		}
	}
}

func TestParseAPIParameters(t *testing.T) {
	widget := ParseAPI("file:///Lib.api", sampleAPI).Roots()[0]

	compute := widget.Child("Compute")
	params := compute.Params()
	if params[0].Name != "a" || params[0].DataType != "INTEGER" {
		t.Errorf("params[0] = %s %s", params[0].DataType, params[0].Name)
	}
	if params[1].Name != "b" || params[1].DataType != "STRING" {
		t.Errorf("params[1] = %s %s", params[1].DataType, params[1].Name)
	}
	if params[0].Block == nil || !params[0].Block.Contains(params[1].NameRange.Start) {
		t.Error("parameter block should span the whole list")
	}
	if params[1].NameRange.Start != at(t, sampleAPI, "b );") {
		t.Errorf("b NameRange = %+v", params[1].NameRange)
	}
	if got := DescribeFunction(compute); got != "INTEGER Compute(INTEGER a, STRING b)" {
		t.Errorf("DescribeFunction() = %q", got)
	}

	odd := widget.Child("Odd").Params()
	if len(odd) != 2 || odd[0].Name != "s" || odd[0].DataType != "STRING" || odd[1].Name != "ok" {
		t.Errorf("Odd params = %+v", odd)
	}

	changed := widget.Child("Changed").Params()
	if changed[0].DataType != "Widget" || changed[1].Name != "e" {
		t.Errorf("Changed params = %+v", changed)
	}

	done := widget.Child("OnDone")
	if p := done.Params(); p[0].Parent() != done || p[0].Name != "code" {
		t.Errorf("OnDone params = %+v", p)
	}
}

func TestParseAPIEnum(t *testing.T) {
	color := ParseAPI("file:///Lib.api", sampleAPI).Roots()[1]
	if color.Name != "Color" || color.Kind != Enum {
		t.Fatalf("roots[1] = %s %v, want Color Enum", color.Name, color.Kind)
	}

	var got []string
	for _, m := range color.Children() {
		if m.Kind != EnumMember {
			t.Errorf("%s Kind = %v, want EnumMember", m.Name, m.Kind)
		}
		got = append(got, m.DataType)
	}
	want := []string{"Color.Red", "Color.Green", "Color.Blue"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("members = %v, want %v", got, want)
	}
	if green := color.Child("Green"); green.NameRange.Start != at(t, sampleAPI, "Green") {
		t.Errorf("Green NameRange = %+v", green.NameRange)
	}
}

func TestParseAPICRLF(t *testing.T) {
	lf := ParseAPI("file:///Lib.api", sampleAPI)
	crlf := ParseAPI("file:///Lib.api", strings.ReplaceAll(sampleAPI, "\n", "\r\n"))

	if lf.Len() != crlf.Len() {
		t.Fatalf("Len() = %d with CRLF, want %d", crlf.Len(), lf.Len())
	}
	for id := ID(0); int(id) < lf.Len(); id++ {
		a, b := lf.Get(id), crlf.Get(id)
		if a.Name != b.Name || a.NameRange != b.NameRange {
			t.Errorf("symbol %d: %s %+v with CRLF, want %s %+v", id, b.Name, b.NameRange, a.Name, a.NameRange)
		}
	}
}

func TestParseAPIEmpty(t *testing.T) {
	tests := []string{"", "namespace Empty;", "class {", "enum Broken {"}
	for _, text := range tests {
		tree := ParseAPI("file:///x.api", text)
		for _, r := range tree.Roots() {
			if len(r.Children()) != 0 {
				t.Errorf("ParseAPI(%q) root %s has children", text, r.Name)
			}
		}
	}
}

func TestLineIndexRunes(t *testing.T) {
	text := "héllo wörld\nnext"
	li := newLineIndex(text)
	if got := li.position(strings.Index(text, "wörld")); got != (Position{Line: 0, Character: 6}) {
		t.Errorf("position() = %+v, want 0:6", got)
	}
	if got := li.position(strings.Index(text, "next")); got != (Position{Line: 1, Character: 0}) {
		t.Errorf("position() = %+v, want 1:0", got)
	}
	if got := li.position(len(text) + 5); got != (Position{Line: 1, Character: 4}) {
		t.Errorf("position() past end = %+v, want 1:4", got)
	}
}
