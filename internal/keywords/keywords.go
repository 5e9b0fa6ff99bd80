// Package keywords holds the built-in SIMPL+ vocabulary: declarations,
// statements, system functions, constants and built-in classes.
package keywords

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

//go:embed keywords.csv
var keywordsCSV string

// Kind classifies a keyword the way editors present it.
type Kind int

const (
	KindKeyword Kind = iota
	KindClass
	KindFunction
	KindConstant
	KindVariable
	KindMethod
)

var kindNames = map[Kind]string{
	KindKeyword:  "Keyword",
	KindClass:    "Class",
	KindFunction: "Function",
	KindConstant: "Constant",
	KindVariable: "Variable",
	KindMethod:   "Method",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown keyword kind %q", s)
}

// Keyword is one entry of the table. Type is a category such as
// "Statement" or "Input Declaration" for keywords, and the return type for
// functions.
type Keyword struct {
	Name    string
	Kind    Kind
	Type    string
	HasHelp bool
}

// Table is an immutable keyword table.
type Table struct {
	all    []Keyword
	byName map[string]int
}

// Load parses the bundled keyword table.
func Load() (*Table, error) {
	return Parse(strings.NewReader(keywordsCSV))
}

// Parse reads a name,kind,type,hasHelp table. A header row and rows with
// the wrong number of fields are skipped.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	t := &Table{byName: make(map[string]int)}
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading keywords: %w", err)
		}
		if len(rec) != 4 || (line == 1 && strings.EqualFold(rec[0], "name")) {
			continue
		}

		kind, err := ParseKind(rec[1])
		if err != nil {
			return nil, fmt.Errorf("keywords line %d: %w", line, err)
		}
		kw := Keyword{
			Name:    strings.TrimSpace(rec[0]),
			Kind:    kind,
			Type:    strings.TrimSpace(rec[2]),
			HasHelp: strings.TrimSpace(rec[3]) == "true",
		}
		key := strings.ToLower(kw.Name)
		if _, dup := t.byName[key]; dup {
			continue
		}
		t.byName[key] = len(t.all)
		t.all = append(t.all, kw)
	}
	return t, nil
}

// Lookup finds a keyword by name, ignoring case.
func (t *Table) Lookup(name string) (Keyword, bool) {
	i, ok := t.byName[strings.ToLower(name)]
	if !ok {
		return Keyword{}, false
	}
	return t.all[i], true
}

// Canonical returns the canonical spelling of word and whether it is a
// constant. It lets the table drive keyword case normalization.
func (t *Table) Canonical(word string) (string, bool, bool) {
	kw, ok := t.Lookup(word)
	return kw.Name, kw.Kind == KindConstant, ok
}

// All returns every keyword in table order.
func (t *Table) All() []Keyword {
	return append([]Keyword(nil), t.all...)
}

// ByKind returns keywords of the given kinds, grouped in argument order.
func (t *Table) ByKind(kinds ...Kind) []Keyword {
	var out []Keyword
	for _, k := range kinds {
		for _, kw := range t.all {
			if kw.Kind == k {
				out = append(out, kw)
			}
		}
	}
	return out
}

// ByType returns keywords whose type is one of types, in table order.
func (t *Table) ByType(types ...string) []Keyword {
	var out []Keyword
	for _, kw := range t.all {
		for _, typ := range types {
			if kw.Type == typ {
				out = append(out, kw)
				break
			}
		}
	}
	return out
}

// Counts returns the number of keywords per kind.
func (t *Table) Counts() map[Kind]int {
	counts := make(map[Kind]int)
	for _, kw := range t.all {
		counts[kw.Kind]++
	}
	return counts
}

// suggestThreshold is the minimum Jaro-Winkler similarity for Suggest.
const suggestThreshold = 0.8

// Suggest returns up to n keywords that look like word, best first.
func (t *Table) Suggest(word string, n int) []Keyword {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" || n <= 0 {
		return nil
	}

	type scored struct {
		kw    Keyword
		score float32
	}
	var matches []scored
	for _, kw := range t.all {
		score, err := edlib.StringsSimilarity(word, strings.ToLower(kw.Name), edlib.JaroWinkler)
		if err != nil || score < suggestThreshold {
			continue
		}
		matches = append(matches, scored{kw, score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].kw.Name < matches[j].kw.Name
	})

	if len(matches) > n {
		matches = matches[:n]
	}
	out := make([]Keyword, len(matches))
	for i, m := range matches {
		out[i] = m.kw
	}
	return out
}
