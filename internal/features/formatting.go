package features

import (
	"unicode/utf8"

	"go.lsp.dev/protocol"

	"splusls/internal/format"
)

// Format returns a single edit replacing the document with its formatted
// text, or nothing when the text is already formatted.
func (s *Service) Format(doc Document) []protocol.TextEdit {
	formatted := format.Format(doc.Text, s.format)
	if formatted == doc.Text {
		return nil
	}
	lines := doc.Lines()
	var end protocol.Position
	if n := len(lines); n > 0 {
		end = protocol.Position{
			Line:      uint32(n - 1),
			Character: uint32(utf8.RuneCountInString(lines[n-1])),
		}
	}
	return []protocol.TextEdit{{
		Range:   protocol.Range{End: end},
		NewText: formatted,
	}}
}
