package format

// BracketDelta returns the combined count of unmatched openers on a
// stripped line: braces, square brackets and parentheses all count alike.
func BracketDelta(code string) int {
	delta := 0
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case '{', '[', '(':
			delta++
		case '}', ']', ')':
			delta--
		}
	}
	return delta
}
