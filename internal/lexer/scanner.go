package lexer

import (
	"context"
	"log/slog"
)

// Scanner is the built-in classifier. It needs no external tooling and
// recognizes declarations, parameter lists, blocks, literals and comments.
type Scanner struct{}

// NewScanner returns the built-in classifier.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Tokenize classifies text. Every lexeme is returned, whitespace and
// comments included, in document order.
func (s *Scanner) Tokenize(ctx context.Context, text string) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Scan(text), nil
}

// Scan is Tokenize without a context.
func Scan(text string) []Token {
	return classify(scan(text))
}

// New returns a Command for a non-empty argv and the built-in Scanner
// otherwise.
func New(argv []string, logger *slog.Logger) (Lexer, error) {
	if len(argv) == 0 {
		return NewScanner(), nil
	}
	cmd, err := NewCommand(argv, logger)
	if err != nil {
		return nil, err
	}
	return cmd, nil
}
