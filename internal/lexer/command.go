package lexer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// grammarSuffix is appended to scope names by the TextMate grammar.
const grammarSuffix = ".usp"

// Command runs an external tokenizer. The document is written to its stdin
// and one JSON token per line is read back from stdout:
//
//	{"text":"PUSH","line":0,"startIndex":0,"scopes":["source.usp","keyword.type.usp"]}
//
// "column" is accepted in place of "startIndex" and "type" defaults to the
// innermost scope. A trailing ".usp" on scope names is dropped.
type Command struct {
	path   string
	args   []string
	logger *slog.Logger
}

// NewCommand builds a Command from argv (program followed by arguments).
func NewCommand(argv []string, logger *slog.Logger) (*Command, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, fmt.Errorf("lexer command is empty")
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, fmt.Errorf("lexer command %q: %w", argv[0], err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Command{path: path, args: argv[1:], logger: logger}, nil
}

type commandToken struct {
	Text       string   `json:"text"`
	Line       int      `json:"line"`
	Column     *int     `json:"column"`
	StartIndex *int     `json:"startIndex"`
	Scopes     []string `json:"scopes"`
	Type       string   `json:"type"`
}

// Tokenize runs the command once for text.
func (c *Command) Tokenize(ctx context.Context, text string) ([]Token, error) {
	cmd := exec.CommandContext(ctx, c.path, c.args...)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("lexer command failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("lexer command failed: %w", err)
	}

	tokens, skipped := decodeTokens(&stdout)
	if skipped > 0 {
		c.logger.Debug("skipped malformed lexer output", "lines", skipped)
	}
	return tokens, nil
}

func decodeTokens(r *bytes.Buffer) ([]Token, int) {
	var tokens []Token
	skipped := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var raw commandToken
		if err := json.Unmarshal(line, &raw); err != nil {
			skipped++
			continue
		}
		tokens = append(tokens, raw.token())
	}
	return tokens, skipped
}

func (ct commandToken) token() Token {
	scopes := make([]string, 0, len(ct.Scopes))
	for _, s := range ct.Scopes {
		scopes = append(scopes, strings.TrimSuffix(s, grammarSuffix))
	}
	col := 0
	switch {
	case ct.Column != nil:
		col = *ct.Column
	case ct.StartIndex != nil:
		col = *ct.StartIndex
	}
	typ := strings.TrimSuffix(ct.Type, grammarSuffix)
	if typ == "" && len(scopes) > 0 {
		typ = scopes[len(scopes)-1]
	}
	return Token{Text: ct.Text, Line: ct.Line, Column: col, Scopes: scopes, Type: typ}
}
