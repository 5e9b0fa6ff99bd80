// Package tools exposes SIMPL+ formatting, symbol and keyword queries as MCP
// tools.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"splusls/internal/config"
	"splusls/internal/format"
	"splusls/internal/help"
	"splusls/internal/keywords"
	"splusls/internal/lexer"
	"splusls/internal/mcp"
)

// Env is what the tools share: the workspace they resolve relative paths
// against and its configuration.
type Env struct {
	Root     string
	Config   *config.Config
	Keywords *keywords.Table
	Lexer    lexer.Lexer
	Help     *help.Client // nil disables help text
	Logger   *slog.Logger
}

func (e *Env) defaults() {
	if e.Root == "" {
		if wd, err := os.Getwd(); err == nil {
			e.Root = wd
		} else {
			e.Root = "."
		}
	}
	if e.Config == nil {
		e.Config = config.Default()
	}
	if e.Keywords == nil {
		kw, err := keywords.Load()
		if err != nil {
			kw = new(keywords.Table)
		}
		e.Keywords = kw
	}
	if e.Lexer == nil {
		e.Lexer = lexer.NewScanner()
	}
	if e.Logger == nil {
		e.Logger = slog.New(slog.DiscardHandler)
	}
}

// path resolves p against the workspace root.
func (e *Env) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.Root, p)
}

// RegisterAll registers all available tools on the MCP server
func RegisterAll(server *mcp.Server, env *Env) {
	env.defaults()
	registerFormatDocument(server, env)
	registerKeywordInfo(server, env)
	RegisterSymbolTools(server, env)
}

func jsonResult(v any) (*mcp.ToolsCallResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.TextResult(string(data)), nil
}

// FormatResult is the reply of format_document.
type FormatResult struct {
	Path      string `json:"path,omitempty"`
	Changed   bool   `json:"changed"`
	Written   bool   `json:"written,omitempty"`
	Formatted string `json:"formatted,omitempty"`
}

func registerFormatDocument(server *mcp.Server, env *Env) {
	tool := mcp.Tool{
		Name:        "format_document",
		Description: "Format SIMPL+ source: brace placement, indentation, keyword case and line endings from the workspace configuration. Pass either a file path or the text itself.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"path": {
					Type:        "string",
					Description: "File to format (relative to the workspace or absolute)",
				},
				"text": {
					Type:        "string",
					Description: "Source text to format instead of a file",
				},
				"write": {
					Type:        "boolean",
					Description: "Write the result back to path instead of returning it",
				},
			},
		},
	}

	handler := func(ctx context.Context, args map[string]any) (*mcp.ToolsCallResult, error) {
		path, _ := args["path"].(string)
		text, hasText := args["text"].(string)
		write, _ := args["write"].(bool)
		if path == "" && !hasText {
			return nil, fmt.Errorf("path or text is required")
		}
		if write && path == "" {
			return nil, fmt.Errorf("write needs a path")
		}

		if path != "" && !hasText {
			data, err := os.ReadFile(env.path(path))
			if err != nil {
				return nil, err
			}
			text = string(data)
		}

		formatted := format.Format(text, env.Config.Format.Options(env.Keywords))
		result := FormatResult{Path: path, Changed: formatted != text}
		if write {
			if result.Changed {
				if err := os.WriteFile(env.path(path), []byte(formatted), 0644); err != nil {
					return nil, err
				}
			}
			result.Written = result.Changed
		} else {
			result.Formatted = formatted
		}
		return jsonResult(result)
	}

	server.RegisterTool(tool, handler)
}

// KeywordResult is the reply of keyword_info.
type KeywordResult struct {
	Found       bool     `json:"found"`
	Name        string   `json:"name,omitempty"`
	Kind        string   `json:"kind,omitempty"`
	Type        string   `json:"type,omitempty"`
	Signature   string   `json:"signature,omitempty"`
	Help        string   `json:"help,omitempty"`
	HelpURL     string   `json:"help_url,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func registerKeywordInfo(server *mcp.Server, env *Env) {
	tool := mcp.Tool{
		Name:        "keyword_info",
		Description: "Describe a SIMPL+ keyword or built-in function, with its online help when available. Unknown names return close matches.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"name": {
					Type:        "string",
					Description: "Keyword or built-in function name (case-insensitive)",
				},
			},
			Required: []string{"name"},
		},
	}

	handler := func(ctx context.Context, args map[string]any) (*mcp.ToolsCallResult, error) {
		name, ok := args["name"].(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("name is required")
		}

		kw, ok := env.Keywords.Lookup(name)
		if !ok {
			result := KeywordResult{}
			for _, s := range env.Keywords.Suggest(name, 5) {
				result.Suggestions = append(result.Suggestions, s.Name)
			}
			return jsonResult(result)
		}

		result := KeywordResult{Found: true, Name: kw.Name, Kind: kw.Kind.String(), Type: kw.Type}
		if kw.HasHelp && env.Help != nil {
			if page, err := env.Help.Page(ctx, kw.Name); err == nil {
				result.Help = page.Text()
				result.HelpURL = page.URL
			} else {
				env.Logger.Debug("no help page", "keyword", kw.Name, "error", err)
			}
			if kw.Kind == keywords.KindFunction {
				if fn, err := env.Help.FunctionInfo(ctx, kw.Name); err == nil {
					result.Signature = fn.String()
				}
			}
		}
		return jsonResult(result)
	}

	server.RegisterTool(tool, handler)
}
