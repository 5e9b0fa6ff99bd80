package tools

import (
	"context"
	"errors"
	"fmt"

	"splusls/internal/catalog"
	"splusls/internal/indexer"
	"splusls/internal/mcp"
	"splusls/internal/symbols"
)

// RegisterSymbolTools registers the symbol-related MCP tools
func RegisterSymbolTools(server *mcp.Server, env *Env) {
	registerListSymbols(server, env)
	registerFindSymbol(server, env)
	registerIndexWorkspace(server, env)
}

// ListSymbolsResult is the reply of list_symbols.
type ListSymbolsResult struct {
	Path    string          `json:"path"`
	Symbols []catalog.Entry `json:"symbols"`
}

// FindSymbolResult is the reply of find_symbol.
type FindSymbolResult struct {
	Symbols []catalog.Entry `json:"symbols"`
}

func registerListSymbols(server *mcp.Server, env *Env) {
	tool := mcp.Tool{
		Name:        "list_symbols",
		Description: "List the declarations of a SIMPL+ program (.usp), user library (.usl) or generated API file (.api): structures, constants, variables, functions, events and their members.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"path": {
					Type:        "string",
					Description: "File to list (relative to the workspace or absolute)",
				},
			},
			Required: []string{"path"},
		},
	}

	handler := func(ctx context.Context, args map[string]any) (*mcp.ToolsCallResult, error) {
		path, ok := args["path"].(string)
		if !ok || path == "" {
			return nil, fmt.Errorf("path is required")
		}

		tree, err := indexer.ParseFile(ctx, env.Lexer, env.path(path))
		if err != nil {
			return nil, err
		}
		entries := catalog.Flatten(tree)
		if entries == nil {
			entries = []catalog.Entry{}
		}
		return jsonResult(ListSymbolsResult{Path: path, Symbols: entries})
	}

	server.RegisterTool(tool, handler)
}

func registerFindSymbol(server *mcp.Server, env *Env) {
	tool := mcp.Tool{
		Name:        "find_symbol",
		Description: "Find SIMPL+ declarations across the indexed workspace by name. Exact matches come first, then prefix and substring matches.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"name": {
					Type:        "string",
					Description: "Symbol name to search for (supports partial matching)",
				},
				"kind": {
					Type:        "string",
					Description: "Filter by symbol kind",
					Enum:        []string{"Struct", "Class", "Enum", "EnumMember", "Constant", "Variable", "Function", "Event", "TypeParameter", "Property", "Method"},
				},
				"limit": {
					Type:        "number",
					Description: "Maximum number of results (default: 50)",
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

		kind := ""
		if k, ok := args["kind"].(string); ok && k != "" {
			parsed, ok := symbols.ParseKind(k)
			if !ok {
				return nil, fmt.Errorf("unknown kind %q", k)
			}
			kind = parsed.String()
		}

		limit := 50
		if l, ok := args["limit"].(float64); ok && l > 0 {
			limit = int(l)
		}

		c, err := env.openCatalog(false)
		if err != nil {
			return mcp.TextResult(fmt.Sprintf(`{"available": false, "error": %q}`, err.Error())), nil
		}
		defer c.Close()

		entries, err := c.Find(ctx, name, kind, limit)
		if err != nil {
			return nil, fmt.Errorf("searching symbols: %w", err)
		}
		if entries == nil {
			entries = []catalog.Entry{}
		}
		return jsonResult(FindSymbolResult{Symbols: entries})
	}

	server.RegisterTool(tool, handler)
}

func registerIndexWorkspace(server *mcp.Server, env *Env) {
	tool := mcp.Tool{
		Name:        "index_workspace",
		Description: "Catalogue every SIMPL+ program, library and API file of the workspace so find_symbol can search them. Unchanged files are skipped.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"force": {
					Type:        "boolean",
					Description: "Re-read files even when unchanged",
				},
			},
		},
	}

	handler := func(ctx context.Context, args map[string]any) (*mcp.ToolsCallResult, error) {
		force, _ := args["force"].(bool)

		c, err := env.openCatalog(true)
		if err != nil {
			return nil, err
		}
		defer c.Close()

		idx, err := indexer.New(env.Root, c, indexer.Config{
			Lexer:  env.Lexer,
			Ignore: env.Config.Project.Ignore,
			Logger: env.Logger,
		})
		if err != nil {
			return nil, err
		}
		result, err := idx.Index(ctx, indexer.IndexOptions{Force: force})
		if err != nil {
			return nil, err
		}
		return jsonResult(result)
	}

	server.RegisterTool(tool, handler)
}

// openCatalog opens the workspace catalog. Unless create is set a missing
// SQLite file is an error rather than a fresh empty catalog.
func (e *Env) openCatalog(create bool) (*catalog.Catalog, error) {
	cfg := e.Config.Catalog.ToDBConfig(e.Root)
	if create {
		return catalog.Open(cfg, e.Logger)
	}
	c, err := catalog.OpenExisting(cfg, e.Logger)
	if errors.Is(err, catalog.ErrNoCatalog) {
		return nil, fmt.Errorf("%w - run 'splus index' first", err)
	}
	return c, err
}
