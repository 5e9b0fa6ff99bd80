package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.lsp.dev/uri"

	"splusls/internal/catalog"
	"splusls/internal/indexer"
	"splusls/internal/keywords"
	"splusls/internal/lexer"
	"splusls/internal/symbols"
)

func runSymbolsCmd(cmd *cobra.Command, args []string) error {
	logger, closer, err := newLogger(cmd, "splus")
	if err != nil {
		return err
	}
	defer closer.Close()

	dir, err := workspaceDir("")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	lx, err := lexer.New(cfg.Project.LexerCommand, logger)
	if err != nil {
		return err
	}
	tree, err := indexer.ParseFile(cmd.Context(), lx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if formatJSON {
		entries := catalog.Flatten(tree)
		if entries == nil {
			entries = []catalog.Entry{}
		}
		return writeJSON(out, entries)
	}
	for _, root := range tree.Roots() {
		printSymbol(out, root, 0)
	}
	return nil
}

// printSymbol writes one outline line per symbol, children indented below
// their parent. Positions are one based.
func printSymbol(w io.Writer, s *symbols.Symbol, depth int) {
	if s.Name != "" {
		line := fmt.Sprintf("%s%s %s", strings.Repeat("  ", depth), s.Kind, s.Name)
		if s.DataType != "" {
			line += " : " + s.DataType
		}
		fmt.Fprintf(w, "%s  [%d:%d]\n", line, s.NameRange.Start.Line+1, s.NameRange.Start.Character+1)
	}
	for _, c := range s.Children() {
		printSymbol(w, c, depth+1)
	}
}

func runIndexCmd(cmd *cobra.Command, args []string) error {
	logger, closer, err := newLogger(cmd, "splus-index")
	if err != nil {
		return err
	}
	defer closer.Close()

	var target string
	if len(args) > 0 {
		target = args[0]
	}
	dir, err := workspaceDir(target)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	lx, err := lexer.New(cfg.Project.LexerCommand, logger)
	if err != nil {
		return err
	}

	c, err := catalog.Open(cfg.Catalog.ToDBConfig(dir), logger)
	if err != nil {
		return fmt.Errorf("opening catalog %s: %w", cfg.Catalog, err)
	}
	defer c.Close()

	idx, err := indexer.New(dir, c, indexer.Config{
		Lexer:  lx,
		Ignore: cfg.Project.Ignore,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	result, err := idx.Index(cmd.Context(), indexer.IndexOptions{Force: force})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if formatJSON {
		return writeJSON(out, result)
	}
	fmt.Fprintf(out, "Indexed %s: %d files processed, %d unchanged, %d removed, %d symbols (%s)\n",
		idx.Root(), result.FilesProcessed, result.FilesSkipped, result.FilesDeleted,
		result.Symbols, result.Duration.Round(time.Millisecond))
	return nil
}

func runFindCmd(cmd *cobra.Command, args []string) error {
	logger, closer, err := newLogger(cmd, "splus")
	if err != nil {
		return err
	}
	defer closer.Close()

	dir, err := workspaceDir(workDir)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}

	kind := ""
	if kindFilter != "" {
		k, ok := symbols.ParseKind(kindFilter)
		if !ok {
			return fmt.Errorf("unknown symbol kind %q", kindFilter)
		}
		kind = k.String()
	}

	c, err := catalog.OpenExisting(cfg.Catalog.ToDBConfig(dir), logger)
	if err != nil {
		return fmt.Errorf("%w (run 'splus index' first)", err)
	}
	defer c.Close()

	entries, err := c.Find(cmd.Context(), args[0], kind, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if formatJSON {
		if entries == nil {
			entries = []catalog.Entry{}
		}
		return writeJSON(out, entries)
	}
	for _, e := range entries {
		name := e.Name
		if e.Container != "" {
			name = e.Container + "." + e.Name
		}
		fmt.Fprintf(out, "%s:%d:%d: %s %s\n", displayPath(e.URI), e.Line+1, e.Column+1, e.Kind, name)
	}
	return nil
}

// displayPath shows file URIs as paths and leaves other schemes alone.
func displayPath(u string) string {
	if strings.HasPrefix(u, "file:") {
		return uri.URI(u).Filename()
	}
	return u
}

func runKeywordsCmd(cmd *cobra.Command, args []string) error {
	table, err := keywords.Load()
	if err != nil {
		return err
	}

	var list []keywords.Keyword
	switch {
	case suggest != "":
		list = table.Suggest(suggest, 10)
	case kindFilter != "":
		kind, err := keywords.ParseKind(kindFilter)
		if err != nil {
			return err
		}
		list = table.ByKind(kind)
	default:
		list = table.All()
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, kw := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", kw.Name, kw.Kind, kw.Type)
	}
	return w.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
