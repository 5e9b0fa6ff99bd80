// Package cli implements the splus command-line tool.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// CLI Constants
const (
	CmdFormat   = "format"
	CmdSymbols  = "symbols"
	CmdKeywords = "keywords"
	CmdIndex    = "index"
	CmdFind     = "find"
	CmdServe    = "serve"
	CmdMCP      = "mcp"
	CmdVersion  = "version"

	FlagConfig  = "config"
	FlagWrite   = "write"
	FlagList    = "list"
	FlagJSON    = "json"
	FlagKind    = "kind"
	FlagSuggest = "suggest"
	FlagForce   = "force"
	FlagLimit   = "limit"
	FlagDir     = "dir"
	FlagVerbose = "verbose"

	defaultFindLimit = 50
)

// CLI Variables
var (
	configPath string
	write      bool
	listOnly   bool
	formatJSON bool
	kindFilter string
	suggest    string
	force      bool
	limit      int
	workDir    string
	verbose    bool
)

// Root command
var rootCmd = &cobra.Command{
	Use:   "splus",
	Short: "Formatter, symbol catalog and language server for Crestron SIMPL+",
	Long: `splus formats SIMPL+ programs and libraries, lists and searches their
declarations, and runs the SIMPL+ language server or MCP server.

Settings come from .splusls.yaml in the working directory (or --config),
with SPLUS_* environment variables applied on top.

EXAMPLES:
  splus format -w main.usp             # Format a file in place
  splus format -l *.usp *.usl          # List files that need formatting
  splus symbols main.usp               # Outline a program
  splus keywords --kind function       # List built-in functions
  splus index                          # Catalogue the workspace
  splus find reset                     # Search the catalogue
  splus serve                          # Language server on stdio`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command definitions
var (
	formatCmd = &cobra.Command{
		Use:   CmdFormat + " [files...]",
		Short: "Format SIMPL+ source",
		Long: `Format SIMPL+ source files. Without files, standard input is formatted
to standard output. Without --write or --list the formatted text is printed.`,
		RunE: runFormatCmd,
	}

	symbolsCmd = &cobra.Command{
		Use:   CmdSymbols + " <file>",
		Short: "Outline the declarations of a program, library or API file",
		Args:  cobra.ExactArgs(1),
		RunE:  runSymbolsCmd,
	}

	keywordsCmd = &cobra.Command{
		Use:   CmdKeywords,
		Short: "List SIMPL+ keywords and built-in functions",
		Args:  cobra.NoArgs,
		RunE:  runKeywordsCmd,
	}

	indexCmd = &cobra.Command{
		Use:   CmdIndex + " [dir]",
		Short: "Catalogue every program, library and API file under a workspace",
		Long: `Catalogue the declarations of every .usp, .usl and SPlsWork/*.api file
under dir (default the working directory). Files whose content is unchanged
since the last run are skipped unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runIndexCmd,
	}

	findCmd = &cobra.Command{
		Use:   CmdFind + " <name>",
		Short: "Search the workspace catalogue by symbol name",
		Args:  cobra.ExactArgs(1),
		RunE:  runFindCmd,
	}

	serveCmd = &cobra.Command{
		Use:   CmdServe,
		Short: "Run the SIMPL+ language server on stdio",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}

	mcpCmd = &cobra.Command{
		Use:   CmdMCP,
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE:  runMCPCmd,
	}

	versionCmd = &cobra.Command{
		Use:   CmdVersion,
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE:  runVersionCmd,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, FlagConfig, "c", "", "Configuration file path (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, FlagVerbose, "v", false, "Log debug output to stderr")

	formatCmd.Flags().BoolVarP(&write, FlagWrite, "w", false, "Write the result to the source file")
	formatCmd.Flags().BoolVarP(&listOnly, FlagList, "l", false, "List files whose formatting differs")

	symbolsCmd.Flags().BoolVar(&formatJSON, FlagJSON, false, "Output in JSON format")

	keywordsCmd.Flags().StringVar(&kindFilter, FlagKind, "", "Only list keywords of this kind (keyword, class, function, constant, variable)")
	keywordsCmd.Flags().StringVar(&suggest, FlagSuggest, "", "List keywords that look like this word")

	indexCmd.Flags().BoolVarP(&force, FlagForce, "f", false, "Re-read files even when unchanged")
	indexCmd.Flags().BoolVar(&formatJSON, FlagJSON, false, "Output in JSON format")

	findCmd.Flags().StringVar(&kindFilter, FlagKind, "", "Only match symbols of this kind")
	findCmd.Flags().IntVarP(&limit, FlagLimit, "n", defaultFindLimit, "Maximum number of results")
	findCmd.Flags().StringVarP(&workDir, FlagDir, "d", "", "Workspace directory (default the working directory)")
	findCmd.Flags().BoolVar(&formatJSON, FlagJSON, false, "Output in JSON format")

	rootCmd.AddCommand(formatCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(keywordsCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. An interrupt cancels the command's
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
