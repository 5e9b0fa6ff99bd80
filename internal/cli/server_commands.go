package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"splusls/internal/config"
	"splusls/internal/lexer"
	"splusls/internal/lsp"
	"splusls/internal/mcp"
	"splusls/internal/tools"
	"splusls/internal/version"
)

const (
	lspServerName = "splusls"
	mcpServerName = "splus-mcp"
)

func runServeCmd(cmd *cobra.Command, args []string) error {
	logger, closer, err := newLogger(cmd, lspServerName)
	if err != nil {
		return err
	}
	defer closer.Close()
	return ServeLSP(cmd.Context(), logger)
}

func runMCPCmd(cmd *cobra.Command, args []string) error {
	logger, closer, err := newLogger(cmd, mcpServerName)
	if err != nil {
		return err
	}
	defer closer.Close()
	return ServeMCP(cmd.Context(), logger)
}

func runVersionCmd(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersionInfo("splus"))
	return nil
}

// ServeLSP runs the language server on stdin/stdout until the client exits
// or ctx is done. The workspace configuration is read when the client
// initializes, unless --config names a file.
func ServeLSP(ctx context.Context, logger *slog.Logger) error {
	opts := lsp.Options{
		Name:    lspServerName,
		Version: version.GetVersion(),
		Logger:  logger,
	}
	if configPath != "" {
		cfg, err := loadConfig("")
		if err != nil {
			return err
		}
		opts.Config = cfg
	}
	return lsp.New(opts).Serve(ctx, lsp.Stdio())
}

// ServeMCP runs the MCP server for the working directory on stdin/stdout.
func ServeMCP(ctx context.Context, logger *slog.Logger) error {
	root, err := workspaceDir("")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		logger.Warn("using default configuration", "error", err)
		cfg = config.Default()
	}
	lx, err := lexer.New(cfg.Project.LexerCommand, logger)
	if err != nil {
		return err
	}

	server := mcp.NewServer(mcpServerName, version.GetVersion(), logger)
	tools.RegisterAll(server, &tools.Env{
		Root:   root,
		Config: cfg,
		Lexer:  lx,
		Help:   newHelp(cfg, logger),
		Logger: logger,
	})

	logger.Info("starting MCP server", "name", mcpServerName, "version", version.GetVersion(), "root", root)
	return server.Run(ctx)
}
