package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"splusls/internal/config"
	"splusls/internal/help"
	"splusls/internal/logging"
)

// newLogger builds the command's stderr logger. The closer releases
// SPLUS_LOG_FILE when one is set.
func newLogger(cmd *cobra.Command, source string) (*slog.Logger, io.Closer, error) {
	cfg := logging.LoadConfigFromEnv(source)
	cfg.Output = cmd.ErrOrStderr()
	if verbose {
		cfg.Level = logging.LevelDebug
	}
	return logging.Open(cfg)
}

// loadConfig reads --config when given and the workspace file of dir
// otherwise.
func loadConfig(dir string) (*config.Config, error) {
	if configPath == "" {
		return config.LoadWorkspace(dir)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// workspaceDir resolves dir, defaulting to the working directory.
func workspaceDir(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		return wd, nil
	}
	return filepath.Abs(dir)
}

// newHelp returns the online help client, or nil when help is disabled.
func newHelp(cfg *config.Config, logger *slog.Logger) *help.Client {
	if cfg.Help.Disabled {
		return nil
	}
	return help.New(help.Options{
		BaseURL:    cfg.Help.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Help.Timeout()},
		Logger:     logger,
	})
}
