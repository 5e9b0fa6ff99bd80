// Package config loads workspace configuration from .splusls.yaml with
// SPLUS_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"splusls/internal/format"
)

// FileName is the configuration file looked up in a workspace root.
const FileName = ".splusls.yaml"

// DefaultHelpURL is the root of the online language reference.
const DefaultHelpURL = "https://help.crestron.com/simpl_plus"

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full configuration of a workspace.
type Config struct {
	Format  FormatConfig  `yaml:"format"`
	Project ProjectConfig `yaml:"project"`
	Help    HelpConfig    `yaml:"help"`
	Catalog CatalogConfig `yaml:"catalog"`
}

// FormatConfig mirrors format.Options.
type FormatConfig struct {
	BraceStyle     format.BraceStyle  `yaml:"brace_style"`
	KeywordCase    format.KeywordCase `yaml:"keyword_case"`
	LineEnding     format.LineEnding  `yaml:"line_ending"`
	LegacyComments bool               `yaml:"legacy_comments"`
}

// ProjectConfig configures reference resolution and artifact watching.
type ProjectConfig struct {
	// SimplDirectory is passed to the API generator as its target.
	SimplDirectory string `yaml:"simpl_directory"`

	// Generator is the executable that turns a .clz into an .api file.
	Generator string `yaml:"generator"`

	// LexerCommand runs an external tokenizer instead of the built-in one.
	LexerCommand []string `yaml:"lexer_command,omitempty"`

	WatchDebounceMS int      `yaml:"watch_debounce_ms"`
	Ignore          []string `yaml:"ignore,omitempty"`
}

// HelpConfig configures the online help client.
type HelpConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMS int    `yaml:"timeout_ms"`
	Disabled  bool   `yaml:"disabled"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Format: FormatConfig{
			BraceStyle:  format.BraceOwnLine,
			KeywordCase: format.CaseUnchanged,
			LineEnding:  format.CRLF,
		},
		Project: ProjectConfig{
			WatchDebounceMS: 300,
		},
		Help: HelpConfig{
			BaseURL:   DefaultHelpURL,
			TimeoutMS: 5000,
		},
		Catalog: DefaultCatalogConfig(),
	}
}

// Load reads a configuration file. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorkspace loads FileName from dir when it exists, then applies
// environment overrides.
func LoadWorkspace(dir string) (*Config, error) {
	cfg := Default()
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables:
//   - SPLUS_BRACE_STYLE, SPLUS_KEYWORD_CASE, SPLUS_LINE_ENDING
//   - SPLUS_SIMPL_DIRECTORY, SPLUS_GENERATOR
//   - SPLUS_HELP_URL, SPLUS_HELP_DISABLED
//   - SPLUS_DB_TYPE, SPLUS_DB_DSN, SPLUS_DB_PATH
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SPLUS_BRACE_STYLE"); v != "" {
		c.Format.BraceStyle = format.BraceStyle(v)
	}
	if v := os.Getenv("SPLUS_KEYWORD_CASE"); v != "" {
		c.Format.KeywordCase = format.KeywordCase(v)
	}
	if v := os.Getenv("SPLUS_LINE_ENDING"); v != "" {
		c.Format.LineEnding = format.LineEnding(v)
	}
	if v := os.Getenv("SPLUS_SIMPL_DIRECTORY"); v != "" {
		c.Project.SimplDirectory = v
	}
	if v := os.Getenv("SPLUS_GENERATOR"); v != "" {
		c.Project.Generator = v
	}
	if v := os.Getenv("SPLUS_HELP_URL"); v != "" {
		c.Help.BaseURL = v
	}
	if v := os.Getenv("SPLUS_HELP_DISABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Help.Disabled = b
		}
	}
	c.Catalog.applyEnv()
}

// Validate normalizes enum spellings and checks ranges.
func (c *Config) Validate() error {
	var err error
	if c.Format.BraceStyle, err = format.ParseBraceStyle(string(c.Format.BraceStyle)); err != nil {
		return fmt.Errorf("%w: format.brace_style: %v", ErrInvalidConfig, err)
	}
	if c.Format.KeywordCase, err = format.ParseKeywordCase(string(c.Format.KeywordCase)); err != nil {
		return fmt.Errorf("%w: format.keyword_case: %v", ErrInvalidConfig, err)
	}
	if c.Format.LineEnding, err = format.ParseLineEnding(string(c.Format.LineEnding)); err != nil {
		return fmt.Errorf("%w: format.line_ending: %v", ErrInvalidConfig, err)
	}
	if c.Project.WatchDebounceMS < 0 {
		return fmt.Errorf("%w: project.watch_debounce_ms must not be negative", ErrInvalidConfig)
	}
	if c.Help.TimeoutMS < 0 {
		return fmt.Errorf("%w: help.timeout_ms must not be negative", ErrInvalidConfig)
	}
	if c.Help.BaseURL == "" {
		c.Help.BaseURL = DefaultHelpURL
	}
	c.Help.BaseURL = strings.TrimRight(c.Help.BaseURL, "/")
	return c.Catalog.validate()
}

// Options converts the format section, attaching a keyword table.
func (f FormatConfig) Options(kw format.Keywords) format.Options {
	return format.Options{
		BraceStyle:     f.BraceStyle,
		KeywordCase:    f.KeywordCase,
		LineEnding:     f.LineEnding,
		LegacyComments: f.LegacyComments,
		Keywords:       kw,
	}
}

// WatchDebounce returns the artifact watch debounce interval.
func (p ProjectConfig) WatchDebounce() time.Duration {
	return time.Duration(p.WatchDebounceMS) * time.Millisecond
}

// Timeout returns the help request timeout.
func (h HelpConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutMS) * time.Millisecond
}
