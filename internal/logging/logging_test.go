package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("test-source")

	if cfg.Level != LevelInfo {
		t.Errorf("expected level INFO, got %v", cfg.Level)
	}
	if cfg.Format != "text" {
		t.Errorf("expected format text, got %s", cfg.Format)
	}
	if cfg.Output != os.Stderr {
		t.Errorf("expected output stderr")
	}
	if cfg.Source != "test-source" {
		t.Errorf("expected source test-source, got %s", cfg.Source)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	tests := []struct {
		name          string
		levelEnv      string
		formatEnv     string
		expectedLevel slog.Level
		expectedFmt   string
	}{
		{"defaults", "", "", LevelInfo, "text"},
		{"debug level", "debug", "", LevelDebug, "text"},
		{"warning level alias", "warning", "", LevelWarn, "text"},
		{"error level uppercase", "ERROR", "", LevelError, "text"},
		{"unknown level falls back to info", "chatty", "", LevelInfo, "text"},
		{"JSON format uppercase", "", "JSON", LevelInfo, "json"},
		{"debug + json", "debug", "json", LevelDebug, "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SPLUS_LOG_LEVEL", tt.levelEnv)
			t.Setenv("SPLUS_LOG_FORMAT", tt.formatEnv)
			t.Setenv("SPLUS_LOG_FILE", "")

			cfg := LoadConfigFromEnv("test")

			if cfg.Level != tt.expectedLevel {
				t.Errorf("level: expected %v, got %v", tt.expectedLevel, cfg.Level)
			}
			if cfg.Format != tt.expectedFmt {
				t.Errorf("format: expected %s, got %s", tt.expectedFmt, cfg.Format)
			}
		})
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	logger := New(Config{Level: LevelInfo, Format: "text", Output: &buf, Source: "formatter"})
	logger.Info("formatted document", "uri", "file:///a.usp")

	output := buf.String()
	if !strings.Contains(output, "formatted document") {
		t.Errorf("output should contain message: %s", output)
	}
	if !strings.Contains(output, "source=formatter") {
		t.Errorf("output should contain source: %s", output)
	}
	if !strings.Contains(output, "uri=file:///a.usp") {
		t.Errorf("output should contain uri: %s", output)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer

	logger := New(Config{Level: LevelInfo, Format: "json", Output: &buf, Source: "json-test"})
	logger.Info("json test")

	output := buf.String()
	if !strings.Contains(output, `"msg":"json test"`) {
		t.Errorf("JSON output should contain msg field: %s", output)
	}
	if !strings.Contains(output, `"source":"json-test"`) {
		t.Errorf("JSON output should contain source field: %s", output)
	}
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	logger := New(Config{Level: LevelWarn, Format: "text", Output: &buf, Source: "filter-test"})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	if strings.Contains(buf.String(), "debug message") || strings.Contains(buf.String(), "info message") {
		t.Errorf("messages below warn should be filtered: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "warn message") {
		t.Error("warn message should appear")
	}
}

func TestOpenWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splusls.log")

	cfg := DefaultConfig("file-test")
	cfg.File = path

	logger, closer, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	logger.Info("written to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file should contain message: %s", data)
	}
}

func TestNop(t *testing.T) {
	logger := Nop()

	// Should not panic
	logger.Info("this goes nowhere")
	logger.With("key", "value").Debug("or this")
}
