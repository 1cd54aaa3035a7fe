package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
listen:
  port: 9090
model:
  provider: ollama
  name: llama3.2
  base_url: http://ollama.local:11434
agent:
  max_iterations: 3
  history_window: 20
  strict_parsing: true
workspace:
  path: /tmp/luna-workspace
data_dir: /var/lib/luna
log_level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen.Port != 9090 {
		t.Errorf("Listen.Port = %d, want 9090", cfg.Listen.Port)
	}
	if cfg.Model.Name != "llama3.2" {
		t.Errorf("Model.Name = %q, want %q", cfg.Model.Name, "llama3.2")
	}
	if cfg.Agent.MaxIterations != 3 {
		t.Errorf("Agent.MaxIterations = %d, want 3", cfg.Agent.MaxIterations)
	}
	if cfg.Agent.HistoryWindow != 20 {
		t.Errorf("Agent.HistoryWindow = %d, want 20", cfg.Agent.HistoryWindow)
	}
	if !cfg.Agent.StrictParsing {
		t.Error("Agent.StrictParsing = false, want true")
	}
	if cfg.Workspace.Path != "/tmp/luna-workspace" {
		t.Errorf("Workspace.Path = %q", cfg.Workspace.Path)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("LUNA_TEST_API_KEY", "sk-test-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
model:
  api_key: ${LUNA_TEST_API_KEY}
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.APIKey != "sk-test-123" {
		t.Errorf("Model.APIKey = %q, want %q", cfg.Model.APIKey, "sk-test-123")
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen.Port != 8080 {
		t.Errorf("default Listen.Port = %d, want 8080", cfg.Listen.Port)
	}
	if cfg.Agent.MaxIterations != 5 {
		t.Errorf("default Agent.MaxIterations = %d, want 5", cfg.Agent.MaxIterations)
	}
	if cfg.Agent.HistoryWindow != 10 {
		t.Errorf("default Agent.HistoryWindow = %d, want 10", cfg.Agent.HistoryWindow)
	}
}

func TestFindConfigExplicitMissing(t *testing.T) {
	_, err := FindConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"trace", LevelTrace, false},
		{"debug", slog.LevelDebug, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
