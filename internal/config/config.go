// Package config handles Luna configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/luna/config.yaml, /etc/luna/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "luna", "config.yaml"))
	}

	paths = append(paths, "/etc/luna/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Luna configuration.
type Config struct {
	Listen        ListenConfig    `yaml:"listen"`
	Model         ModelConfig     `yaml:"model"`
	Agent         AgentConfig     `yaml:"agent"`
	Workspace     WorkspaceConfig `yaml:"workspace"`
	DataDir       string          `yaml:"data_dir"`
	MCPConfigPath string          `yaml:"mcp_config_path"`
	SystemPrompt  string          `yaml:"system_prompt"`
	LogLevel      string          `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// ModelConfig defines the model-generation collaborator.
type ModelConfig struct {
	Provider string `yaml:"provider"` // ollama (default) or anthropic
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
}

// AgentConfig tunes the agent loop.
type AgentConfig struct {
	// MaxIterations caps generate/dispatch cycles per turn (default 5).
	MaxIterations int `yaml:"max_iterations"`
	// HistoryWindow is the number of recent messages included in the
	// prompt (default 10). Zero means the full history.
	HistoryWindow int `yaml:"history_window"`
	// StrictParsing aborts a turn when the model emits tool-like text
	// that cannot be decoded, instead of treating it as a final answer.
	StrictParsing bool `yaml:"strict_parsing"`
}

// WorkspaceConfig defines the agent's workspace for file operations.
type WorkspaceConfig struct {
	// Path is the root directory for the builtin filesystem tool.
	// All file tool paths are relative to this directory.
	// If empty, the filesystem tool is disabled.
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Model: ModelConfig{
			Provider: "ollama",
			Name:     "qwen3:4b",
			BaseURL:  "http://localhost:11434",
		},
		Agent: AgentConfig{
			MaxIterations: 5,
			HistoryWindow: 10,
		},
		DataDir:       ".",
		MCPConfigPath: "mcp_config.json",
	}
}
