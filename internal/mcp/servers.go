package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// ServerConfig describes one capability server entry in the catalogue.
type ServerConfig struct {
	// Type selects the transport: "stdio" (default) or "http".
	Type string `json:"type,omitempty"`

	// Command and Args launch a stdio server subprocess.
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`

	// Env holds extra environment variables for the subprocess.
	Env map[string]string `json:"env,omitempty"`

	// URL is the endpoint for http servers.
	URL string `json:"url,omitempty"`

	// Enabled defaults to true; disabled servers stay in the catalogue
	// but are never connected.
	Enabled *bool `json:"enabled,omitempty"`
}

// IsEnabled reports whether the server should be connected.
func (s *ServerConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// serverCatalogue is the on-disk document shape.
type serverCatalogue struct {
	MCPServers map[string]*ServerConfig `json:"mcpServers"`
}

// LoadServers reads the capability-server catalogue from path and
// applies environment overrides. A missing file yields an empty
// catalogue rather than an error.
func LoadServers(path string) (map[string]*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*ServerConfig{}, nil
		}
		return nil, fmt.Errorf("read server catalogue: %w", err)
	}

	var doc serverCatalogue
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse server catalogue %s: %w", path, err)
	}
	if doc.MCPServers == nil {
		doc.MCPServers = map[string]*ServerConfig{}
	}

	for name, cfg := range doc.MCPServers {
		applyEnvOverrides(name, cfg)
		if cfg.Type == "" {
			cfg.Type = "stdio"
		}
	}
	return doc.MCPServers, nil
}

// EnabledNames returns the names of enabled servers, sorted for
// deterministic connection order.
func EnabledNames(servers map[string]*ServerConfig) []string {
	var names []string
	for name, cfg := range servers {
		if cfg.IsEnabled() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// envPrefix derives the environment override prefix for a server name:
// uppercase with dashes mapped to underscores, e.g. "web-search" reads
// WEB_SEARCH_ENABLED, WEB_SEARCH_COMMAND, and WEB_SEARCH_ARGS.
func envPrefix(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_"
}

// applyEnvOverrides lets the environment flip a server on or off and
// replace its launch command without editing the catalogue file.
func applyEnvOverrides(name string, cfg *ServerConfig) {
	prefix := envPrefix(name)

	if v, ok := os.LookupEnv(prefix + "ENABLED"); ok {
		enabled := strings.EqualFold(v, "true")
		cfg.Enabled = &enabled
	}
	if v, ok := os.LookupEnv(prefix + "COMMAND"); ok && v != "" {
		cfg.Command = v
	}
	if v, ok := os.LookupEnv(prefix + "ARGS"); ok {
		cfg.Args = strings.Fields(v)
	}
}

// NewTransport builds the transport for a server entry.
func NewTransport(name string, cfg *ServerConfig, logger *slog.Logger) (Transport, error) {
	switch cfg.Type {
	case "stdio":
		if cfg.Command == "" {
			return nil, fmt.Errorf("server %s: stdio type requires a command", name)
		}
		env := make([]string, 0, len(cfg.Env))
		for k, v := range cfg.Env {
			env = append(env, k+"="+v)
		}
		sort.Strings(env)
		return NewStdioTransport(StdioConfig{
			Command: cfg.Command,
			Args:    cfg.Args,
			Env:     env,
			Logger:  logger,
		}), nil
	case "http":
		if cfg.URL == "" {
			return nil, fmt.Errorf("server %s: http type requires a url", name)
		}
		return NewHTTPTransport(HTTPConfig{URL: cfg.URL, Logger: logger}), nil
	default:
		return nil, fmt.Errorf("server %s: unknown transport type %q", name, cfg.Type)
	}
}
