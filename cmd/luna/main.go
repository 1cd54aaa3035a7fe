// Luna is a conversational agent daemon.
//
// It exposes an HTTP chat API backed by a bounded agent loop with tool
// use, SQLite conversation memory, and MCP capability servers.
// Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	luna serve               Start the API server
//	luna version             Print version and build information
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lunahq/luna/internal/agent"
	"github.com/lunahq/luna/internal/api"
	"github.com/lunahq/luna/internal/buildinfo"
	"github.com/lunahq/luna/internal/config"
	"github.com/lunahq/luna/internal/llm"
	"github.com/lunahq/luna/internal/mcp"
	"github.com/lunahq/luna/internal/memory"
	"github.com/lunahq/luna/internal/tools"
	"github.com/lunahq/luna/internal/usage"
)

func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. OS-level dependencies are injected so
// the lifecycle can be driven from tests.
func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	var configPath string
	var logLevel string
	var command string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-log-level" && i+1 < len(args):
			logLevel = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-log-level="):
			logLevel = strings.TrimPrefix(args[i], "-log-level=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath, logLevel)
	case "version":
		fmt.Fprintln(stdout, buildinfo.String())
		return nil
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Luna - Conversational Agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: luna [flags] <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>      Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -log-level <level>  Override configured log level")
	return nil
}

// runServe wires up the full daemon and blocks until shutdown.
func runServe(ctx context.Context, stdout io.Writer, configPath, logLevel string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, err := newLogger(stdout, cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Info("starting", "build", buildinfo.String())

	// SIGINT/SIGTERM trigger graceful shutdown.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := memory.NewSQLiteStore(filepath.Join(cfg.DataDir, "luna.db"))
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer store.Close()

	client, err := newModelClient(cfg, logger)
	if err != nil {
		return err
	}

	registry := tools.NewRegistry()
	tools.NewFileTools(cfg.Workspace.Path).RegisterAll(registry)

	clients, err := connectServers(ctx, cfg.MCPConfigPath, registry, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}()

	tracker := usage.NewTracker(store, logger)
	loop := agent.NewLoop(logger, store, client, registry, tracker, agent.Options{
		MaxIterations: cfg.Agent.MaxIterations,
		HistoryWindow: cfg.Agent.HistoryWindow,
		StrictParsing: cfg.Agent.StrictParsing,
		SystemPrompt:  cfg.SystemPrompt,
	})

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, loop, store, registry, tracker, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// loadConfig discovers and loads the config file, falling back to
// defaults when none exists and no explicit path was given.
func loadConfig(explicit string) (*config.Config, error) {
	path, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, err
		}
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: config.ReplaceLogLevelNames,
	})
	return slog.New(handler), nil
}

// newModelClient builds the generation client from config.
func newModelClient(cfg *config.Config, logger *slog.Logger) (llm.Client, error) {
	switch cfg.Model.Provider {
	case "", "ollama":
		return llm.NewOllamaClient(cfg.Model.BaseURL, cfg.Model.Name, logger), nil
	case "anthropic":
		if cfg.Model.APIKey == "" {
			return nil, fmt.Errorf("model provider anthropic requires api_key")
		}
		return llm.NewAnthropicClient(cfg.Model.BaseURL, cfg.Model.APIKey, cfg.Model.Name, logger), nil
	default:
		return nil, fmt.Errorf("unknown model provider: %q", cfg.Model.Provider)
	}
}

// connectServers loads the capability-server catalogue, connects every
// enabled server, and bridges its tools into the registry. A server
// that fails to connect is logged and skipped; one broken catalogue
// entry must not take the daemon down.
func connectServers(ctx context.Context, path string, registry *tools.Registry, logger *slog.Logger) ([]*mcp.Client, error) {
	servers, err := mcp.LoadServers(path)
	if err != nil {
		return nil, err
	}

	var clients []*mcp.Client
	for _, name := range mcp.EnabledNames(servers) {
		cfg := servers[name]

		transport, err := mcp.NewTransport(name, cfg, logger)
		if err != nil {
			logger.Warn("skipping MCP server", "server", name, "error", err)
			continue
		}

		client := mcp.NewClient(name, transport, logger)

		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err = client.Initialize(connectCtx)
		if err == nil {
			_, err = mcp.BridgeTools(connectCtx, client, name, registry, logger)
		}
		cancel()
		if err != nil {
			logger.Warn("MCP server unavailable", "server", name, "error", err)
			_ = client.Close()
			continue
		}

		clients = append(clients, client)
	}
	return clients, nil
}
