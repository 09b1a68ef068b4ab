// ABOUTME: Demo server exposing a sample orders application over the bridge.
// ABOUTME: Wires config, logging, identity, metrics, and the protocol endpoint together.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/kaladinstorm84/SwaggerMCP/pkg/bridge"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/config"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/host"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/identity"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/mcp"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/metrics"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/registry"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _____      ____ _  __ _  __ _  ___ _ __ _ __ ___   ___ _ __
/ __\ \ /\ / / _' |/ _' |/ _' |/ _ \ '__| '_ ' _ \ / __| '_ \
\__ \\ V  V / (_| | (_| | (_| |  __/ |  | | | | | | (__| |_) |
|___/ \_/\_/ \__,_|\__, |\__, |\___|_|  |_| |_| |_|\___| .__/
                   |___/ |___/                         |_|
`

// getConfigPath returns the path to the bridge config file.
// Priority: SWAGGERMCP_CONFIG env var > XDG_CONFIG_HOME/swagger-mcp/config.yaml
// > ~/.config/swagger-mcp/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SWAGGERMCP_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "swagger-mcp", "config.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: swagger-mcp <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve     Start the demo bridge server")
		fmt.Println("  version   Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	listen := cfg.Server.Listen
	if listen == "" {
		listen = ":8080"
	}

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    %s\n", listen)
	green.Print("    ▶ ")
	fmt.Printf("MCP:     http://localhost%s/mcp\n", listen)
	fmt.Println()

	provider := identity.NewTokenProvider()
	adminToken := provider.IssueToken("demo-admin", []string{"admin"})
	logger.Info("issued demo admin token", "token", adminToken)

	app := host.NewApp(host.Config{
		Logger:            logger,
		Identity:          provider,
		CorrelationHeader: cfg.Bridge.CorrelationHeader,
	})
	if err := app.Mount(newOrdersController()); err != nil {
		return fmt.Errorf("mounting orders controller: %w", err)
	}

	reg := registry.New(registry.Config{
		App:        app,
		Logger:     logger,
		NameFilter: cfg.NameFilter(),
	})
	dispatcher := bridge.NewDispatcher(bridge.Config{
		App:            app,
		Logger:         logger,
		CallTimeout:    cfg.Bridge.CallTimeout,
		ForwardHeaders: cfg.Bridge.ForwardHeaders,
	})

	mux := http.NewServeMux()
	mux.Handle("/", app)

	sink, err := setupMetrics(cfg.Metrics, mux)
	if err != nil {
		return fmt.Errorf("setting up metrics: %w", err)
	}

	server, err := mcp.NewServer(mcp.Config{
		Registry:          reg,
		Dispatcher:        dispatcher,
		Logger:            logger,
		Identity:          provider,
		Metrics:           sink,
		ServerName:        cfg.Server.Name,
		ServerVersion:     cfg.Server.Version,
		CorrelationHeader: cfg.Bridge.CorrelationHeader,
	})
	if err != nil {
		return fmt.Errorf("creating protocol server: %w", err)
	}
	server.RegisterRoutes(mux)

	logger.Info("starting swagger-mcp",
		"config", configPath,
		"listen", listen,
		"tools", len(reg.Tools()),
	)

	httpServer := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// setupMetrics wires the configured exporter and returns the sink for the
// protocol server.
func setupMetrics(cfg config.MetricsConfig, mux *http.ServeMux) (metrics.Sink, error) {
	if !cfg.Enabled {
		return metrics.Noop{}, nil
	}
	switch cfg.Exporter {
	case "prometheus":
		sink, err := metrics.NewPromSink(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, err
		}
		mux.Handle("/metrics", promhttp.Handler())
		return sink, nil
	case "otel", "":
		return metrics.NewOTelSink(otel.Meter("swagger-mcp"))
	default:
		return nil, fmt.Errorf("unknown metrics exporter %q", cfg.Exporter)
	}
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
