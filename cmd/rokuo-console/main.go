// ABOUTME: Entry point for the rokuo-console admin web server
// ABOUTME: Serves the operator console over plain HTTP or a tailnet via tsnet

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"tailscale.com/tsnet"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
	"github.com/streamrokuo/rokuo-admin/internal/config"
	"github.com/streamrokuo/rokuo-admin/internal/webadmin"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
           _                                            _
 _ __ ___ | | ___   _  ___         ___ ___  _ __  ___  ___ | | ___
| '__/ _ \| |/ / | | |/ _ \ _____ / __/ _ \| '_ \/ __|/ _ \| |/ _ \
| | | (_) |   <| |_| | (_) |_____| (_| (_) | | | \__ \ (_) | |  __/
|_|  \___/|_|\_\\__,_|\___/       \___\___/|_| |_|___/\___/|_|\___|
`

// backendTimeout bounds every request the console makes to the managed
// backend. Screen loads fan out several queries, so this is per request,
// not per screen.
const backendTimeout = 30 * time.Second

// getConfigPath returns the path to the console config file.
// Priority: ROKUO_CONFIG env var > XDG_CONFIG_HOME/rokuo/console.yaml > ~/.config/rokuo/console.yaml
func getConfigPath() string {
	if envPath := os.Getenv("ROKUO_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "console.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "rokuo", "console.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: rokuo-console <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve     Start the admin console server")
		fmt.Println("  health    Check console health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runHealth(ctx)
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

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger. Packages pick up their component loggers from the
	// default, so it must be installed before anything else is built.
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Startup info
	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Backend:   %s\n", cfg.Backend.URL)
	if !cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	}

	// Tailscale status
	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}

	fmt.Println()

	logger.Info("starting rokuo-console",
		"config", configPath,
		"backend_url", cfg.Backend.URL,
		"http_addr", cfg.Server.HTTPAddr,
	)

	httpClient := &http.Client{Timeout: backendTimeout}
	client := backend.New(cfg.Backend.URL, cfg.Backend.APIURL, cfg.Backend.AnonKey, httpClient)

	admin := webadmin.New(client, webadmin.Config{
		AppName:    cfg.App.Name,
		SessionTTL: cfg.Server.SessionTTL,
	})

	mux := http.NewServeMux()
	admin.RegisterRoutes(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/", http.StatusFound)
	})

	ln, cleanup, err := setupListener(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	logger.Info("console listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	}
}

// setupListener returns the listener the console serves on: a tsnet
// listener when tailscale is enabled, a plain TCP listener otherwise.
func setupListener(ctx context.Context, cfg *config.Config, logger *slog.Logger) (net.Listener, func(), error) {
	if !cfg.Tailscale.Enabled {
		ln, err := net.Listen("tcp", cfg.Server.HTTPAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("listening on %s: %w", cfg.Server.HTTPAddr, err)
		}
		return ln, func() {}, nil
	}

	stateDir, err := resolveTailscaleStateDir(cfg.Tailscale.StateDir)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey := cfg.Tailscale.AuthKey
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return nil, nil, errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable")
	}

	ts := &tsnet.Server{
		Hostname:  cfg.Tailscale.Hostname,
		Dir:       stateDir,
		Ephemeral: cfg.Tailscale.Ephemeral,
		AuthKey:   authKey,
	}

	logger.Info("starting tailscale node", "hostname", cfg.Tailscale.Hostname, "state_dir", stateDir, "ephemeral", cfg.Tailscale.Ephemeral)
	status, err := ts.Up(ctx)
	if err != nil {
		_ = ts.Close()
		return nil, nil, fmt.Errorf("starting tailscale: %w", err)
	}
	if len(status.TailscaleIPs) > 0 {
		logger.Info("tailscale node ready", "hostname", cfg.Tailscale.Hostname, "tailscale_ip", status.TailscaleIPs[0].String())
	} else {
		logger.Warn("tailscale node has no IP addresses assigned")
	}

	ln, err := ts.Listen("tcp", ":80")
	if err != nil {
		_ = ts.Close()
		return nil, nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
	}

	cleanup := func() {
		_ = ln.Close()
		_ = ts.Close()
	}
	return ln, cleanup, nil
}

// resolveTailscaleStateDir picks the tsnet state directory, defaulting to
// a subdirectory of the user config dir.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	confDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving tailscale state dir: %w", err)
	}
	return filepath.Join(confDir, "rokuo", "tsnet-console"), nil
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

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
