// ABOUTME: Entry point for the pagebridge server
// ABOUTME: Bridges browser page annotations to a local coding agent

package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/annotate-dev/pagebridge/internal/agent"
	"github.com/annotate-dev/pagebridge/internal/config"
	"github.com/annotate-dev/pagebridge/internal/relay"
	"github.com/annotate-dev/pagebridge/internal/server"
	"github.com/annotate-dev/pagebridge/internal/session"
	"github.com/annotate-dev/pagebridge/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _ __   __ _  __ _  ___| |__  _ __(_) __| | __ _  ___
| '_ \ / _' |/ _' |/ _ \ '_ \| '__| |/ _' |/ _' |/ _ \
| |_) | (_| | (_| |  __/ |_) | |  | | (_| | (_| |  __/
| .__/ \__,_|\__, |\___|_.__/|_|  |_|\__,_|\__, |\___|
|_|          |___/                         |___/
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: pagebridge <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve     Start the bridge server")
		fmt.Println("  init      Create a new config file interactively")
		fmt.Println("  health    Check server health")
		fmt.Println("  version   Print version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
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
	configPath := config.DefaultPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, closeLogs := config.SetupLogger(cfg.Logging)
	defer func() {
		if err := closeLogs(); err != nil {
			fmt.Fprintf(os.Stderr, "closing log file: %v\n", err)
		}
	}()

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    http://%s\n", cfg.Server.Addr)
	green.Print("    ▶ ")
	fmt.Printf("Channel: ws://%s/ws\n", cfg.Server.Addr)
	green.Print("    ▶ ")
	fmt.Printf("Data:    %s\n", cfg.Storage.Dir)
	green.Print("    ▶ ")
	fmt.Printf("Agent:   %s\n", cfg.Agent.Binary)
	fmt.Println()

	logger.Info("starting pagebridge",
		"config", configPath,
		"addr", cfg.Server.Addr,
		"storage_dir", cfg.Storage.Dir,
		"agent_binary", cfg.Agent.Binary,
	)

	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}

	st := store.NewFileStore(cfg.Storage.Dir, logger)
	launcher := agent.NewLauncher(cfg.Agent.Binary, cfg.Agent.ExitGracePeriod, logger)
	sessions := session.NewManager(st, launcher, logger)
	registry := relay.NewRegistry(logger)
	ws := relay.NewHandler(ctx, registry, sessions, logger)
	srv := server.New(cfg.Server.Addr, st, ws, logger)

	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.LoadOrDefault(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/api/health", cfg.Server.Addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("pagebridge configuration setup")
	fmt.Println("==============================")
	fmt.Println()

	defaults := config.Default()
	outputFile := prompt(reader, "Config file path", config.DefaultPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	addr := prompt(reader, "Listen address", defaults.Server.Addr)

	fmt.Println("\n--- Storage Configuration ---")
	dataDir := prompt(reader, "Conversation directory", defaults.Storage.Dir)

	fmt.Println("\n--- Agent Configuration ---")
	binary := prompt(reader, "Agent executable", defaults.Agent.Binary)
	gracePeriod := prompt(reader, "Exit grace period", "5s")

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFile := prompt(reader, "Log file (leave empty for stderr only)", "")

	var cfg strings.Builder
	cfg.WriteString("# pagebridge configuration\n")
	cfg.WriteString("# Generated by pagebridge init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  addr: %q\n\n", addr))

	cfg.WriteString("storage:\n")
	cfg.WriteString(fmt.Sprintf("  dir: %q\n\n", dataDir))

	cfg.WriteString("agent:\n")
	cfg.WriteString(fmt.Sprintf("  binary: %q\n", binary))
	cfg.WriteString(fmt.Sprintf("  exit_grace_period: %q\n\n", gracePeriod))

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", logLevel))
	if logFile != "" {
		cfg.WriteString(fmt.Sprintf("  file: %q\n", logFile))
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Println()
	color.New(color.FgGreen).Printf("Config written to %s\n", outputFile)
	fmt.Println("Start the server with: pagebridge serve")
	return nil
}

func prompt(reader *bufio.Reader, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}
	input, err := reader.ReadString('\n')
	if err != nil {
		return defaultValue
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue
	}
	return input
}
