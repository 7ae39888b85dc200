// Package main provides the cairod CLI entry point.
//
// cairod is a Starknet-style query node: it answers JSON-RPC reads from a
// local chain-state database and delegates contract calls and fee estimates
// to a pool of external Cairo executor subprocesses.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mirovale/cairod/internal/config"
	"github.com/mirovale/cairod/internal/logging"
	"github.com/mirovale/cairod/internal/node"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/cairod
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("cairod %s\n", version)
			return 0
		}
	}

	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// When the TUI owns the terminal, logs are suppressed so they don't
	// tear the rendering.
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewDiscardLogger()
	} else {
		logger = logging.NewLogger(cfg.LogFormat, "info", cfg.Verbose)
	}
	logging.SetDefault(logger)

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	if cfg.Check {
		config.ApplyCheckMode(cfg)
		logger.Info("check_mode_enabled", "workers", cfg.Workers, "duration", cfg.Duration)
	}

	n := node.New(cfg, logger, version)

	if cfg.PrintCmd {
		fmt.Println("# Executor command that would be run for each worker:")
		fmt.Println()
		fmt.Println(n.Runner().CommandString())
		return 0
	}

	logger.Info("starting",
		"version", version,
		"db", cfg.DatabasePath,
		"executor", cfg.ExecutorPath,
		"workers", cfg.Workers,
		"rpc_addr", cfg.RPCAddr,
		"metrics_addr", cfg.MetricsAddr,
	)

	if !cfg.TUIEnabled {
		printBanner(cfg)
	}

	if err := n.Run(context.Background()); err != nil {
		logger.Error("node_failed", "error", err)
		return 1
	}

	return 0
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                              cairod                               ║")
	fmt.Println("║        Starknet Query Node with Cairo Executor Pool               ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Database:    %s\n", cfg.DatabasePath)
	fmt.Printf("  Executor:    %s (%d workers)\n", cfg.ExecutorPath, cfg.Workers)
	fmt.Printf("  RPC:         http://%s%s\n", cfg.RPCAddr, "/rpc/v0.2")
	fmt.Printf("  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	if cfg.Duration > 0 {
		fmt.Printf("  Duration:    %s\n", cfg.Duration)
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}
