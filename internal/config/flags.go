package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseFlags parses os.Args flags and returns a Config.
func ParseFlags() (*Config, error) {
	return ParseArgs(os.Args[1:], os.Stderr)
}

// ParseArgs parses the given argument list. Precedence is defaults, then
// the -config YAML file, then explicit flags.
func ParseArgs(args []string, errOut io.Writer) (*Config, error) {
	cfg := DefaultConfig()

	// The config file is applied before flag binding so that explicit
	// flags override file values naturally.
	if path := peekConfigFlag(args); path != "" {
		if err := applyFile(path, cfg); err != nil {
			return nil, err
		}
	}

	fs := flag.NewFlagSet("cairod", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() { printUsage(fs, errOut) }

	var configFile string
	fs.StringVar(&configFile, "config", "", "YAML config file (flags override file values)")

	// Chain state
	fs.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "Path to the chain-state SQLite database")

	// Executor pool
	fs.StringVar(&cfg.ExecutorPath, "executor", cfg.ExecutorPath, "Path to the Cairo executor binary")
	fs.StringVar(&cfg.ExecutorLogLevel, "executor-log-level", cfg.ExecutorLogLevel, "Log level forwarded to executors")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Executor pool size (default: CPU count)")
	fs.DurationVar(&cfg.Cooldown, "cooldown", cfg.Cooldown, "Minimum interval between replacement spawns")
	fs.DurationVar(&cfg.ExitGrace, "exit-grace", cfg.ExitGrace, "Grace period before a stuck executor is killed")

	// Servers
	fs.StringVar(&cfg.RPCAddr, "rpc", cfg.RPCAddr, "JSON-RPC listen address")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address")

	// Run control
	fs.DurationVar(&cfg.Duration, "duration", cfg.Duration, "Run duration (0 = forever)")

	// Observability
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Enable live terminal dashboard")

	// Safety & Diagnostics (double-dash convention)
	fs.BoolVar(&cfg.PrintCmd, "print-cmd", cfg.PrintCmd, "Print the executor command and exit")
	fs.BoolVar(&cfg.Check, "check", cfg.Check, "Validate config and run 1 worker for 10 seconds")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return cfg, nil
}

// peekConfigFlag extracts the -config value without a full parse.
func peekConfigFlag(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name != "config" || !strings.HasPrefix(arg, "-") {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// printUsage writes the categorized usage message.
func printUsage(fs *flag.FlagSet, out io.Writer) {
	fmt.Fprintf(out, `cairod - Starknet-style query node with an external Cairo executor pool

Usage:
  cairod -db <path> -executor <path> [flags]

Chain State:
`)
	printFlagCategory(fs, out, []string{"db", "config"})

	fmt.Fprintf(out, "\nExecutor Pool:\n")
	printFlagCategory(fs, out, []string{"executor", "executor-log-level", "workers", "cooldown", "exit-grace"})

	fmt.Fprintf(out, "\nServers:\n")
	printFlagCategory(fs, out, []string{"rpc", "metrics"})

	fmt.Fprintf(out, "\nObservability:\n")
	printFlagCategory(fs, out, []string{"v", "log-format", "tui"})

	fmt.Fprintf(out, "\nSafety & Diagnostics:\n")
	printFlagCategory(fs, out, []string{"duration", "print-cmd", "check", "skip-preflight"})

	fmt.Fprintf(out, `
Flag Convention:
  Single-dash flags (-db, -workers) are normal options.
  Double-dash flags (--check, --print-cmd) are diagnostic modes.

Examples:
  # Serve a local chain database with 8 executors
  cairod -db /var/lib/cairod/chain.sqlite -executor /usr/local/bin/cairo-exec -workers 8

  # Validate a deployment without serving traffic
  cairod -db chain.sqlite -executor cairo-exec --check

`)
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(fs *flag.FlagSet, out io.Writer, names []string) {
	fs.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				fmt.Fprintf(out, "  -%s\n    \t%s", f.Name, f.Usage)
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" {
					fmt.Fprintf(out, " (default %s)", f.DefValue)
				}
				fmt.Fprintln(out)
				return
			}
		}
	})
}
