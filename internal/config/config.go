// Package config provides configuration management for cairod.
package config

import (
	"runtime"
	"time"
)

// Config holds all configuration options for the node.
type Config struct {
	// Chain state
	DatabasePath string `yaml:"db"`

	// Executor pool
	ExecutorPath     string        `yaml:"executor"`
	ExecutorLogLevel string        `yaml:"executor_log_level"`
	Workers          int           `yaml:"workers"`
	Cooldown         time.Duration `yaml:"cooldown"`
	ExitGrace        time.Duration `yaml:"exit_grace"`

	// Servers
	RPCAddr     string `yaml:"rpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	// Run control
	Duration time.Duration `yaml:"duration"` // 0 = forever

	// Observability
	Verbose    bool   `yaml:"verbose"`
	LogFormat  string `yaml:"log_format"` // json, text
	TUIEnabled bool   `yaml:"tui"`

	// Diagnostic modes
	PrintCmd      bool `yaml:"-"`
	Check         bool `yaml:"-"`
	SkipPreflight bool `yaml:"skip_preflight"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Executor pool
		Workers:   runtime.NumCPU(),
		Cooldown:  time.Second,
		ExitGrace: 5 * time.Second,

		// Servers
		RPCAddr:     "0.0.0.0:9545",
		MetricsAddr: "0.0.0.0:9190",

		// Run control
		Duration: 0, // Forever

		// Observability
		Verbose:    false,
		LogFormat:  "json",
		TUIEnabled: false,
	}
}
