package config

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing the problem.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.DatabasePath == "" {
		errs = append(errs, ValidationError{
			Field:   "db",
			Message: "chain-state database path is required",
		})
	}

	if cfg.ExecutorPath == "" {
		errs = append(errs, ValidationError{
			Field:   "executor",
			Message: "executor binary path is required",
		})
	}

	if cfg.Workers < 1 {
		errs = append(errs, ValidationError{
			Field:   "workers",
			Message: "must be at least 1",
		})
	}

	if cfg.Cooldown <= 0 {
		errs = append(errs, ValidationError{
			Field:   "cooldown",
			Message: "must be positive",
		})
	}

	if cfg.ExitGrace <= 0 {
		errs = append(errs, ValidationError{
			Field:   "exit-grace",
			Message: "must be positive",
		})
	}

	if cfg.RPCAddr == "" {
		errs = append(errs, ValidationError{
			Field:   "rpc",
			Message: "listen address is required",
		})
	}

	if cfg.MetricsAddr == "" {
		errs = append(errs, ValidationError{
			Field:   "metrics",
			Message: "listen address is required",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log-format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ApplyCheckMode modifies config for --check mode: a single worker, a
// bounded run, and verbose logs.
func ApplyCheckMode(cfg *Config) {
	cfg.Workers = 1
	cfg.Duration = 10 * time.Second
	cfg.Verbose = true
	cfg.TUIEnabled = false
}
