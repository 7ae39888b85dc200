// Package process builds the external Cairo executor command line.
package process

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ExecutorConfig holds configuration for executor subprocess invocation.
type ExecutorConfig struct {
	// BinaryPath is the path to the executor binary.
	BinaryPath string

	// DatabasePath is the chain database the executor reads contract state
	// from. Passed as the first positional argument.
	DatabasePath string

	// LogLevel is forwarded to the executor via --log-level when set.
	LogLevel string

	// ExtraArgs are appended verbatim after the built-in arguments.
	ExtraArgs []string
}

// DefaultExecutorConfig returns an ExecutorConfig with sensible defaults.
func DefaultExecutorConfig(binaryPath, databasePath string) *ExecutorConfig {
	return &ExecutorConfig{
		BinaryPath:   binaryPath,
		DatabasePath: databasePath,
	}
}

// ExecutorRunner builds commands for Cairo executor workers. It satisfies
// the pool's ProcessBuilder contract: commands come back unstarted with
// stdin and stdout left for the worker to wire.
type ExecutorRunner struct {
	config *ExecutorConfig
}

// NewExecutorRunner creates a runner with the given configuration.
func NewExecutorRunner(cfg *ExecutorConfig) *ExecutorRunner {
	return &ExecutorRunner{config: cfg}
}

// Name returns "cairo-executor".
func (r *ExecutorRunner) Name() string {
	return "cairo-executor"
}

// BuildCommand creates an exec.Cmd for one executor worker.
//
// The command is deliberately not bound to ctx: workers shut executors down
// by closing stdin and only escalate after the exit grace, and a
// context-bound command would be killed the instant the pool context is
// cancelled.
func (r *ExecutorRunner) BuildCommand(ctx context.Context, workerID int) (*exec.Cmd, error) {
	if r.config.BinaryPath == "" {
		return nil, fmt.Errorf("executor binary path is empty")
	}
	if r.config.DatabasePath == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	return exec.Command(r.config.BinaryPath, r.buildArgs()...), nil
}

// buildArgs constructs the executor command-line arguments.
func (r *ExecutorRunner) buildArgs() []string {
	args := []string{r.config.DatabasePath}

	if r.config.LogLevel != "" {
		args = append(args, "--log-level", r.config.LogLevel)
	}

	args = append(args, r.config.ExtraArgs...)

	return args
}

// Config returns the executor configuration.
func (r *ExecutorRunner) Config() *ExecutorConfig {
	return r.config
}

// CommandString returns the command that would be executed (for --print-cmd).
func (r *ExecutorRunner) CommandString() string {
	return r.config.BinaryPath + " " + strings.Join(r.buildArgs(), " ")
}
