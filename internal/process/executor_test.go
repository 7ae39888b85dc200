package process

import (
	"context"
	"strings"
	"testing"
)

func TestDefaultExecutorConfig(t *testing.T) {
	cfg := DefaultExecutorConfig("/usr/local/bin/cairo-exec", "/var/lib/cairod/chain.sqlite")

	if cfg.BinaryPath != "/usr/local/bin/cairo-exec" {
		t.Errorf("BinaryPath = %q", cfg.BinaryPath)
	}
	if cfg.DatabasePath != "/var/lib/cairod/chain.sqlite" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.LogLevel != "" {
		t.Errorf("LogLevel should default empty, got %q", cfg.LogLevel)
	}
}

func TestExecutorRunner_buildArgs(t *testing.T) {
	tests := []struct {
		name string
		cfg  *ExecutorConfig
		want []string
	}{
		{
			name: "database only",
			cfg:  DefaultExecutorConfig("cairo-exec", "chain.sqlite"),
			want: []string{"chain.sqlite"},
		},
		{
			name: "with log level",
			cfg: &ExecutorConfig{
				BinaryPath:   "cairo-exec",
				DatabasePath: "chain.sqlite",
				LogLevel:     "debug",
			},
			want: []string{"chain.sqlite", "--log-level", "debug"},
		},
		{
			name: "extra args appended last",
			cfg: &ExecutorConfig{
				BinaryPath:   "cairo-exec",
				DatabasePath: "chain.sqlite",
				LogLevel:     "info",
				ExtraArgs:    []string{"--tracing", "off"},
			},
			want: []string{"chain.sqlite", "--log-level", "info", "--tracing", "off"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewExecutorRunner(tt.cfg).buildArgs()
			if len(got) != len(tt.want) {
				t.Fatalf("buildArgs() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("buildArgs()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExecutorRunner_BuildCommand(t *testing.T) {
	runner := NewExecutorRunner(DefaultExecutorConfig("cairo-exec", "chain.sqlite"))

	cmd, err := runner.BuildCommand(context.Background(), 7)
	if err != nil {
		t.Fatalf("BuildCommand() error = %v", err)
	}
	if cmd.Process != nil {
		t.Error("BuildCommand() returned a started command")
	}
	if cmd.Stdin != nil || cmd.Stdout != nil {
		t.Error("BuildCommand() must leave stdin and stdout unset")
	}
	if len(cmd.Args) != 2 || cmd.Args[1] != "chain.sqlite" {
		t.Errorf("cmd.Args = %v", cmd.Args)
	}
}

func TestExecutorRunner_BuildCommand_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *ExecutorConfig
	}{
		{"empty binary", &ExecutorConfig{DatabasePath: "chain.sqlite"}},
		{"empty database", &ExecutorConfig{BinaryPath: "cairo-exec"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewExecutorRunner(tt.cfg).BuildCommand(context.Background(), 0); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestExecutorRunner_Name(t *testing.T) {
	runner := NewExecutorRunner(DefaultExecutorConfig("cairo-exec", "chain.sqlite"))
	if runner.Name() != "cairo-executor" {
		t.Errorf("Name() = %q", runner.Name())
	}
}

func TestExecutorRunner_CommandString(t *testing.T) {
	cfg := DefaultExecutorConfig("/opt/cairo-exec", "/data/chain.sqlite")
	cfg.LogLevel = "warn"
	got := NewExecutorRunner(cfg).CommandString()

	if !strings.HasPrefix(got, "/opt/cairo-exec ") {
		t.Errorf("CommandString() = %q, want binary prefix", got)
	}
	if !strings.Contains(got, "/data/chain.sqlite") {
		t.Errorf("CommandString() missing database path: %q", got)
	}
	if !strings.Contains(got, "--log-level warn") {
		t.Errorf("CommandString() missing log level: %q", got)
	}
}
