package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func baseArgs(extra ...string) []string {
	return append([]string{"-db", "chain.sqlite", "-executor", "cairo-exec"}, extra...)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Workers < 1 {
		t.Errorf("Workers = %d, want >= 1", cfg.Workers)
	}
	if cfg.Cooldown != time.Second {
		t.Errorf("Cooldown = %v, want 1s", cfg.Cooldown)
	}
	if cfg.ExitGrace != 5*time.Second {
		t.Errorf("ExitGrace = %v, want 5s", cfg.ExitGrace)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.TUIEnabled {
		t.Error("TUIEnabled should default off")
	}
}

func TestParseArgs(t *testing.T) {
	cfg, err := ParseArgs(baseArgs(
		"-workers", "8",
		"-cooldown", "2s",
		"-exit-grace", "10s",
		"-rpc", "127.0.0.1:9999",
		"-log-format", "text",
		"-v",
		"--check",
	), io.Discard)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}

	if cfg.DatabasePath != "chain.sqlite" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.ExecutorPath != "cairo-exec" {
		t.Errorf("ExecutorPath = %q", cfg.ExecutorPath)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d", cfg.Workers)
	}
	if cfg.Cooldown != 2*time.Second || cfg.ExitGrace != 10*time.Second {
		t.Errorf("Cooldown/ExitGrace = %v/%v", cfg.Cooldown, cfg.ExitGrace)
	}
	if cfg.RPCAddr != "127.0.0.1:9999" {
		t.Errorf("RPCAddr = %q", cfg.RPCAddr)
	}
	if cfg.LogFormat != "text" || !cfg.Verbose || !cfg.Check {
		t.Errorf("observability flags: %+v", cfg)
	}
}

func TestParseArgsUnknownFlag(t *testing.T) {
	if _, err := ParseArgs(baseArgs("-no-such-flag"), io.Discard); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cairod.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
db: /data/chain.sqlite
executor: /opt/cairo-exec
workers: 12
cooldown: 3s
log_format: text
`)

	cfg, err := ParseArgs([]string{"-config", path}, io.Discard)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}

	if cfg.DatabasePath != "/data/chain.sqlite" || cfg.ExecutorPath != "/opt/cairo-exec" {
		t.Errorf("paths = %q / %q", cfg.DatabasePath, cfg.ExecutorPath)
	}
	if cfg.Workers != 12 || cfg.Cooldown != 3*time.Second {
		t.Errorf("workers/cooldown = %d/%v", cfg.Workers, cfg.Cooldown)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q", cfg.LogFormat)
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
db: /data/chain.sqlite
executor: /opt/cairo-exec
workers: 12
`)

	cfg, err := ParseArgs([]string{"-config", path, "-workers", "2"}, io.Discard)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want flag value 2", cfg.Workers)
	}
	if cfg.DatabasePath != "/data/chain.sqlite" {
		t.Errorf("DatabasePath = %q, want file value", cfg.DatabasePath)
	}
}

func TestConfigFileUnknownKey(t *testing.T) {
	path := writeConfigFile(t, "no_such_key: true\n")

	if _, err := ParseArgs([]string{"-config", path}, io.Discard); err == nil {
		t.Fatal("expected error for unknown config key")
	}
}

func TestConfigFileEqualsSyntax(t *testing.T) {
	path := writeConfigFile(t, "workers: 3\ndb: chain.sqlite\nexecutor: cairo-exec\n")

	cfg, err := ParseArgs([]string{"-config=" + path}, io.Discard)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
}

func TestConfigFileMissing(t *testing.T) {
	if _, err := ParseArgs([]string{"-config", "/no/such/file.yaml"}, io.Discard); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.DatabasePath = "chain.sqlite"
		cfg.ExecutorPath = "cairo-exec"
		return cfg
	}

	if err := Validate(valid()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing db", func(c *Config) { c.DatabasePath = "" }},
		{"missing executor", func(c *Config) { c.ExecutorPath = "" }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative cooldown", func(c *Config) { c.Cooldown = -time.Second }},
		{"zero exit grace", func(c *Config) { c.ExitGrace = 0 }},
		{"empty rpc addr", func(c *Config) { c.RPCAddr = "" }},
		{"empty metrics addr", func(c *Config) { c.MetricsAddr = "" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestApplyCheckMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 16
	cfg.TUIEnabled = true

	ApplyCheckMode(cfg)

	if cfg.Workers != 1 {
		t.Errorf("Workers = %d, want 1", cfg.Workers)
	}
	if cfg.Duration != 10*time.Second {
		t.Errorf("Duration = %v, want 10s", cfg.Duration)
	}
	if !cfg.Verbose || cfg.TUIEnabled {
		t.Errorf("Verbose/TUIEnabled = %v/%v", cfg.Verbose, cfg.TUIEnabled)
	}
}
