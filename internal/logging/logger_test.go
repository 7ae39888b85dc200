package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewLoggerWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "json", "info")

	logger.Info("worker_launched", "worker_id", 3, "pid", 1234)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "worker_launched" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["worker_id"] != float64(3) {
		t.Errorf("worker_id = %v", entry["worker_id"])
	}
}

func TestNewLoggerWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "text", "info")

	logger.Info("pool_draining", "outstanding", 2)

	out := buf.String()
	if !strings.Contains(out, "pool_draining") || !strings.Contains(out, "outstanding=2") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "text", "warn")

	logger.Debug("dropped")
	logger.Info("dropped_too")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("below-level records were written: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestNewDiscardLogger(t *testing.T) {
	// Must not panic, must swallow output at every level.
	logger := NewDiscardLogger()
	logger.Debug("a")
	logger.Info("b")
	logger.Error("c")
}
