package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" DEBUG ": slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerFiltersAndSkipsColour(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown", "slot", "SLOT1_WEB.jpg")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "SLOT1_WEB.jpg") {
		t.Errorf("Missing warn output: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("Non-terminal writer should not get ANSI colour: %q", out)
	}
	if IsTerminal(&buf) {
		t.Error("bytes.Buffer is not a terminal")
	}
}
