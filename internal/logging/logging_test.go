package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unklstewy/planes-near-me/pkg/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestNewWritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	l, closer := New("planes-test", config.LogConfig{Level: "info", Dir: dir})
	l.Warn("airline data unavailable", slog.String("source", "airlines.json"))
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "planes-test.log"))
	if err != nil {
		t.Fatalf("Expected log file, got %v", err)
	}
	if !strings.Contains(string(data), "airline data unavailable") {
		t.Errorf("Expected warning in log file, got %s", data)
	}
}

func TestDiscard(t *testing.T) {
	// Must not panic.
	Discard().Error("dropped")
}
