package logger

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
		{"WARN", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Output: &buf, Service: "bookings"})

	log.Debug("hidden")
	log.With("rider_id", "r1").Info("booking created", "tickets", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["service"] != "bookings" || entry["rider_id"] != "r1" || entry["msg"] != "booking created" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Format: "text", Output: &buf}).Info("hello")

	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}
