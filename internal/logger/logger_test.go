// ABOUTME: Tests for logger setup
// ABOUTME: Verifies level parsing and JSON output with unix-ms timestamps
package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/harperreed/backspeak/internal/config"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestInitJSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	logger := Init(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	buf.Reset()
	logger.Info().Msg("hidden")
	logger.Warn().Str("clip_id", "abc").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 line at warn level, got %d: %s", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if entry["message"] != "shown" || entry["clip_id"] != "abc" {
		t.Errorf("unexpected entry %v", entry)
	}
	if _, ok := entry["time"].(float64); !ok {
		t.Errorf("expected numeric unix-ms time, got %v", entry["time"])
	}
}
