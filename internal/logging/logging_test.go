package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lighthouse/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestNew_WritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)

	logger.Info().Str("feature", "F1").Int("censored", 3).Msg("Feature trials hit the day cap")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected a JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["app"] != "lighthouse" {
		t.Errorf("Expected app=lighthouse, got %v", entry["app"])
	}
	if entry["feature"] != "F1" {
		t.Errorf("Expected feature=F1, got %v", entry["feature"])
	}
	if entry["censored"] != float64(3) {
		t.Errorf("Expected censored=3, got %v", entry["censored"])
	}
	if _, ok := entry["time"]; !ok {
		t.Errorf("Expected a timestamp field")
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		verbose bool
		want    zerolog.Level
	}{
		{"Default", "", false, zerolog.InfoLevel},
		{"Configured", "warn", false, zerolog.WarnLevel},
		{"VerboseWins", "error", true, zerolog.DebugLevel},
		{"Unknown", "chatty", false, zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Level(tt.level, tt.verbose); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestInit_WritesToConfiguredFile(t *testing.T) {
	previous := log.Logger
	t.Cleanup(func() {
		log.Logger = previous
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	})

	cfg := config.LogConfig{
		Dir:        filepath.Join(t.TempDir(), "logs"),
		File:       "test.log",
		Level:      "info",
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	}
	closer, err := Init(cfg, false)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	log.Debug().Msg("hidden at info level")
	log.Info().Str("feature", "F9").Msg("Forecast archived")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Dir, cfg.File))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"feature":"F9"`) {
		t.Errorf("Expected the info line in the log file, got %q", out)
	}
	if strings.Contains(out, "hidden at info level") {
		t.Errorf("Expected debug lines to be filtered, got %q", out)
	}
}

func TestInit_RejectsUnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := Init(config.LogConfig{Dir: filepath.Join(blocker, "logs"), File: "x.log", MaxSizeMB: 1}, false)
	if err == nil {
		t.Errorf("Expected an error for a log directory below a file")
	}
}
