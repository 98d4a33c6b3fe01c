package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/rating-desk/internal/config"
)

func TestLoggerWritesUnderLogsDir(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{ProjectDir: dir, RaterProjectDir: filepath.Join(dir, config.RaterDir)}
	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.now = func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) }
	logger.Printf("export server listening on %s\n", "127.0.0.1:8766")
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	want := filepath.Join(dir, config.RaterDir, "logs", FileName)
	if logger.Path() != want {
		t.Fatalf("path = %s, want %s", logger.Path(), want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if got := string(data); got != "[2026-10-14T12:00:00Z] export server listening on 127.0.0.1:8766\n" {
		t.Fatalf("log = %q", got)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Printf("ignored")
	if err := logger.Close(); err != nil {
		t.Fatalf("close nil: %v", err)
	}
	if _, err := New(nil); err == nil || !strings.Contains(err.Error(), "config") {
		t.Fatalf("expected config error, got %v", err)
	}
}
