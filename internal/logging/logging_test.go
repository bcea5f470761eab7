package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"futures-term/internal/config"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "term.log")
	logger, err := New(config.LoggingConfig{Level: "info", FilePath: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("order placed")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "order placed") {
		t.Fatalf("log file missing entry: %q", string(data))
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "loud"}); err == nil {
		t.Fatalf("New() should reject unknown level")
	}
}
