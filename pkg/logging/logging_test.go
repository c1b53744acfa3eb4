package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sitenav.log")
	logger, err := New("debug", path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Debug("hello from test")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file missing message: %s", data)
	}
}

func TestNewLevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitenav.log")
	logger, err := New("warn", path)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("should be dropped")
	logger.Warn("should be kept")
	_ = logger.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "should be dropped") {
		t.Error("info message passed a warn-level logger")
	}
	if !strings.Contains(string(data), "should be kept") {
		t.Error("warn message missing")
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New("loud", ""); err == nil {
		t.Error("expected error for invalid level")
	}
}
