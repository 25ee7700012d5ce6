package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONWithStepKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")

	log, err := New(Options{JSON: true, Debug: true, OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log.Debug("compress applicant")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("expected json log entry, got %q: %v", data, err)
	}

	if entry["step"] != "compress applicant" || entry["level"] != "debug" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Fatal("expected time field")
	}
}

func TestNewInfoLevelDropsDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")

	log, err := New(Options{OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log.Debug("hidden")
	log.Info("visible")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "visible") {
		t.Fatalf("unexpected output: %q", data)
	}
}
