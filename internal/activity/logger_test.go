package activity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewLogger(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "jellywatch-activity-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	logger, err := NewLogger(tmpDir)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Close()

	if logger.GetLogDir() != filepath.Join(tmpDir, "activity") {
		t.Errorf("expected log dir %s, got %s", filepath.Join(tmpDir, "activity"), logger.GetLogDir())
	}
}

func TestLogEntry(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "jellywatch-activity-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	logger, err := NewLogger(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	entry := Entry{
		Action:     "download_series",
		TaskID:     "0c5f8a1e-3f2b-4d6a-9c7e-1b2d3e4f5a6b",
		Remote:     "catalog-a:42",
		Target:     "series/7d4e1f2a",
		Success:    true,
		Changed:    true,
		DurationMs: 1000,
	}

	if err := logger.Log(entry); err != nil {
		t.Fatalf("failed to log entry: %v", err)
	}

	entries, _ := os.ReadDir(logger.GetLogDir())

	var logFile string
	for _, f := range entries {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".jsonl") {
			logFile = filepath.Join(logger.GetLogDir(), f.Name())
			break
		}
	}

	if logFile == "" {
		t.Fatal("no log file found")
	}

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	var logged Entry
	if err := json.Unmarshal(content, &logged); err != nil {
		t.Fatalf("failed to parse logged entry: %v", err)
	}

	if logged.Action != entry.Action {
		t.Errorf("expected action %s, got %s", entry.Action, logged.Action)
	}

	if logged.Remote != entry.Remote {
		t.Errorf("expected remote %s, got %s", entry.Remote, logged.Remote)
	}

	if !logged.Changed {
		t.Error("expected changed to round-trip")
	}
}

func TestPruneOld(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "jellywatch-activity-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	logger, err := NewLogger(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	oldDate := time.Now().AddDate(0, 0, -10)
	oldFile := filepath.Join(logger.GetLogDir(), "activity-"+oldDate.Format("2006-01-02")+".jsonl")
	if err := os.WriteFile(oldFile, []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}

	recentDate := time.Now()
	recentFile := filepath.Join(logger.GetLogDir(), "activity-"+recentDate.Format("2006-01-02")+".jsonl")
	if err := os.WriteFile(recentFile, []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := logger.PruneOld(7); err != nil {
		t.Fatalf("failed to prune old logs: %v", err)
	}

	_, oldErr := os.Stat(oldFile)
	_, recentErr := os.Stat(recentFile)

	if !os.IsNotExist(oldErr) {
		t.Error("old file should have been pruned")
	}

	if recentErr != nil {
		t.Error("recent file should still exist: ", recentErr)
	}
}
