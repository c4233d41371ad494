package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nhle/weekly-planner/internal/model"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "planner.log")

	l, err := New(model.LogConfig{Level: "debug", File: path, MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.WithComponent("board").WithOwner("owner-1").Infow("loaded", "tasks", 3)
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	for _, want := range []string{`"msg":"loaded"`, `"component":"board"`, `"owner_id":"owner-1"`, `"tasks":3`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log %q missing %s", data, want)
		}
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(model.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("New accepted an invalid level")
	}
}

func TestLevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.log")
	l, err := New(model.LogConfig{Level: "warn", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Infow("hidden")
	l.Warnw("visible")
	_ = l.Close()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "visible") {
		t.Fatalf("log = %q", data)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Errorw("ignored")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
