package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAppendAndReadAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	logger, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	if err := logger.Append(LogEvent{Event: EventSessionSubmitted, Session: "s1", Message: "list files"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := logger.Append(LogEvent{Event: EventToolStarted, Session: "s1", Tool: "list_dir"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	events, err := logger.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Message != "list files" || events[1].Tool != "list_dir" {
		t.Errorf("events = %+v", events)
	}
	if events[0].Time.IsZero() {
		t.Error("Time should be set automatically")
	}
}

func TestAppendKeepsExplicitTime(t *testing.T) {
	logger, err := NewLogger(t.TempDir())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := logger.Append(LogEvent{Time: at, Event: EventSessionDone}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	events, err := logger.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !events[0].Time.Equal(at) {
		t.Errorf("Time = %v, want %v", events[0].Time, at)
	}
}

func TestReadAllMissingFile(t *testing.T) {
	logger := &Logger{path: filepath.Join(t.TempDir(), "missing.jsonl")}
	events, err := logger.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("len(events) = %d, want 0", len(events))
	}
}

func TestReadAllRejectsCorruptLine(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	if err := os.WriteFile(logger.Path(), []byte("{\"event\":\"session_done\"}\n{oops\n"), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	if _, err := logger.ReadAll(); err == nil {
		t.Error("expected error for corrupt line")
	}
}

func TestFilter(t *testing.T) {
	events := []LogEvent{
		{Event: EventToolStarted},
		{Event: EventSessionDone},
		{Event: EventToolFinished},
	}
	got := Filter(events, EventToolStarted, EventToolFinished)
	if len(got) != 2 {
		t.Fatalf("len(Filter) = %d, want 2", len(got))
	}
	if got[0].Event != EventToolStarted || got[1].Event != EventToolFinished {
		t.Errorf("Filter = %+v", got)
	}
}
