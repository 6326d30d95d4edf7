// Package log provides structured event logging.
// This file appends JSON events to log.jsonl.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event type constants.
const (
	EventSessionSubmitted = "session_submitted"
	EventSessionRejected  = "session_rejected"
	EventSessionReset     = "session_reset"
	EventToolStarted      = "tool_started"
	EventToolFinished     = "tool_finished"
	EventTurnComplete     = "turn_complete"
	EventSessionDone      = "session_done"
	EventSessionError     = "session_error"
	EventIgnored          = "event_ignored"
	EventBridgeSkipped    = "bridge_line_skipped"
	EventBridgeExited     = "bridge_exited"
	EventStoreFailed      = "store_failed"
)

// logFile is the log file name inside the log directory.
const logFile = "log.jsonl"

// LogEvent represents a single structured event written to the log.
type LogEvent struct {
	Time       time.Time              `json:"time"`
	Event      string                 `json:"event"`
	Session    string                 `json:"session,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Tool       string                 `json:"tool,omitempty"`
	Status     string                 `json:"status,omitempty"`
	Turn       int                    `json:"turn,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	Error      string                 `json:"error,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Logger writes append-only JSONL events to a log file.
type Logger struct {
	path string
	mu   sync.Mutex
}

// NewLogger creates a Logger that writes to log.jsonl inside dir.
// Creates dir if it does not already exist.
// Does not truncate an existing log file.
func NewLogger(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	return &Logger{
		path: filepath.Join(dir, logFile),
	}, nil
}

// Path returns the file the logger appends to.
func (l *Logger) Path() string {
	return l.path
}

// Append writes a single LogEvent as one JSON line to the log file.
// If event.Time is the zero value, it is automatically set to time.Now().UTC().
// The file is opened in append mode, written to, and then closed.
// Thread-safe via mutex.
func (l *Logger) Append(event LogEvent) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal log event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write log event: %w", err)
	}

	return nil
}

// ReadAll reads and parses all events from the log file.
// Returns an empty slice (not an error) if the file does not exist.
func (l *Logger) ReadAll() ([]LogEvent, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []LogEvent{}, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var events []LogEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event LogEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("parse log line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	return events, nil
}

// Filter returns the events whose name matches one of names.
func Filter(events []LogEvent, names ...string) []LogEvent {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []LogEvent
	for _, e := range events {
		if want[e.Event] {
			out = append(out, e)
		}
	}
	return out
}
