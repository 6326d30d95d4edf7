package agent

import (
	"strings"
	"testing"
)

func TestFormatInput(t *testing.T) {
	tests := []struct {
		name  string
		keys  []string
		input map[string]any
		want  string
	}{
		{"empty", nil, map[string]any{}, ""},
		{"wire order", []string{"path", "content"}, map[string]any{"content": "x", "path": "a.txt"}, "path: a.txt, content: x"},
		{"non-string values", []string{"n", "flags"}, map[string]any{"n": 3, "flags": []any{"-l"}}, `n: 3, flags: ["-l"]`},
		{"unordered keys sorted", nil, map[string]any{"b": "2", "a": "1"}, "a: 1, b: 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatInput(tt.keys, tt.input); got != tt.want {
				t.Errorf("FormatInput = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatInputTruncatesLongValues(t *testing.T) {
	long := strings.Repeat("x", 150)
	got := FormatInput([]string{"content"}, map[string]any{"content": long})
	want := "content: " + strings.Repeat("x", 100) + "..."
	if got != want {
		t.Errorf("FormatInput length = %d, want %d", len(got), len(want))
	}
}

func TestTruncateResult(t *testing.T) {
	short := "ok"
	if got := TruncateResult(short); got != short {
		t.Errorf("TruncateResult(%q) = %q", short, got)
	}

	exact := strings.Repeat("a", 500)
	if got := TruncateResult(exact); got != exact {
		t.Error("500-char result should not be truncated")
	}

	long := strings.Repeat("a", 501)
	if got := TruncateResult(long); got != exact+"..." {
		t.Errorf("TruncateResult length = %d, want 503", len(got))
	}
}

func TestLabels(t *testing.T) {
	if got := StatusLabel(ToolRunning); got != "Running..." {
		t.Errorf("StatusLabel(running) = %q", got)
	}
	if got := StatusLabel(ToolCompleted); got != "Done" {
		t.Errorf("StatusLabel(completed) = %q", got)
	}
	if got := StatusLabel(ToolError); got != "Error" {
		t.Errorf("StatusLabel(error) = %q", got)
	}
	if got := CompletionLabel(1); got != "Completed in 1 turn" {
		t.Errorf("CompletionLabel(1) = %q", got)
	}
	if got := CompletionLabel(3); got != "Completed in 3 turns" {
		t.Errorf("CompletionLabel(3) = %q", got)
	}
}
