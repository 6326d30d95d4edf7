package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	maxInputValueLen = 100
	maxResultLen     = 500
)

// FormatInput renders a tool input as "key: value" pairs in wire order.
// Non-string values are JSON encoded and every value is truncated to 100
// characters.
func FormatInput(keys []string, input map[string]any) string {
	if len(input) == 0 {
		return ""
	}

	var parts []string
	for _, k := range orderedKeys(keys, input) {
		var s string
		switch v := input[k].(type) {
		case string:
			s = v
		default:
			data, err := json.Marshal(v)
			if err != nil {
				s = fmt.Sprint(v)
			} else {
				s = string(data)
			}
		}
		parts = append(parts, fmt.Sprintf("%s: %s", k, truncate(s, maxInputValueLen)))
	}
	return strings.Join(parts, ", ")
}

// TruncateResult shortens a tool result for display.
func TruncateResult(result string) string {
	return truncate(result, maxResultLen)
}

// StatusLabel is the short display label for a tool status.
func StatusLabel(s ToolStatus) string {
	switch s {
	case ToolRunning:
		return "Running..."
	case ToolCompleted:
		return "Done"
	case ToolError:
		return "Error"
	}
	return string(s)
}

// CompletionLabel describes a finished session, e.g. "Completed in 2 turns".
func CompletionLabel(totalTurns int) string {
	if totalTurns == 1 {
		return "Completed in 1 turn"
	}
	return fmt.Sprintf("Completed in %d turns", totalTurns)
}

// truncate cuts s to limit runes and appends "..." when anything was removed.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

// orderedKeys returns the keys of input, first in the order given by keys and
// then any remaining ones sorted.
func orderedKeys(keys []string, input map[string]any) []string {
	out := make([]string, 0, len(input))
	seen := make(map[string]bool, len(input))
	for _, k := range keys {
		if _, ok := input[k]; ok && !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}

	var rest []string
	for k := range input {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)

	return append(out, rest...)
}
