// Package ui provides line-oriented terminal output for headless agent runs.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/kuse-dev/cowork/internal/agent"
)

// TranscriptPrinter writes the progress of a session as it changes. Tool
// lines are printed once per status transition; the final text is printed by
// Finish since text events replace each other.
type TranscriptPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	color   bool
	started time.Time

	printed  map[int64]agent.ToolStatus
	lastTurn int
	steps    map[int]agent.StepStatus
}

// NewTranscriptPrinter returns a printer writing to w. Colors are enabled when
// w is a terminal.
func NewTranscriptPrinter(w io.Writer) *TranscriptPrinter {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &TranscriptPrinter{
		w:       w,
		color:   color,
		started: time.Now(),
		printed: make(map[int64]agent.ToolStatus),
		steps:   make(map[int]agent.StepStatus),
	}
}

// Header prints the submitted message.
func (p *TranscriptPrinter) Header(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, p.paint("1", "> "+message))
	fmt.Fprintln(p.w)
}

// Update prints what changed in state since the previous call.
func (p *TranscriptPrinter) Update(state agent.SessionState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range state.Plan {
		if prev, seen := p.steps[s.Step]; seen && prev == s.Status {
			continue
		}
		p.steps[s.Step] = s.Status
		fmt.Fprintln(p.w, formatStepLine(s))
	}

	for _, t := range state.Tools {
		if prev, seen := p.printed[t.ID]; seen && prev == t.Status {
			continue
		}
		p.printed[t.ID] = t.Status
		fmt.Fprintln(p.w, p.formatToolLine(t))
		if t.Result != nil && *t.Result != "" {
			for _, line := range strings.Split(agent.TruncateResult(*t.Result), "\n") {
				fmt.Fprintln(p.w, p.paint("90", "    "+line))
			}
		}
	}

	if state.Turn > p.lastTurn {
		p.lastTurn = state.Turn
		fmt.Fprintln(p.w, p.paint("90", fmt.Sprintf("-- turn %d --", state.Turn)))
	}
}

// Finish prints the final text and the completion or error line.
func (p *TranscriptPrinter) Finish(state agent.SessionState) {
	p.Update(state)

	p.mu.Lock()
	defer p.mu.Unlock()

	if state.Text != "" {
		fmt.Fprintln(p.w)
		fmt.Fprintln(p.w, state.Text)
	}
	fmt.Fprintln(p.w)

	elapsed := formatDuration(time.Since(p.started))
	switch state.Phase() {
	case agent.PhaseCompleted:
		fmt.Fprintln(p.w, p.paint("32", fmt.Sprintf("%s [%s]", agent.CompletionLabel(*state.TotalTurns), elapsed)))
	case agent.PhaseErrored:
		fmt.Fprintln(p.w, p.paint("31", "Error: "+*state.Err))
	case agent.PhaseRunning:
		fmt.Fprintln(p.w, p.paint("33", "Agent stream ended without a result"))
	}
}

func (p *TranscriptPrinter) formatToolLine(t agent.ToolExecution) string {
	line := fmt.Sprintf("%s %s [%s]", toolIcon(t.Status), t.Tool, agent.StatusLabel(t.Status))
	if summary := agent.FormatInput(t.InputKeys, t.Input); summary != "" {
		line += "  " + summary
	}
	switch t.Status {
	case agent.ToolCompleted:
		return p.paint("32", line)
	case agent.ToolError:
		return p.paint("31", line)
	default:
		return p.paint("33", line)
	}
}

func formatStepLine(s agent.Step) string {
	var mark string
	switch s.Status {
	case agent.StepRunning:
		mark = "[>]"
	case agent.StepDone:
		mark = "[x]"
	default:
		mark = "[ ]"
	}
	return fmt.Sprintf("%s %d. %s", mark, s.Step, s.Description)
}

func toolIcon(status agent.ToolStatus) string {
	switch status {
	case agent.ToolCompleted:
		return "+"
	case agent.ToolError:
		return "x"
	default:
		return "~"
	}
}

// paint wraps s in an ANSI SGR sequence when colors are enabled.
func (p *TranscriptPrinter) paint(code, s string) string {
	if !p.color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", h, m, s)
}
