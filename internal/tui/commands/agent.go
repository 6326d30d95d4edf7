// Package commands provides Bubble Tea commands for TUI operations.
package commands

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kuse-dev/cowork/internal/agent"
	"github.com/kuse-dev/cowork/internal/tui"
)

// StartSessionCmd submits message to the controller and returns immediately
// with AgentStartedMsg, or AgentStartErrorMsg when Submit fails.
func StartSessionCmd(ctrl *agent.Controller, message string, sc agent.SubmitContext) tea.Cmd {
	return func() tea.Msg {
		stream, err := ctrl.Submit(context.Background(), message, sc)
		if err != nil {
			return tui.AgentStartErrorMsg{Err: err}
		}
		return tui.AgentStartedMsg{Stream: stream}
	}
}

// ListenEventsCmd waits for the next event of stream.
// Returns AgentEventMsg for each event, or AgentStreamClosedMsg when the
// channel closes. The receiver applies the event and listens again.
func ListenEventsCmd(stream *agent.Stream) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-stream.Events()
		if !ok {
			return tui.AgentStreamClosedMsg{Stream: stream}
		}
		return tui.AgentEventMsg{Stream: stream, Event: event}
	}
}
