package tui

import (
	"github.com/kuse-dev/cowork/internal/agent"
	"github.com/kuse-dev/cowork/internal/store"
)

// ============================================================================
// Agent Session Messages
// ============================================================================

// AgentStartedMsg signals that a session was submitted and its stream is open.
type AgentStartedMsg struct {
	Stream *agent.Stream
}

// AgentStartErrorMsg signals that Submit was rejected or the runner failed to
// start. The controller state already reflects the failure where applicable.
type AgentStartErrorMsg struct {
	Err error
}

// AgentEventMsg carries one event from a session stream.
type AgentEventMsg struct {
	Stream *agent.Stream
	Event  agent.Event
}

// AgentStreamClosedMsg signals that the runner closed a session stream.
type AgentStreamClosedMsg struct {
	Stream *agent.Stream
}

// ============================================================================
// Statistics Messages
// ============================================================================

// StatsLoadedMsg carries freshly loaded statistics.
type StatsLoadedMsg struct {
	Stats store.Stats
}

// StatsErrorMsg signals that statistics could not be loaded.
type StatsErrorMsg struct {
	Err error
}

// ============================================================================
// Utility Messages
// ============================================================================

// CtrlCResetMsg clears a pending Ctrl+C confirmation.
type CtrlCResetMsg struct{}
