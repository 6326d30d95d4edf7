package agent

import "errors"

var (
	// ErrEmptyMessage is returned by Submit when the message is blank.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrSessionRunning is returned by Submit while a session is in flight.
	ErrSessionRunning = errors.New("a session is already running")

	// ErrHostUnavailable is returned by Submit when the agent runtime cannot
	// be reached from this host.
	ErrHostUnavailable = errors.New("agent host unavailable")

	// ErrNotConfigured is returned by Submit when no credentials are set up.
	ErrNotConfigured = errors.New("agent is not configured")

	// ErrStreamClosed is returned by Consume when the event stream ends
	// without a terminal event.
	ErrStreamClosed = errors.New("event stream closed before session finished")

	// ErrUnknownEvent marks an event type outside the known set.
	ErrUnknownEvent = errors.New("unknown event type")
)

// Messages stored in SessionState.Err by the controller itself.
const (
	HostUnavailableMessage = "Agent mode requires the desktop host to execute tools"
	UnknownErrorMessage    = "Unknown error"
	ResetMessage           = "Session reset before it finished"
)
