package agent

import "context"

// Request is the payload handed to the agent runtime for one session.
type Request struct {
	Message      string   `json:"message"`
	ProjectPath  string   `json:"project_path,omitempty"`
	MaxTurns     int      `json:"max_turns"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	AllowedTools []string `json:"allowed_tools,omitempty"`
}

// Runner is the boundary to the external agent runtime.
type Runner interface {
	// Available reports whether the runtime can be reached from this host.
	// Submit never calls RunSession when it returns false.
	Available() bool

	// RunSession starts a session and returns its event stream. Events are
	// delivered in runtime order and the channel is closed when the runtime
	// stops producing them. A non-nil error means the session never started.
	RunSession(ctx context.Context, req Request) (<-chan Event, error)
}
