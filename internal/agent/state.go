package agent

// ToolStatus is the lifecycle state of a ToolExecution.
type ToolStatus string

const (
	ToolRunning   ToolStatus = "running"
	ToolCompleted ToolStatus = "completed"
	ToolError     ToolStatus = "error"
)

// ToolExecution is one invocation of a named tool within a session.
// Result and Success stay nil until the matching tool_end arrives.
type ToolExecution struct {
	ID        int64
	Tool      string
	Input     map[string]any
	InputKeys []string
	Result    *string
	Success   *bool
	Status    ToolStatus
}

// StepStatus is the progress of a plan step.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
)

// Step is a plan step together with its progress.
type Step struct {
	PlanStep
	Status StepStatus
}

// Phase is the derived lifecycle position of a session.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseErrored   Phase = "errored"
)

// SessionState is the transcript of one agent run.
type SessionState struct {
	Message    string
	Text       string
	Tools      []ToolExecution
	Plan       []Step
	Turn       int
	TotalTurns *int
	Err        *string
	Running    bool
}

// Phase derives the session's lifecycle position from its fields.
func (s SessionState) Phase() Phase {
	switch {
	case s.Running:
		return PhaseRunning
	case s.Err != nil:
		return PhaseErrored
	case s.TotalTurns != nil:
		return PhaseCompleted
	default:
		return PhaseIdle
	}
}

// Empty reports whether nothing has been produced yet.
func (s SessionState) Empty() bool {
	return s.Text == "" && len(s.Tools) == 0
}

// RunningTools counts tool executions still awaiting their result.
func (s SessionState) RunningTools() int {
	n := 0
	for _, t := range s.Tools {
		if t.Status == ToolRunning {
			n++
		}
	}
	return n
}

// Clone returns a copy of s that shares no slices or pointers with it.
func (s SessionState) Clone() SessionState {
	out := s
	if s.Tools != nil {
		out.Tools = make([]ToolExecution, len(s.Tools))
		for i, t := range s.Tools {
			out.Tools[i] = t.clone()
		}
	}
	if s.Plan != nil {
		out.Plan = append([]Step(nil), s.Plan...)
	}
	if s.TotalTurns != nil {
		n := *s.TotalTurns
		out.TotalTurns = &n
	}
	if s.Err != nil {
		msg := *s.Err
		out.Err = &msg
	}
	return out
}

func (t ToolExecution) clone() ToolExecution {
	out := t
	if t.Input != nil {
		out.Input = make(map[string]any, len(t.Input))
		for k, v := range t.Input {
			out.Input[k] = v
		}
	}
	if t.InputKeys != nil {
		out.InputKeys = append([]string(nil), t.InputKeys...)
	}
	if t.Result != nil {
		r := *t.Result
		out.Result = &r
	}
	if t.Success != nil {
		ok := *t.Success
		out.Success = &ok
	}
	return out
}
