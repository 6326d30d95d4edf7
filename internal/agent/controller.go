package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kuse-dev/cowork/internal/log"
)

// DefaultMaxTurns caps a session when the caller does not choose a limit.
const DefaultMaxTurns = 100

// SubmitContext carries the per-submission settings sent with a message.
type SubmitContext struct {
	ProjectPath string
	MaxTurns    int
}

// Recorder observes session boundaries, typically to persist task history.
type Recorder interface {
	SessionStarted(id string, req Request)
	SessionFinished(id string, state SessionState)
}

// Options configures a Controller.
type Options struct {
	// Logger receives one entry per state transition. Nil disables logging.
	Logger *log.Logger
	// Recorder is notified when a session starts and when it ends.
	Recorder Recorder
	// Configured gates Submit on credentials being present. Nil means always configured.
	Configured func() bool
	// SystemPrompt and AllowedTools are forwarded with every request.
	SystemPrompt string
	AllowedTools []string
}

// Controller drives one agent session at a time against a Runner and keeps
// the transcript of the current session. It is safe for concurrent use; all
// mutations are serialized, so events are applied strictly in the order they
// are handed in.
type Controller struct {
	runner Runner
	opts   Options

	mu         sync.Mutex
	state      SessionState
	sessionID  string
	nextToolID int64
	finished   bool
}

// New creates a Controller bound to runner.
func New(runner Runner, optFns ...func(o *Options)) *Controller {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Controller{
		runner:   runner,
		opts:     opts,
		finished: true,
	}
}

// Available reports whether the runner can be used from this host.
func (c *Controller) Available() bool {
	return c.runner.Available()
}

// Submit resets the transcript and starts a new session for message.
//
// A blank message or a session already in flight is rejected without touching
// the current state. When the host is unavailable the runner is not called and
// the state records a host-unavailable error. A runner that fails to start is
// recorded as a terminal error and also returned.
func (c *Controller) Submit(ctx context.Context, message string, sc SubmitContext) (*Stream, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state.Running {
		id := c.sessionID
		c.mu.Unlock()
		c.logEvent(log.LogEvent{Event: log.EventSessionRejected, Session: id, Reason: ErrSessionRunning.Error()})
		return nil, ErrSessionRunning
	}
	if c.opts.Configured != nil && !c.opts.Configured() {
		c.mu.Unlock()
		c.logEvent(log.LogEvent{Event: log.EventSessionRejected, Reason: ErrNotConfigured.Error()})
		return nil, ErrNotConfigured
	}

	id := uuid.NewString()
	c.resetLocked(id, message)

	if !c.runner.Available() {
		msg := HostUnavailableMessage
		c.state.Err = &msg
		c.mu.Unlock()
		c.logEvent(log.LogEvent{Event: log.EventSessionRejected, Session: id, Reason: ErrHostUnavailable.Error()})
		return nil, ErrHostUnavailable
	}

	c.state.Running = true
	c.finished = false
	c.mu.Unlock()

	maxTurns := sc.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	req := Request{
		Message:      message,
		ProjectPath:  sc.ProjectPath,
		MaxTurns:     maxTurns,
		SystemPrompt: c.opts.SystemPrompt,
		AllowedTools: c.opts.AllowedTools,
	}

	c.logEvent(log.LogEvent{Event: log.EventSessionSubmitted, Session: id, Message: message, Data: map[string]interface{}{
		"project_path": req.ProjectPath,
		"max_turns":    req.MaxTurns,
	}})
	if c.opts.Recorder != nil {
		c.opts.Recorder.SessionStarted(id, req)
	}

	events, err := c.runner.RunSession(ctx, req)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = UnknownErrorMessage
		}
		c.handle(id, ErrorEvent{Message: msg})
		return nil, fmt.Errorf("start agent session: %w", err)
	}

	return &Stream{c: c, id: id, events: events}, nil
}

// HandleEvent applies e to the current session.
func (c *Controller) HandleEvent(e Event) {
	c.mu.Lock()
	id := c.sessionID
	c.mu.Unlock()
	c.handle(id, e)
}

// handle applies e if session id is still current. It returns false when the
// event was dropped.
func (c *Controller) handle(id string, e Event) bool {
	c.mu.Lock()
	if id != c.sessionID || c.finished || !c.state.Running {
		c.mu.Unlock()
		c.logEvent(log.LogEvent{Event: log.EventIgnored, Session: id, Reason: "session not running", Data: map[string]interface{}{"type": e.Type()}})
		return false
	}

	entry := log.LogEvent{Session: id}
	logged := true
	terminal := false

	switch ev := e.(type) {
	case TextEvent:
		c.state.Text = ev.Content
		logged = false // too chatty to log
	case ToolStartEvent:
		c.nextToolID++
		input := ev.Input
		if input == nil {
			input = map[string]any{}
		}
		c.state.Tools = append(c.state.Tools, ToolExecution{
			ID:        c.nextToolID,
			Tool:      ev.Tool,
			Input:     input,
			InputKeys: orderedKeys(ev.InputKeys, input),
			Status:    ToolRunning,
		})
		entry.Event = log.EventToolStarted
		entry.Tool = ev.Tool
	case ToolEndEvent:
		idx := c.lastRunningLocked(ev.Tool)
		if idx < 0 {
			entry.Event = log.EventIgnored
			entry.Tool = ev.Tool
			entry.Reason = "no running execution"
			break
		}
		result, success := ev.Result, ev.Success
		t := &c.state.Tools[idx]
		t.Result = &result
		t.Success = &success
		if success {
			t.Status = ToolCompleted
		} else {
			t.Status = ToolError
		}
		entry.Event = log.EventToolFinished
		entry.Tool = ev.Tool
		entry.Status = string(t.Status)
	case TurnCompleteEvent:
		c.state.Turn = ev.Turn
		entry.Event = log.EventTurnComplete
		entry.Turn = ev.Turn
	case DoneEvent:
		total := ev.TotalTurns
		c.state.TotalTurns = &total
		c.state.Running = false
		terminal = true
		entry.Event = log.EventSessionDone
		entry.Turn = total
	case ErrorEvent:
		msg := ev.Message
		c.state.Err = &msg
		c.state.Running = false
		terminal = true
		entry.Event = log.EventSessionError
		entry.Error = msg
	case PlanEvent:
		c.state.Plan = make([]Step, len(ev.Steps))
		for i, s := range ev.Steps {
			c.state.Plan[i] = Step{PlanStep: s, Status: StepPending}
		}
		logged = false
	case StepStartEvent:
		c.setStepLocked(ev.Step, StepRunning)
		logged = false
	case StepDoneEvent:
		c.setStepLocked(ev.Step, StepDone)
		logged = false
	default:
		entry.Event = log.EventIgnored
		entry.Reason = fmt.Sprintf("unhandled event %T", e)
	}

	var final SessionState
	if terminal {
		c.finished = true
		final = c.state.Clone()
	}
	c.mu.Unlock()

	if logged {
		c.logEvent(entry)
	}
	if terminal && c.opts.Recorder != nil {
		c.opts.Recorder.SessionFinished(id, final)
	}
	return true
}

// lastRunningLocked returns the index of the most recently started running
// execution of tool, or -1.
func (c *Controller) lastRunningLocked(tool string) int {
	for i := len(c.state.Tools) - 1; i >= 0; i-- {
		t := c.state.Tools[i]
		if t.Tool == tool && t.Status == ToolRunning {
			return i
		}
	}
	return -1
}

func (c *Controller) setStepLocked(step int, status StepStatus) {
	for i := range c.state.Plan {
		if c.state.Plan[i].Step == step {
			c.state.Plan[i].Status = status
			return
		}
	}
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Running reports whether a session is in flight.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Running
}

// SessionID returns the id of the current (or last) session.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Reset clears the transcript and releases a session that never received a
// terminal event. Events still arriving for the old session are dropped. An
// abandoned session is reported to the Recorder as failed with ResetMessage.
func (c *Controller) Reset() {
	c.mu.Lock()
	old := c.sessionID
	abandoned := !c.finished && c.state.Running
	var final SessionState
	if abandoned {
		final = c.state.Clone()
		msg := ResetMessage
		final.Err = &msg
		final.Running = false
	}
	c.resetLocked("", "")
	c.mu.Unlock()

	if old == "" {
		return
	}
	c.logEvent(log.LogEvent{Event: log.EventSessionReset, Session: old, Data: map[string]interface{}{"abandoned": abandoned}})
	if abandoned && c.opts.Recorder != nil {
		c.opts.Recorder.SessionFinished(old, final)
	}
}

func (c *Controller) resetLocked(id, message string) {
	c.state = SessionState{Message: message}
	c.sessionID = id
	c.nextToolID = 0
	c.finished = true
}

func (c *Controller) logEvent(e log.LogEvent) {
	if c.opts.Logger == nil {
		return
	}
	_ = c.opts.Logger.Append(e)
}

// Stream is the event stream of one submitted session.
type Stream struct {
	c      *Controller
	id     string
	events <-chan Event
}

// ID returns the session id the stream belongs to.
func (s *Stream) ID() string { return s.id }

// Events exposes the raw channel, for callers that pump events themselves.
func (s *Stream) Events() <-chan Event { return s.events }

// Handle applies e to the controller if this stream's session is still
// current. Events of superseded sessions are dropped.
func (s *Stream) Handle(e Event) bool {
	return s.c.handle(s.id, e)
}

// Consume applies every event of the stream in order until the runner closes
// it. Events after the terminal one are drained and ignored. It returns
// ErrStreamClosed if the stream ended while the session was still running.
func (s *Stream) Consume(ctx context.Context) error {
	return s.ConsumeFunc(ctx, nil)
}

// ConsumeFunc is Consume with fn called after each event, with whether the
// event was applied to the session. fn may be nil.
func (s *Stream) ConsumeFunc(ctx context.Context, fn func(e Event, applied bool)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-s.events:
			if !ok {
				s.c.mu.Lock()
				stuck := s.c.sessionID == s.id && s.c.state.Running
				s.c.mu.Unlock()
				if stuck {
					return ErrStreamClosed
				}
				return nil
			}
			applied := s.Handle(e)
			if fn != nil {
				fn(e, applied)
			}
		}
	}
}
