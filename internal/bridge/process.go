// Package bridge runs the external agent runtime as a subprocess and turns its
// JSON Lines output into agent events.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kuse-dev/cowork/internal/agent"
	"github.com/kuse-dev/cowork/internal/config"
	"github.com/kuse-dev/cowork/internal/log"
)

const (
	// eventBuffer bounds how far the reader may run ahead of the consumer.
	eventBuffer = 64
	// stderrTail is how many bytes of stderr are kept for error reports.
	stderrTail = 2048
	// maxLine is the longest stdout line accepted.
	maxLine = 4 * 1024 * 1024
)

// Env variable names exported to the agent process.
const (
	EnvAPIKey  = "COWORK_API_KEY"
	EnvModel   = "COWORK_MODEL"
	EnvBaseURL = "COWORK_BASE_URL"
)

// ProcessRunner implements agent.Runner by spawning a command per session.
type ProcessRunner struct {
	Command string
	Args    []string
	Dir     string        // working directory when the request has no project path
	Timeout time.Duration // 0 disables the timeout
	Env     []string      // extra KEY=VALUE entries appended to os.Environ
	Logger  *log.Logger

	lookPath func(string) (string, error)
}

// NewProcessRunner builds a runner from the agent and provider sections of cfg.
func NewProcessRunner(cfg *config.Config, logger *log.Logger) *ProcessRunner {
	var env []string
	if cfg.Provider.APIKey != "" {
		env = append(env, EnvAPIKey+"="+cfg.Provider.APIKey)
	}
	if cfg.Provider.Model != "" {
		env = append(env, EnvModel+"="+cfg.Provider.Model)
	}
	if cfg.Provider.BaseURL != "" {
		env = append(env, EnvBaseURL+"="+cfg.Provider.BaseURL)
	}

	return &ProcessRunner{
		Command: cfg.Agent.Command,
		Args:    append([]string(nil), cfg.Agent.Args...),
		Timeout: time.Duration(cfg.Agent.TimeoutSeconds) * time.Second,
		Env:     env,
		Logger:  logger,
	}
}

// Available reports whether the agent command can be found on this host.
func (r *ProcessRunner) Available() bool {
	if r.Command == "" {
		return false
	}
	look := r.lookPath
	if look == nil {
		look = exec.LookPath
	}
	_, err := look(r.Command)
	return err == nil
}

// RunSession starts the agent process, sends req on its stdin and streams the
// decoded events. The returned channel is closed after the process exits. If
// the process exits before sending done or error, a synthetic ErrorEvent is
// delivered first.
func (r *ProcessRunner) RunSession(ctx context.Context, req agent.Request) (<-chan agent.Event, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	// procCtx bounds the process; parent bounds delivery to the consumer.
	parent := ctx
	var procCtx context.Context
	var cancel context.CancelFunc
	if r.Timeout > 0 {
		procCtx, cancel = context.WithTimeout(parent, r.Timeout)
	} else {
		procCtx, cancel = context.WithCancel(parent)
	}

	cmd := exec.CommandContext(procCtx, r.Command, r.Args...)
	cmd.Dir = r.Dir
	if req.ProjectPath != "" {
		cmd.Dir = req.ProjectPath
	}
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Stdin = strings.NewReader(string(payload) + "\n")

	stderr := &tailBuffer{limit: stderrTail}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("starting %s: %w", r.Command, err)
	}

	events := make(chan agent.Event, eventBuffer)
	go func() {
		defer close(events)
		defer cancel()

		start := time.Now()
		terminal := r.pump(parent, stdout, events)
		waitErr := cmd.Wait()

		r.logEvent(log.LogEvent{
			Event:      log.EventBridgeExited,
			Status:     exitStatus(waitErr),
			DurationMs: time.Since(start).Milliseconds(),
			Data:       map[string]interface{}{"terminal": terminal},
		})

		if terminal {
			return
		}
		msg := exitMessage(parent, procCtx, r.Timeout, waitErr, stderr.String())
		send(parent, events, agent.ErrorEvent{Message: msg})
	}()

	return events, nil
}

// pump decodes stdout line by line into events until EOF. It reports whether
// a terminal event was forwarded.
func (r *ProcessRunner) pump(ctx context.Context, stdout io.Reader, events chan<- agent.Event) bool {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	terminal := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ev, err := agent.DecodeEvent([]byte(line))
		if err != nil {
			r.logEvent(log.LogEvent{Event: log.EventBridgeSkipped, Reason: err.Error(), Data: map[string]interface{}{"line": truncateLine(line)}})
			continue
		}
		if terminal {
			// Anything after the terminal event is dropped by the controller anyway.
			continue
		}
		if !send(ctx, events, ev) {
			// Keep draining stdout so the process is not blocked on a full pipe.
			continue
		}
		if agent.IsTerminal(ev) {
			terminal = true
		}
	}
	if err := scanner.Err(); err != nil {
		r.logEvent(log.LogEvent{Event: log.EventBridgeSkipped, Reason: "reading stdout", Error: err.Error()})
		// Unblock the child if it is still writing.
		_, _ = io.Copy(io.Discard, stdout)
	}
	return terminal
}

func (r *ProcessRunner) logEvent(e log.LogEvent) {
	if r.Logger == nil {
		return
	}
	_ = r.Logger.Append(e)
}

// send delivers ev, blocking until the consumer takes it or ctx is done.
// Delivery is preferred over cancellation when both are possible.
func send(ctx context.Context, events chan<- agent.Event, ev agent.Event) bool {
	select {
	case events <- ev:
		return true
	default:
	}
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// exitMessage describes why a process ended without a terminal event.
func exitMessage(parent, procCtx context.Context, timeout time.Duration, waitErr error, stderr string) string {
	var msg string
	switch {
	case parent.Err() == nil && errors.Is(procCtx.Err(), context.DeadlineExceeded):
		msg = fmt.Sprintf("agent timed out after %s", timeout)
	case waitErr != nil:
		msg = fmt.Sprintf("agent exited with error: %v", waitErr)
	default:
		msg = "agent exited without a result"
	}
	if tail := strings.TrimSpace(stderr); tail != "" {
		msg += "\nstderr: " + tail
	}
	return msg
}

func exitStatus(err error) string {
	if err == nil {
		return "ok"
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("exit %d", exitErr.ExitCode())
	}
	return "failed"
}

func truncateLine(s string) string {
	if len(s) <= 200 {
		return s
	}
	return s[:200] + "..."
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
