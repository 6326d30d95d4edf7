// Package agenttest provides in-process runners for exercising the agent
// controller without a backend process.
package agenttest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/kuse-dev/cowork/internal/agent"
)

// ScriptedRunner replays a fixed list of events for every session.
type ScriptedRunner struct {
	// Events is replayed in order for each RunSession call.
	Events []agent.Event
	// Unavailable makes Available report false.
	Unavailable bool
	// StartErr, when set, is returned by RunSession instead of a stream.
	StartErr error
	// Hold keeps the stream open after the script until Release is called.
	Hold bool

	mu       sync.Mutex
	requests []agent.Request
	release  chan struct{}
}

// NewScriptedRunner returns a runner replaying events.
func NewScriptedRunner(events ...agent.Event) *ScriptedRunner {
	return &ScriptedRunner{Events: events}
}

// Available implements agent.Runner.
func (r *ScriptedRunner) Available() bool {
	return !r.Unavailable
}

// RunSession implements agent.Runner.
func (r *ScriptedRunner) RunSession(ctx context.Context, req agent.Request) (<-chan agent.Event, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	if r.Hold && r.release == nil {
		r.release = make(chan struct{})
	}
	release := r.release
	r.mu.Unlock()

	if r.StartErr != nil {
		return nil, r.StartErr
	}

	out := make(chan agent.Event)
	events := append([]agent.Event(nil), r.Events...)
	go func() {
		defer close(out)
		for _, e := range events {
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
		if release != nil {
			select {
			case <-release:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

// Release lets held streams close.
func (r *ScriptedRunner) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.release != nil {
		close(r.release)
		r.release = nil
	}
}

// Requests returns the requests received so far.
func (r *ScriptedRunner) Requests() []agent.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]agent.Request(nil), r.requests...)
}

// Calls returns how many sessions were started.
func (r *ScriptedRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// ReadScript parses a JSON Lines event script, one event per line.
// Blank lines are skipped.
func ReadScript(rd io.Reader) ([]agent.Event, error) {
	var events []agent.Event
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		e, err := agent.DecodeEvent(line)
		if err != nil {
			return nil, fmt.Errorf("script line %d: %w", lineNum, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	if len(events) == 0 {
		return nil, errors.New("script has no events")
	}
	return events, nil
}
