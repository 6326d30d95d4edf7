// Package agent holds the session controller that turns the event stream of an
// external agent runtime into a renderable transcript.
package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Wire type tags.
const (
	TypeText         = "text"
	TypeToolStart    = "tool_start"
	TypeToolEnd      = "tool_end"
	TypeTurnComplete = "turn_complete"
	TypeDone         = "done"
	TypeError        = "error"
	TypePlan         = "plan"
	TypeStepStart    = "step_start"
	TypeStepDone     = "step_done"
)

// Event is one message of the agent runtime's stream. The set of
// implementations is closed; see the Type* constants for the wire tags.
type Event interface {
	// Type returns the wire tag of the event.
	Type() string
	isAgentEvent()
}

// TextEvent carries the full text produced so far. It supersedes any earlier
// TextEvent rather than extending it.
type TextEvent struct {
	Content string
}

// ToolStartEvent reports that the runtime began executing a tool.
type ToolStartEvent struct {
	Tool  string
	Input map[string]any
	// InputKeys lists the keys of Input in the order they appeared on the wire.
	InputKeys []string
}

// ToolEndEvent reports the outcome of a tool started earlier.
type ToolEndEvent struct {
	Tool    string
	Result  string
	Success bool
}

// TurnCompleteEvent carries the runtime's authoritative turn number.
type TurnCompleteEvent struct {
	Turn int
}

// DoneEvent ends a session successfully.
type DoneEvent struct {
	TotalTurns int
}

// ErrorEvent ends a session with a failure reported by the runtime.
type ErrorEvent struct {
	Message string
}

// PlanStep is one entry of the plan announced by the runtime.
type PlanStep struct {
	Step        int    `json:"step"`
	Description string `json:"description"`
}

// PlanEvent announces the steps the runtime intends to carry out.
type PlanEvent struct {
	Steps []PlanStep
}

// StepStartEvent marks a plan step as started.
type StepStartEvent struct {
	Step int
}

// StepDoneEvent marks a plan step as finished.
type StepDoneEvent struct {
	Step int
}

func (TextEvent) Type() string         { return TypeText }
func (ToolStartEvent) Type() string    { return TypeToolStart }
func (ToolEndEvent) Type() string      { return TypeToolEnd }
func (TurnCompleteEvent) Type() string { return TypeTurnComplete }
func (DoneEvent) Type() string         { return TypeDone }
func (ErrorEvent) Type() string        { return TypeError }
func (PlanEvent) Type() string         { return TypePlan }
func (StepStartEvent) Type() string    { return TypeStepStart }
func (StepDoneEvent) Type() string     { return TypeStepDone }

func (TextEvent) isAgentEvent()         {}
func (ToolStartEvent) isAgentEvent()    {}
func (ToolEndEvent) isAgentEvent()      {}
func (TurnCompleteEvent) isAgentEvent() {}
func (DoneEvent) isAgentEvent()         {}
func (ErrorEvent) isAgentEvent()        {}
func (PlanEvent) isAgentEvent()         {}
func (StepStartEvent) isAgentEvent()    {}
func (StepDoneEvent) isAgentEvent()     {}

// IsTerminal reports whether e ends a session.
func IsTerminal(e Event) bool {
	switch e.(type) {
	case DoneEvent, ErrorEvent:
		return true
	}
	return false
}

// wireEvent is the JSON envelope shared by all event kinds.
type wireEvent struct {
	Type       string          `json:"type"`
	Content    string          `json:"content,omitempty"`
	Tool       string          `json:"tool,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Result     string          `json:"result,omitempty"`
	Success    *bool           `json:"success,omitempty"`
	Turn       int             `json:"turn,omitempty"`
	TotalTurns int             `json:"total_turns,omitempty"`
	Message    string          `json:"message,omitempty"`
	Steps      []PlanStep      `json:"steps,omitempty"`
	Step       int             `json:"step,omitempty"`
}

// DecodeEvent parses a single JSON-encoded event.
// Unknown type tags return an error wrapping ErrUnknownEvent.
func DecodeEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	switch w.Type {
	case TypeText:
		return TextEvent{Content: w.Content}, nil
	case TypeToolStart:
		input, keys, err := decodeInput(w.Input)
		if err != nil {
			return nil, fmt.Errorf("decode %s input: %w", w.Type, err)
		}
		return ToolStartEvent{Tool: w.Tool, Input: input, InputKeys: keys}, nil
	case TypeToolEnd:
		return ToolEndEvent{Tool: w.Tool, Result: w.Result, Success: w.Success != nil && *w.Success}, nil
	case TypeTurnComplete:
		return TurnCompleteEvent{Turn: w.Turn}, nil
	case TypeDone:
		return DoneEvent{TotalTurns: w.TotalTurns}, nil
	case TypeError:
		return ErrorEvent{Message: w.Message}, nil
	case TypePlan:
		return PlanEvent{Steps: w.Steps}, nil
	case TypeStepStart:
		return StepStartEvent{Step: w.Step}, nil
	case TypeStepDone:
		return StepDoneEvent{Step: w.Step}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, w.Type)
	}
}

// EncodeEvent renders e in the wire format accepted by DecodeEvent.
func EncodeEvent(e Event) ([]byte, error) {
	w := wireEvent{Type: e.Type()}

	switch ev := e.(type) {
	case TextEvent:
		w.Content = ev.Content
	case ToolStartEvent:
		raw, err := encodeInput(ev.InputKeys, ev.Input)
		if err != nil {
			return nil, fmt.Errorf("encode %s input: %w", w.Type, err)
		}
		w.Tool = ev.Tool
		w.Input = raw
	case ToolEndEvent:
		success := ev.Success
		w.Tool = ev.Tool
		w.Result = ev.Result
		w.Success = &success
	case TurnCompleteEvent:
		w.Turn = ev.Turn
	case DoneEvent:
		w.TotalTurns = ev.TotalTurns
	case ErrorEvent:
		w.Message = ev.Message
	case PlanEvent:
		w.Steps = ev.Steps
	case StepStartEvent:
		w.Step = ev.Step
	case StepDoneEvent:
		w.Step = ev.Step
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEvent, e)
	}

	return json.Marshal(w)
}

// decodeInput decodes a tool input object, keeping the wire order of its keys.
func decodeInput(raw json.RawMessage) (map[string]any, []string, error) {
	input := map[string]any{}
	if len(raw) == 0 || string(raw) == "null" {
		return input, nil, nil
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil { // opening brace
		return nil, nil, err
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, nil, err
		}
	}

	return input, dedupeKeys(keys), nil
}

// encodeInput writes input as a JSON object following keys, then any
// remaining keys in map order.
func encodeInput(keys []string, input map[string]any) (json.RawMessage, error) {
	if input == nil {
		return json.RawMessage("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range orderedKeys(keys, input) {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(input[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// dedupeKeys keeps the last position of repeated keys, matching the value
// encoding/json retains for duplicates.
func dedupeKeys(keys []string) []string {
	last := make(map[string]int, len(keys))
	for i, k := range keys {
		last[k] = i
	}
	out := keys[:0:0]
	for i, k := range keys {
		if last[k] == i {
			out = append(out, k)
		}
	}
	return out
}
