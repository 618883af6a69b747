// Package events defines the line-delimited JSON protocol a run reports its
// progress on, and the emitters that carry it.
package events

import "time"

// Type identifies an event. Consumers must ignore types they do not know.
type Type string

const (
	TypeStart     Type = "start"
	TypeStepStart Type = "step_start"
	TypeStepDone  Type = "step_done"
	TypeStepError Type = "step_error"
	TypeStatus    Type = "status"
	TypeDone      Type = "done"
	TypeError     Type = "error"
)

// Event is one line of the stream.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	Workflow string `json:"workflow,omitempty"`
	RunID    string `json:"run_id,omitempty"`

	StepID   string `json:"step_id,omitempty"`
	StepType string `json:"step_type,omitempty"`
	Label    string `json:"label,omitempty"`
	// Step is the dotted hierarchical path of the step, e.g. "3.2.1".
	Step string `json:"step,omitempty"`

	Result  any    `json:"result,omitempty"`
	Message string `json:"message,omitempty"`
}

// Emitter delivers events to the caller.
type Emitter interface {
	Emit(evt Event) error
}

// Discard drops every event.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(Event) error { return nil }
