package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// StreamEmitter writes one JSON object per line to w.
type StreamEmitter struct {
	mu  sync.Mutex
	enc *json.Encoder

	// Redact, when set, is applied to every message before it is written.
	Redact func(string) string
	// Now stamps events that arrive without a timestamp.
	Now func() time.Time
}

func NewStreamEmitter(w io.Writer) *StreamEmitter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &StreamEmitter{enc: enc, Now: time.Now}
}

func (s *StreamEmitter) Emit(evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = s.Now().UTC()
	}
	if s.Redact != nil && evt.Message != "" {
		evt.Message = s.Redact(evt.Message)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(evt); err != nil {
		return fmt.Errorf("writing %s event: %w", evt.Type, err)
	}
	return nil
}

// Multi fans events out to several emitters, returning the joined errors.
type Multi []Emitter

func (m Multi) Emit(evt Event) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of type t, in order.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Paths returns the step paths of the recorded events of type t, in order.
func (r *Recorder) Paths(t Type) []string {
	var out []string
	for _, e := range r.OfType(t) {
		out = append(out, e.Step)
	}
	return out
}
