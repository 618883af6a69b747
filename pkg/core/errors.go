package core

import "fmt"

// StepError identifies the innermost step that failed. Enclosing control-flow
// steps pass it up unchanged, so the run reports the step that actually broke.
type StepError struct {
	Path     string
	StepID   string
	StepType string
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q (%s, %s) failed: %v", e.StepID, e.StepType, e.Path, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
