package types

import (
	"context"

	"github.com/arnavsurve/portalstep/pkg/browser"
	"github.com/arnavsurve/portalstep/pkg/credentials"
	"github.com/arnavsurve/portalstep/pkg/events"
)

// Step is one node of the workflow tree.
type Step struct {
	ID     string   `yaml:"id" json:"id"`
	Type   StepType `yaml:"type" json:"type"`
	Label  string   `yaml:"label,omitempty" json:"label,omitempty"`
	Params Params   `yaml:"params,omitempty" json:"params,omitempty"`
}

// DisplayName is the label when set, otherwise the id.
func (s Step) DisplayName() string {
	if s.Label != "" {
		return s.Label
	}
	return s.ID
}

// RunContext is the mutable state of one workflow run. It is owned by a
// single run and only touched by the step currently executing.
type RunContext struct {
	Vars map[string]string
	// StepPath is the dotted position of the executing step ("3.2.1"),
	// used for reporting only.
	StepPath string
}

// NewRunContext copies vars into a fresh RunContext.
func NewRunContext(vars map[string]string) *RunContext {
	rc := &RunContext{Vars: make(map[string]string, len(vars))}
	for k, v := range vars {
		rc.Vars[k] = v
	}
	return rc
}

// Dispatcher runs a nested step list as children of parentPath.
// Control-flow runners use it to recurse into the engine.
type Dispatcher interface {
	RunSteps(ctx context.Context, steps []Step, parentPath string) error
}

// ExecutionContext contains the context needed for step execution
type ExecutionContext struct {
	// Step has its string params already interpolated.
	Step        Step
	Path        string
	Run         *RunContext
	Page        browser.Page
	Logger      Logger
	WorkflowDir string
	Credentials credentials.Provider
	Events      events.Emitter
	Dispatcher  Dispatcher
}
