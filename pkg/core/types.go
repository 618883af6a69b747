package core

import (
	"github.com/arnavsurve/portalstep/pkg/browser"
	"github.com/arnavsurve/portalstep/pkg/types"
)

type Input struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required,omitempty"`
	Secret   bool   `yaml:"secret,omitempty"`
	Default  string `yaml:"default,omitempty"`
}

type Workflow struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Inputs      []Input        `yaml:"inputs,omitempty"`
	Browser     browser.Config `yaml:"browser"`
	Steps       []Step         `yaml:"steps"`
}

type Step = types.Step

type StepResult = types.StepResult

type ExecutionContext = types.ExecutionContext

type Logger = types.Logger

type Level = types.Level

// Level constants
const (
	DebugLevel = types.DebugLevel
	InfoLevel  = types.InfoLevel
	WarnLevel  = types.WarnLevel
	ErrorLevel = types.ErrorLevel
	FatalLevel = types.FatalLevel
)
