package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadWorkflowFromFile reads a YAML (or JSON) workflow document and checks
// its structure.
func LoadWorkflowFromFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow file %q: %w", path, err)
	}

	return ParseWorkflow(data)
}

func ParseWorkflow(data []byte) (*Workflow, error) {
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parsing workflow YAML: %w", err)
	}

	if err := ValidateWorkflowStructure(&wf); err != nil {
		return nil, fmt.Errorf("invalid workflow: %w", err)
	}

	return &wf, nil
}
