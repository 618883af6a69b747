package core

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/arnavsurve/portalstep/pkg/steprunner"
	"github.com/arnavsurve/portalstep/pkg/types"
)

var validInputTypes = map[string]bool{
	"string":  true,
	"file":    true,
	"number":  true,
	"boolean": true,
}

// ValidateWorkflowStructure checks fields at the workflow level: the name,
// input types/uniqueness, and step ids and types throughout the step tree.
// Unknown step types are left for dispatch (or ValidateWorkflowRunners).
func ValidateWorkflowStructure(wf *Workflow) error {
	if wf.Name == "" {
		return fmt.Errorf("workflow is missing 'name'")
	}

	inputNames := make(map[string]bool)
	for i, input := range wf.Inputs {
		if input.Name == "" {
			return fmt.Errorf("input %d is missing 'name'", i)
		}
		if inputNames[input.Name] {
			return fmt.Errorf("duplicate input name: %q", input.Name)
		}
		inputNames[input.Name] = true

		if input.Type == "" {
			continue
		}
		if !validInputTypes[input.Type] {
			return fmt.Errorf("input %q has invalid type %q", input.Name, input.Type)
		}
	}

	if len(wf.Steps) == 0 {
		return fmt.Errorf("workflow %q has no steps", wf.Name)
	}
	return validateSteps(wf.Steps, "")
}

// StructureWarnings reports settings that are valid but have no effect.
func StructureWarnings(wf *Workflow) []string {
	var warnings []string
	if wf.Browser.ContextDir != "" && !wf.Browser.Persistent {
		warnings = append(warnings, fmt.Sprintf("browser 'context_dir' %q is ignored unless 'persistent: true' is set", wf.Browser.ContextDir))
	}
	return warnings
}

func validateSteps(steps []types.Step, parentPath string) error {
	stepIDs := make(map[string]bool)
	for i, step := range steps {
		path := childPath(parentPath, i+1)
		if step.ID == "" {
			return fmt.Errorf("step %s is missing 'id'", path)
		}
		if stepIDs[step.ID] {
			return fmt.Errorf("duplicate step id %q at %s", step.ID, path)
		}
		stepIDs[step.ID] = true

		if step.Type == "" {
			return fmt.Errorf("step %q is missing 'type'", step.ID)
		}

		for _, key := range types.NestedStepKeys(step.Type) {
			nested, err := step.Params.Steps(key)
			if err != nil {
				return fmt.Errorf("step %q: %w", step.ID, err)
			}
			if err := validateSteps(nested, path); err != nil {
				return err
			}
		}
	}
	return nil
}

func ValidateRequiredInputs(wf *Workflow, varCtx VarContext) error {
	var missing []error
	for _, input := range wf.Inputs {
		if input.Required {
			if v, exists := varCtx[input.Name]; (!exists || v == "") && input.Default == "" {
				missing = append(missing, fmt.Errorf("required input %q is missing from the varfile and no default value is provided", input.Name))
			}
		}
	}
	return errors.Join(missing...)
}

// ValidateWorkflowRunners resolves a runner for every step in the tree and
// runs its Validate against params interpolated with varCtx. Loop bodies are
// checked with their index variable set to 1.
func ValidateWorkflowRunners(wf *Workflow, workflowDir string, varCtx VarContext) error {
	vars := make(map[string]string, len(varCtx))
	for k, v := range varCtx {
		vars[k] = v
	}
	return validateRunners(wf.Steps, "", workflowDir, vars)
}

func validateRunners(steps []types.Step, parentPath, workflowDir string, vars map[string]string) error {
	for i, step := range steps {
		path := childPath(parentPath, i+1)
		resolved := step
		resolved.Params = ResolveParams(step.Params, vars)

		ctx := types.ExecutionContext{
			Step:        resolved,
			Path:        path,
			Run:         types.NewRunContext(vars),
			WorkflowDir: workflowDir,
		}

		runner, err := steprunner.GetRunner(ctx)
		if err != nil {
			return fmt.Errorf("getting runner for step %q (%s): %w", step.ID, path, err)
		}

		if err = runner.Validate(); err != nil {
			return fmt.Errorf("validating step %q (%s): %w", step.ID, path, err)
		}

		nestedVars, nestedPath := vars, path
		if step.Type == types.StepLoop {
			nestedVars = make(map[string]string, len(vars)+1)
			for k, v := range vars {
				nestedVars[k] = v
			}
			nestedVars[step.Params.StringOr("index_var", "index")] = strconv.Itoa(1)
			nestedPath = path + ".1"
		}
		for _, key := range types.NestedStepKeys(step.Type) {
			nested, err := step.Params.Steps(key)
			if err != nil {
				return fmt.Errorf("step %q: %w", step.ID, err)
			}
			if err := validateRunners(nested, nestedPath, workflowDir, nestedVars); err != nil {
				return err
			}
		}
	}
	return nil
}

// UnresolvedPlaceholders reports {key} references in string params
// that nothing defines: not varCtx, not a loop index and not an extract_text
// variable. Each entry reads "<step id>: <identifier>".
func UnresolvedPlaceholders(wf *Workflow, varCtx VarContext) []string {
	defined := make(map[string]bool, len(varCtx))
	for k := range varCtx {
		defined[k] = true
	}
	walkSteps(wf.Steps, func(step types.Step) {
		switch step.Type {
		case types.StepLoop:
			defined[step.Params.StringOr("index_var", "index")] = true
		case types.StepExtractText:
			if v := step.Params.String("variable"); v != "" {
				defined[v] = true
			}
		}
	})

	var out []string
	seen := make(map[string]bool)
	walkSteps(wf.Steps, func(step types.Step) {
		for _, v := range step.Params {
			s, ok := v.(string)
			if !ok {
				continue
			}
			for _, key := range Placeholders(s) {
				entry := step.ID + ": " + key
				if defined[key] || seen[entry] {
					continue
				}
				seen[entry] = true
				out = append(out, entry)
			}
		}
	})
	sort.Strings(out)
	return out
}

// walkSteps visits every step of the tree depth-first. Nested lists that do
// not decode are skipped; ValidateWorkflowStructure reports them.
func walkSteps(steps []types.Step, visit func(types.Step)) {
	for _, step := range steps {
		visit(step)
		for _, key := range types.NestedStepKeys(step.Type) {
			nested, err := step.Params.Steps(key)
			if err != nil {
				continue
			}
			walkSteps(nested, visit)
		}
	}
}
