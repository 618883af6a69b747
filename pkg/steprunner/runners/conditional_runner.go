package runners

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavsurve/portalstep/pkg/steprunner"
	"github.com/arnavsurve/portalstep/pkg/types"
)

const defaultProbeTimeout = 3 * time.Second

// ConditionalRunner probes for an element and runs exactly one of its two
// branches. A failed probe counts as "not found".
type ConditionalRunner struct {
	StepCtx types.ExecutionContext

	selector      string
	ifFound       []types.Step
	ifNotFound    []types.Step
	probeDuration time.Duration
}

func init() {
	steprunner.RegisterRunnerFactory(types.StepConditional, func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &ConditionalRunner{
			StepCtx: ctx,
		}, nil
	})
}

func (cr *ConditionalRunner) Validate() error {
	step := cr.StepCtx.Step

	var err error
	if cr.selector, err = steprunner.RequireString(step, "condition_selector"); err != nil {
		return err
	}
	if cr.ifFound, err = step.Params.Steps(types.ParamStepsIfFound); err != nil {
		return fmt.Errorf("conditional step %q: %w", step.ID, err)
	}
	if cr.ifNotFound, err = step.Params.Steps(types.ParamStepsIfNotFound); err != nil {
		return fmt.Errorf("conditional step %q: %w", step.ID, err)
	}

	cr.probeDuration, err = steprunner.Timeout(step, defaultProbeTimeout)
	return err
}

func (cr *ConditionalRunner) Run(ctx context.Context) (*types.StepResult, error) {
	execCtx := cr.StepCtx
	logger := execCtx.Logger
	if execCtx.Dispatcher == nil {
		return nil, fmt.Errorf("conditional step %q cannot dispatch nested steps", execCtx.Step.ID)
	}

	found := cr.probe(ctx)
	branch, name := cr.ifNotFound, types.ParamStepsIfNotFound
	if found {
		branch, name = cr.ifFound, types.ParamStepsIfFound
	}
	logger.Info().
		Str("selector", cr.selector).
		Str("branch", name).
		Int("steps", len(branch)).
		Msg("Condition evaluated")

	if err := execCtx.Dispatcher.RunSteps(ctx, branch, execCtx.Path); err != nil {
		return nil, fmt.Errorf("conditional %q %s: %w", execCtx.Step.ID, name, err)
	}
	return &types.StepResult{Output: map[string]any{"found": found}}, nil
}

func (cr *ConditionalRunner) probe(ctx context.Context) bool {
	probeCtx, cancel := steprunner.WithTimeout(ctx, cr.probeDuration)
	defer cancel()
	visible, err := cr.StepCtx.Page.IsVisible(probeCtx, cr.selector)
	if err != nil {
		cr.StepCtx.Logger.Debug().Err(err).Str("selector", cr.selector).Msg("Condition probe failed, treating as not found")
		return false
	}
	return visible
}
