package runners

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavsurve/portalstep/pkg/steprunner"
	"github.com/arnavsurve/portalstep/pkg/types"
)

type SelectRunner struct {
	StepCtx types.ExecutionContext

	selector string
	values   []string
	timeout  time.Duration
}

func init() {
	steprunner.RegisterRunnerFactory(types.StepSelect, func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &SelectRunner{
			StepCtx: ctx,
		}, nil
	})
}

func (sr *SelectRunner) Validate() error {
	step := sr.StepCtx.Step

	selector, err := steprunner.RequireString(step, "selector")
	if err != nil {
		return err
	}
	sr.selector = selector

	hasValue, hasValues := step.Params.Has("value"), step.Params.Has("values")
	switch {
	case hasValue && hasValues:
		return fmt.Errorf("select step %q must only define either 'value' or 'values'", step.ID)
	case hasValue:
		sr.values = []string{step.Params.String("value")}
	case hasValues:
		if sr.values, err = step.Params.Strings("values"); err != nil {
			return fmt.Errorf("select step %q: %w", step.ID, err)
		}
	}
	if len(sr.values) == 0 {
		return fmt.Errorf("select step %q must define either 'value' or 'values'", step.ID)
	}

	sr.timeout, err = steprunner.Timeout(step, steprunner.DefaultTimeout)
	return err
}

func (sr *SelectRunner) Run(ctx context.Context) (*types.StepResult, error) {
	sr.StepCtx.Logger.Debug().
		Str("selector", sr.selector).
		Interface("values", sr.values).
		Msg("Selecting options")

	opCtx, cancel := steprunner.WithTimeout(ctx, sr.timeout)
	defer cancel()
	if err := sr.StepCtx.Page.Select(opCtx, sr.selector, sr.values); err != nil {
		return nil, fmt.Errorf("selecting %v in %q: %w", sr.values, sr.selector, err)
	}
	return nil, nil
}
