package runners

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavsurve/portalstep/pkg/steprunner"
	"github.com/arnavsurve/portalstep/pkg/types"
)

type FillRunner struct {
	StepCtx types.ExecutionContext

	selector string
	value    string
	clear    bool
	timeout  time.Duration
}

func init() {
	steprunner.RegisterRunnerFactory(types.StepFill, func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &FillRunner{
			StepCtx: ctx,
		}, nil
	})
}

func (fr *FillRunner) Validate() error {
	step := fr.StepCtx.Step

	selector, err := steprunner.RequireString(step, "selector")
	if err != nil {
		return err
	}
	fr.selector = selector

	// An empty value is allowed (it clears the field), a missing one is not.
	if _, ok := step.Params["value"]; !ok {
		return fmt.Errorf("fill step %q must define 'value'", step.ID)
	}
	fr.value = step.Params.String("value")

	if fr.clear, err = step.Params.Bool("clear", true); err != nil {
		return fmt.Errorf("fill step %q: %w", step.ID, err)
	}

	fr.timeout, err = steprunner.Timeout(step, steprunner.DefaultTimeout)
	return err
}

func (fr *FillRunner) Run(ctx context.Context) (*types.StepResult, error) {
	fr.StepCtx.Logger.Debug().
		Str("selector", fr.selector).
		Int("length", len(fr.value)).
		Msg("Filling field")

	opCtx, cancel := steprunner.WithTimeout(ctx, fr.timeout)
	defer cancel()
	if err := fr.StepCtx.Page.Fill(opCtx, fr.selector, fr.value, fr.clear); err != nil {
		return nil, fmt.Errorf("filling %q: %w", fr.selector, err)
	}
	return nil, nil
}
