package runners

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavsurve/portalstep/pkg/steprunner"
	"github.com/arnavsurve/portalstep/pkg/types"
)

type ClickRunner struct {
	StepCtx types.ExecutionContext

	selector string
	timeout  time.Duration
}

func init() {
	steprunner.RegisterRunnerFactory(types.StepClick, func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &ClickRunner{
			StepCtx: ctx,
		}, nil
	})
}

func (cr *ClickRunner) Validate() error {
	step := cr.StepCtx.Step

	selector, err := steprunner.RequireString(step, "selector")
	if err != nil {
		return err
	}
	cr.selector = selector

	cr.timeout, err = steprunner.Timeout(step, steprunner.DefaultTimeout)
	return err
}

func (cr *ClickRunner) Run(ctx context.Context) (*types.StepResult, error) {
	cr.StepCtx.Logger.Debug().Str("selector", cr.selector).Msg("Clicking element")

	opCtx, cancel := steprunner.WithTimeout(ctx, cr.timeout)
	defer cancel()
	if err := cr.StepCtx.Page.Click(opCtx, cr.selector); err != nil {
		return nil, fmt.Errorf("clicking %q: %w", cr.selector, err)
	}
	return nil, nil
}
