package runners

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavsurve/portalstep/pkg/browser"
	"github.com/arnavsurve/portalstep/pkg/steprunner"
	"github.com/arnavsurve/portalstep/pkg/types"
)

type WaitRunner struct {
	StepCtx types.ExecutionContext

	duration time.Duration
	selector string
	state    browser.ElementState
	timeout  time.Duration
}

func init() {
	steprunner.RegisterRunnerFactory(types.StepWait, func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &WaitRunner{
			StepCtx: ctx,
		}, nil
	})
}

func (wr *WaitRunner) Validate() error {
	step := wr.StepCtx.Step

	var err error
	if wr.duration, err = step.Params.Millis("duration", 0); err != nil {
		return fmt.Errorf("wait step %q: %w", step.ID, err)
	}

	wr.selector = step.Params.String("selector")
	if step.Params.Has("state") && wr.selector == "" {
		return fmt.Errorf("wait step %q defines 'state' without 'selector'", step.ID)
	}
	if wr.state, err = browser.ParseElementState(step.Params.String("state")); err != nil {
		return fmt.Errorf("wait step %q: %w", step.ID, err)
	}

	wr.timeout, err = steprunner.Timeout(step, steprunner.DefaultTimeout)
	return err
}

func (wr *WaitRunner) Run(ctx context.Context) (*types.StepResult, error) {
	logger := wr.StepCtx.Logger
	page := wr.StepCtx.Page

	if wr.duration > 0 {
		logger.Debug().Str("duration", wr.duration.String()).Msg("Sleeping")
		timer := time.NewTimer(wr.duration)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("waiting %s: %w", wr.duration, ctx.Err())
		}
	}

	if wr.selector != "" {
		logger.Debug().Str("selector", wr.selector).Str("state", string(wr.state)).Msg("Waiting for element")
		opCtx, cancel := steprunner.WithTimeout(ctx, wr.timeout)
		defer cancel()
		if err := page.WaitForSelector(opCtx, wr.selector, wr.state); err != nil {
			return nil, fmt.Errorf("waiting for %q to be %s: %w", wr.selector, wr.state, err)
		}
		return nil, nil
	}

	if wr.duration == 0 {
		logger.Debug().Msg("Waiting for network idle")
		opCtx, cancel := steprunner.WithTimeout(ctx, wr.timeout)
		defer cancel()
		if err := page.WaitForNetworkIdle(opCtx); err != nil {
			return nil, fmt.Errorf("waiting for network idle: %w", err)
		}
	}
	return nil, nil
}
