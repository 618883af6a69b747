package runners

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavsurve/portalstep/pkg/browser"
	"github.com/arnavsurve/portalstep/pkg/steprunner"
	"github.com/arnavsurve/portalstep/pkg/types"
)

type NavigateRunner struct {
	StepCtx types.ExecutionContext

	url       string
	waitUntil browser.WaitUntil
	timeout   time.Duration
}

func init() {
	steprunner.RegisterRunnerFactory(types.StepNavigate, func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &NavigateRunner{
			StepCtx: ctx,
		}, nil
	})
}

func (nr *NavigateRunner) Validate() error {
	step := nr.StepCtx.Step

	url, err := steprunner.RequireString(step, "url")
	if err != nil {
		return err
	}
	nr.url = url

	nr.waitUntil, err = browser.ParseWaitUntil(step.Params.String("wait_until"))
	if err != nil {
		return fmt.Errorf("navigate step %q: %w", step.ID, err)
	}

	nr.timeout, err = steprunner.Timeout(step, steprunner.DefaultTimeout)
	return err
}

func (nr *NavigateRunner) Run(ctx context.Context) (*types.StepResult, error) {
	logger := nr.StepCtx.Logger

	logger.Info().Str("url", nr.url).Str("wait_until", string(nr.waitUntil)).Msg("Navigating")

	opCtx, cancel := steprunner.WithTimeout(ctx, nr.timeout)
	defer cancel()
	if err := nr.StepCtx.Page.Navigate(opCtx, nr.url, nr.waitUntil); err != nil {
		return nil, fmt.Errorf("navigating to %q: %w", nr.url, err)
	}

	return &types.StepResult{Output: map[string]any{"url": nr.url}}, nil
}
