package runners

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavsurve/portalstep/pkg/steprunner"
	"github.com/arnavsurve/portalstep/pkg/types"
)

type KeyboardRunner struct {
	StepCtx types.ExecutionContext

	key      string
	selector string
	timeout  time.Duration
}

func init() {
	steprunner.RegisterRunnerFactory(types.StepKeyboard, func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &KeyboardRunner{
			StepCtx: ctx,
		}, nil
	})
}

func (kr *KeyboardRunner) Validate() error {
	step := kr.StepCtx.Step

	key, err := steprunner.RequireString(step, "key")
	if err != nil {
		return err
	}
	kr.key = key
	kr.selector = step.Params.String("selector")

	kr.timeout, err = steprunner.Timeout(step, steprunner.DefaultTimeout)
	return err
}

func (kr *KeyboardRunner) Run(ctx context.Context) (*types.StepResult, error) {
	logger := kr.StepCtx.Logger
	logger.Debug().Str("key", kr.key).Str("selector", kr.selector).Msg("Pressing key")

	opCtx, cancel := steprunner.WithTimeout(ctx, kr.timeout)
	defer cancel()
	if err := kr.StepCtx.Page.Press(opCtx, kr.selector, kr.key); err != nil {
		if kr.selector != "" {
			return nil, fmt.Errorf("pressing %q on %q: %w", kr.key, kr.selector, err)
		}
		return nil, fmt.Errorf("pressing %q: %w", kr.key, err)
	}
	return nil, nil
}
