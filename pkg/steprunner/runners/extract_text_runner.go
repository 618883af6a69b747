package runners

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arnavsurve/portalstep/pkg/steprunner"
	"github.com/arnavsurve/portalstep/pkg/types"
)

type ExtractTextRunner struct {
	StepCtx types.ExecutionContext

	selector string
	variable string
	timeout  time.Duration
}

func init() {
	steprunner.RegisterRunnerFactory(types.StepExtractText, func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &ExtractTextRunner{
			StepCtx: ctx,
		}, nil
	})
}

func (er *ExtractTextRunner) Validate() error {
	step := er.StepCtx.Step

	var err error
	if er.selector, err = steprunner.RequireString(step, "selector"); err != nil {
		return err
	}
	if er.variable, err = steprunner.RequireString(step, "variable"); err != nil {
		return err
	}

	er.timeout, err = steprunner.Timeout(step, steprunner.DefaultTimeout)
	return err
}

func (er *ExtractTextRunner) Run(ctx context.Context) (*types.StepResult, error) {
	if er.StepCtx.Run == nil {
		return nil, fmt.Errorf("extract_text step %q has no run context", er.StepCtx.Step.ID)
	}

	opCtx, cancel := steprunner.WithTimeout(ctx, er.timeout)
	defer cancel()
	text, err := er.StepCtx.Page.TextContent(opCtx, er.selector)
	if err != nil {
		return nil, fmt.Errorf("reading text of %q: %w", er.selector, err)
	}

	value := strings.TrimSpace(text)
	er.StepCtx.Run.Vars[er.variable] = value

	er.StepCtx.Logger.Info().
		Str("variable", er.variable).
		Int("length", len(value)).
		Msg("Stored extracted text")

	return &types.StepResult{Output: map[string]any{
		"variable": er.variable,
		"value":    value,
	}}, nil
}
