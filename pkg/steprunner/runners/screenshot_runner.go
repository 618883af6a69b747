package runners

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavsurve/portalstep/pkg/fileutil"
	"github.com/arnavsurve/portalstep/pkg/steprunner"
	"github.com/arnavsurve/portalstep/pkg/types"
)

const defaultScreenshotDir = "screenshots"

// now is replaced in tests.
var now = time.Now

type ScreenshotRunner struct {
	StepCtx types.ExecutionContext

	path     string
	fullPage bool
	timeout  time.Duration
}

func init() {
	steprunner.RegisterRunnerFactory(types.StepScreenshot, func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &ScreenshotRunner{
			StepCtx: ctx,
		}, nil
	})
}

func (sr *ScreenshotRunner) Validate() error {
	step := sr.StepCtx.Step

	var err error
	if sr.fullPage, err = step.Params.Bool("full_page", true); err != nil {
		return fmt.Errorf("screenshot step %q: %w", step.ID, err)
	}

	sr.path = step.Params.String("path")
	if sr.path == "" {
		name := fmt.Sprintf("%s-%s.png", fileutil.SafeName(step.ID), now().UTC().Format("20060102-150405"))
		sr.path = defaultScreenshotDir + "/" + name
	}

	sr.timeout, err = steprunner.Timeout(step, steprunner.DefaultTimeout)
	return err
}

func (sr *ScreenshotRunner) Run(ctx context.Context) (*types.StepResult, error) {
	path, err := fileutil.ResolvePathFromWorkflow(sr.StepCtx.WorkflowDir, sr.path)
	if err != nil {
		return nil, fmt.Errorf("error resolving screenshot path: %w", err)
	}
	if err := fileutil.EnsureParentDir(path); err != nil {
		return nil, err
	}

	opCtx, cancel := steprunner.WithTimeout(ctx, sr.timeout)
	defer cancel()
	if err := sr.StepCtx.Page.Screenshot(opCtx, path, sr.fullPage); err != nil {
		return nil, fmt.Errorf("capturing screenshot to %q: %w", path, err)
	}

	sr.StepCtx.Logger.Info().Str("path", path).Msg("Saved screenshot")
	return &types.StepResult{Output: path, OutputFile: path}, nil
}
