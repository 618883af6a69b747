package runners

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/arnavsurve/portalstep/pkg/fileutil"
	"github.com/arnavsurve/portalstep/pkg/steprunner"
	"github.com/arnavsurve/portalstep/pkg/types"
)

const (
	defaultDownloadDir     = "downloads"
	defaultDownloadTimeout = 60 * time.Second
)

type DownloadRunner struct {
	StepCtx types.ExecutionContext

	selector string
	dir      string
	timeout  time.Duration
}

func init() {
	steprunner.RegisterRunnerFactory(types.StepDownload, func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &DownloadRunner{
			StepCtx: ctx,
		}, nil
	})
}

func (dr *DownloadRunner) Validate() error {
	step := dr.StepCtx.Step

	var err error
	if dr.selector, err = steprunner.RequireString(step, "selector"); err != nil {
		return err
	}
	dr.dir = step.Params.StringOr("dir", defaultDownloadDir)

	dr.timeout, err = steprunner.Timeout(step, defaultDownloadTimeout)
	return err
}

func (dr *DownloadRunner) Run(ctx context.Context) (*types.StepResult, error) {
	logger := dr.StepCtx.Logger

	dir, err := fileutil.ResolvePathFromWorkflow(dr.StepCtx.WorkflowDir, dr.dir)
	if err != nil {
		return nil, fmt.Errorf("error resolving download dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating download dir %q: %w", dir, err)
	}

	logger.Info().Str("selector", dr.selector).Str("dir", dir).Msg("Starting download")

	opCtx, cancel := steprunner.WithTimeout(ctx, dr.timeout)
	defer cancel()
	path, err := dr.StepCtx.Page.Download(opCtx, dr.selector, dir)
	if err != nil {
		return nil, fmt.Errorf("downloading via %q: %w", dr.selector, err)
	}

	logger.Info().Str("path", path).Msg("Download saved")
	return &types.StepResult{Output: path, OutputFile: path}, nil
}
