package steprunner

import (
	"context"

	"github.com/arnavsurve/portalstep/pkg/types"
)

// StepRunner executes one step. Validate is always called before Run and is
// where runners parse and check their params.
type StepRunner interface {
	Validate() error
	Run(ctx context.Context) (*types.StepResult, error)
}
