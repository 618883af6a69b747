package runners

import (
	"context"
	"fmt"
	"strconv"

	"github.com/arnavsurve/portalstep/pkg/steprunner"
	"github.com/arnavsurve/portalstep/pkg/types"
)

const defaultIndexVar = "index"

// LoopRunner runs its nested steps count times. Each iteration sees the
// 1-based iteration number in the index variable and its children are
// numbered <path>.<iteration>.<n>.
type LoopRunner struct {
	StepCtx types.ExecutionContext

	count    int
	indexVar string
	steps    []types.Step
}

func init() {
	steprunner.RegisterRunnerFactory(types.StepLoop, func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &LoopRunner{
			StepCtx: ctx,
		}, nil
	})
}

func (lr *LoopRunner) Validate() error {
	step := lr.StepCtx.Step

	if !step.Params.Has("count") {
		return fmt.Errorf("loop step %q must define 'count'", step.ID)
	}
	count, err := step.Params.Int("count", 0)
	if err != nil {
		return fmt.Errorf("loop step %q: %w", step.ID, err)
	}
	if count < 0 {
		return fmt.Errorf("loop step %q: 'count' must not be negative, got %d", step.ID, count)
	}
	lr.count = count

	if lr.steps, err = step.Params.Steps(types.ParamSteps); err != nil {
		return fmt.Errorf("loop step %q: %w", step.ID, err)
	}
	lr.indexVar = step.Params.StringOr("index_var", defaultIndexVar)
	return nil
}

func (lr *LoopRunner) Run(ctx context.Context) (*types.StepResult, error) {
	execCtx := lr.StepCtx
	if execCtx.Dispatcher == nil || execCtx.Run == nil {
		return nil, fmt.Errorf("loop step %q cannot dispatch nested steps", execCtx.Step.ID)
	}

	vars := execCtx.Run.Vars
	previous, hadPrevious := vars[lr.indexVar]
	defer func() {
		if hadPrevious {
			vars[lr.indexVar] = previous
		} else {
			delete(vars, lr.indexVar)
		}
	}()

	for i := 1; i <= lr.count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vars[lr.indexVar] = strconv.Itoa(i)
		steprunner.EmitStatus(execCtx, fmt.Sprintf("Iteration %d of %d", i, lr.count))
		execCtx.Logger.Debug().Int("iteration", i).Msg("Starting loop iteration")

		if err := execCtx.Dispatcher.RunSteps(ctx, lr.steps, execCtx.Path+"."+strconv.Itoa(i)); err != nil {
			return nil, fmt.Errorf("loop %q iteration %d: %w", execCtx.Step.ID, i, err)
		}
	}

	return &types.StepResult{Output: map[string]any{"iterations": lr.count}}, nil
}
