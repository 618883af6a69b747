package runners_test

import (
	"context"
	"testing"

	"github.com/arnavsurve/portalstep/pkg/browser/browsertest"
	"github.com/arnavsurve/portalstep/pkg/events"
	"github.com/arnavsurve/portalstep/pkg/log"
	"github.com/arnavsurve/portalstep/pkg/steprunner"
	"github.com/arnavsurve/portalstep/pkg/types"
	"github.com/stretchr/testify/require"
)

type harness struct {
	page   *browsertest.Page
	events *events.Recorder
	run    *types.RunContext
	dir    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		page:   browsertest.New(),
		events: &events.Recorder{},
		run:    types.NewRunContext(nil),
		dir:    t.TempDir(),
	}
}

func (h *harness) ctx(step types.Step) types.ExecutionContext {
	return types.ExecutionContext{
		Step:        step,
		Path:        "1",
		Run:         h.run,
		Page:        h.page,
		Logger:      log.Nop(),
		WorkflowDir: h.dir,
		Events:      h.events,
	}
}

// runner resolves and validates the runner for step.
func (h *harness) runner(t *testing.T, ctx types.ExecutionContext) steprunner.StepRunner {
	t.Helper()
	r, err := steprunner.GetRunner(ctx)
	require.NoError(t, err)
	require.NoError(t, r.Validate())
	return r
}

func (h *harness) run1(t *testing.T, step types.Step) (*types.StepResult, error) {
	t.Helper()
	return h.runner(t, h.ctx(step)).Run(context.Background())
}

func step(id string, typ types.StepType, params types.Params) types.Step {
	return types.Step{ID: id, Type: typ, Params: params}
}

// fakeDispatcher records nested dispatches and the variables each one saw.
type fakeDispatcher struct {
	run   *types.RunContext
	calls []dispatch
	err   error
	// failOn makes the call with this parent path return err.
	failOn string
}

type dispatch struct {
	parentPath string
	stepIDs    []string
	vars       map[string]string
}

func (d *fakeDispatcher) RunSteps(_ context.Context, steps []types.Step, parentPath string) error {
	var ids []string
	for _, s := range steps {
		ids = append(ids, s.ID)
	}
	snapshot := make(map[string]string, len(d.run.Vars))
	for k, v := range d.run.Vars {
		snapshot[k] = v
	}
	d.calls = append(d.calls, dispatch{parentPath: parentPath, stepIDs: ids, vars: snapshot})
	if d.err != nil && (d.failOn == "" || d.failOn == parentPath) {
		return d.err
	}
	return nil
}
