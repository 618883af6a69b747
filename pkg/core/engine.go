package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/arnavsurve/portalstep/pkg/browser"
	"github.com/arnavsurve/portalstep/pkg/credentials"
	"github.com/arnavsurve/portalstep/pkg/events"
	"github.com/arnavsurve/portalstep/pkg/fileutil"
	"github.com/arnavsurve/portalstep/pkg/steprunner"
	"github.com/arnavsurve/portalstep/pkg/types"
)

const (
	DefaultDiagnosticsDir = ".portalstep/diagnostics"
	diagnosticTimeout     = 10 * time.Second
)

type WorkflowEngine struct {
	Logger      Logger
	Events      events.Emitter
	Credentials credentials.Provider

	// WorkflowDir anchors relative paths in step params.
	WorkflowDir string
	// DiagnosticsDir receives a screenshot of the page whenever a step fails.
	// Empty disables capture.
	DiagnosticsDir string
	RunID          string

	Now func() time.Time
}

func NewWorkflowEngine(logger Logger, emitter events.Emitter) *WorkflowEngine {
	if emitter == nil {
		emitter = events.Discard
	}
	return &WorkflowEngine{
		Logger:         logger,
		Events:         emitter,
		DiagnosticsDir: DefaultDiagnosticsDir,
		Now:            time.Now,
	}
}

// ExecuteWorkflow runs wf's steps on page, depth-first and strictly in order,
// stopping at the first failure. It emits start, then done or error. The
// returned RunContext holds the variables as the run left them.
func (e *WorkflowEngine) ExecuteWorkflow(ctx context.Context, wf *Workflow, page browser.Page, varCtx VarContext) (*types.RunContext, error) {
	run := types.NewRunContext(varCtx)

	e.emit(events.Event{Type: events.TypeStart, Workflow: wf.Name, RunID: e.RunID})
	e.Logger.Info().Str("workflow", wf.Name).Int("steps", len(wf.Steps)).Msg("Starting workflow")

	r := &workflowRun{engine: e, page: page, run: run}
	if err := r.RunSteps(ctx, wf.Steps, ""); err != nil {
		e.Fail(wf, err)
		return run, err
	}

	e.emit(events.Event{Type: events.TypeDone, Workflow: wf.Name, RunID: e.RunID})
	e.Logger.Info().Str("workflow", wf.Name).Msg("Workflow completed")
	return run, nil
}

// Fail reports a run-level failure. It is also how callers report failures
// that happen before any step runs, such as the browser not starting.
func (e *WorkflowEngine) Fail(wf *Workflow, err error) {
	name := ""
	if wf != nil {
		name = wf.Name
	}
	e.emit(events.Event{Type: events.TypeError, Workflow: name, RunID: e.RunID, Message: err.Error()})
	e.Logger.Error().Err(err).Msg("Workflow failed")
}

func (e *WorkflowEngine) emit(evt events.Event) {
	if evt.Timestamp.IsZero() && e.Now != nil {
		evt.Timestamp = e.Now().UTC()
	}
	if err := e.Events.Emit(evt); err != nil {
		e.Logger.Warn().Err(err).Str("event", string(evt.Type)).Msg("Could not emit event")
	}
}

// workflowRun is the dispatcher for one run. Control-flow runners reach it
// through ExecutionContext.Dispatcher.
type workflowRun struct {
	engine *WorkflowEngine
	page   browser.Page
	run    *types.RunContext
}

var _ types.Dispatcher = (*workflowRun)(nil)

func childPath(parent string, n int) string {
	if parent == "" {
		return strconv.Itoa(n)
	}
	return parent + "." + strconv.Itoa(n)
}

func (r *workflowRun) RunSteps(ctx context.Context, steps []types.Step, parentPath string) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled before step %q: %w", step.ID, err)
		}
		if err := r.runStep(ctx, step, childPath(parentPath, i+1)); err != nil {
			return err
		}
	}
	return nil
}

func (r *workflowRun) runStep(ctx context.Context, step types.Step, path string) error {
	e := r.engine
	r.run.StepPath = path

	logger := e.Logger.With().
		Str("step_id", step.ID).
		Str("step_type", string(step.Type)).
		Str("step_path", path).
		Logger()

	base := events.Event{
		StepID:   step.ID,
		StepType: string(step.Type),
		Label:    step.Label,
		Step:     path,
	}

	start := base
	start.Type = events.TypeStepStart
	e.emit(start)
	logger.Info().Msgf("Running step %q", step.DisplayName())

	resolved := step
	resolved.Params = ResolveParams(step.Params, r.run.Vars)

	execCtx := types.ExecutionContext{
		Step:        resolved,
		Path:        path,
		Run:         r.run,
		Page:        r.page,
		Logger:      logger,
		WorkflowDir: e.WorkflowDir,
		Credentials: e.Credentials,
		Events:      e.Events,
		Dispatcher:  r,
	}

	result, err := r.invoke(ctx, execCtx)
	if err != nil {
		var stepErr *StepError
		if !errors.As(err, &stepErr) {
			r.captureDiagnostic(ctx, step, path, logger)
			stepErr = &StepError{Path: path, StepID: step.ID, StepType: string(step.Type), Err: err}
			err = stepErr
		}

		failed := base
		failed.Type = events.TypeStepError
		failed.Message = stepErr.Err.Error()
		e.emit(failed)
		logger.Error().Err(stepErr.Err).Msg("Step failed")
		return err
	}

	done := base
	done.Type = events.TypeStepDone
	if result != nil {
		done.Result = result
	}
	e.emit(done)
	logger.Info().Msg("Step completed")
	return nil
}

func (r *workflowRun) invoke(ctx context.Context, execCtx types.ExecutionContext) (*types.StepResult, error) {
	runner, err := steprunner.GetRunner(execCtx)
	if err != nil {
		return nil, fmt.Errorf("getting runner for step %q: %w", execCtx.Step.ID, err)
	}
	if err := runner.Validate(); err != nil {
		return nil, fmt.Errorf("validating step %q: %w", execCtx.Step.ID, err)
	}
	return runner.Run(ctx)
}

// captureDiagnostic saves a screenshot of the page as it was when the step
// failed. Its own failures are logged and dropped.
func (r *workflowRun) captureDiagnostic(ctx context.Context, step types.Step, path string, logger Logger) {
	e := r.engine
	if e.DiagnosticsDir == "" || r.page == nil {
		return
	}

	name := fmt.Sprintf("%s_%s_%s.png",
		fileutil.SafeName(path),
		fileutil.SafeName(step.ID),
		e.Now().UTC().Format("20060102-150405"),
	)
	dir, err := fileutil.ResolvePathFromWorkflow(e.WorkflowDir, e.DiagnosticsDir)
	if err != nil {
		logger.Warn().Err(err).Msg("Could not resolve diagnostics directory")
		return
	}
	file := filepath.Join(dir, name)
	if err := fileutil.EnsureParentDir(file); err != nil {
		logger.Warn().Err(err).Msg("Could not create diagnostics directory")
		return
	}

	// The run context may already be cancelled; the capture gets its own budget.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), diagnosticTimeout)
	defer cancel()
	if err := r.page.Screenshot(dctx, file, true); err != nil {
		logger.Warn().Err(err).Msg("Could not capture diagnostic screenshot")
		return
	}
	logger.Info().Str("path", file).Msg("Saved diagnostic screenshot")
}
