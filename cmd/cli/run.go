package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/arnavsurve/portalstep/pkg/browser"
	"github.com/arnavsurve/portalstep/pkg/core"
	"github.com/arnavsurve/portalstep/pkg/credentials"
	"github.com/arnavsurve/portalstep/pkg/events"
	"github.com/arnavsurve/portalstep/pkg/security"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	// Ensure all runner implementations are initialized
	_ "github.com/arnavsurve/portalstep/pkg/steprunner/runners"
)

type RunCmd struct {
	Workflow string   `arg:"" help:"The workflow file (YAML or JSON)." type:"path"`
	Vars     []string `arg:"" optional:"" help:"Variable overrides as key=value."`

	Varfile        string `help:"The YAML varfile for input variables." default:"psvars.yml"`
	Credentials    string `help:"Credential file. Defaults to $PORTALSTEP_CREDENTIALS_FILE, then ~/.portalstep/credentials.json." type:"path"`
	DiagnosticsDir string `help:"Where a screenshot is saved when a step fails." default:".portalstep/diagnostics" type:"path"`
	LogsDir        string `help:"Where the JSON log of the run is written." default:".portalstep/logs" type:"path"`
	Strict         bool   `help:"Validate every step, nested ones included, before starting the browser."`
	Debug          bool   `help:"Enable debug logging."`

	// Stdout receives the event stream. Nil means os.Stdout.
	Stdout io.Writer `kong:"-"`
}

func (r *RunCmd) Run() error {
	wfRunID := uuid.New().String()

	logFilePath := filepath.Join(r.LogsDir, fmt.Sprintf("%s.json", wfRunID))
	logRouter, cmdLogger, err := newCommandLogger(logFilePath, r.Debug)
	if err != nil {
		return err
	}
	defer func() {
		if err := logRouter.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during log shutdown: %v\n", err)
		}
	}()

	cmdLogger.Info().Msgf("Starting workflow run with ID: %s", wfRunID)
	cmdLogger.Info().Msgf("Logs will be saved to %q", logFilePath)

	stdout := r.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	redactor := security.NewRedactor(nil, nil)
	logRouter.Redactor = redactor
	emitter := events.NewStreamEmitter(stdout)
	emitter.Redact = redactor.Redact

	engine := core.NewWorkflowEngine(cmdLogger, emitter)
	engine.RunID = wfRunID
	engine.DiagnosticsDir = r.DiagnosticsDir

	if err := godotenv.Load(); err != nil {
		cmdLogger.Debug().Err(err).Msg("No .env file loaded. Relying on existing ENV for {env.*} values")
	}

	wf, err := core.LoadWorkflowFromFile(r.Workflow)
	if err != nil {
		err = fmt.Errorf("loading workflow file %q: %w", r.Workflow, err)
		engine.Fail(nil, err)
		return err
	}
	cmdLogger.Info().Msgf("Successfully loaded workflow: %q", wf.Name)
	for _, w := range core.StructureWarnings(wf) {
		cmdLogger.Warn().Msg(w)
	}

	workflowDir, err := workflowDirOf(r.Workflow)
	if err != nil {
		engine.Fail(wf, err)
		return err
	}
	engine.WorkflowDir = workflowDir

	varCtx, err := loadVars(wf, r.Varfile, r.Vars, cmdLogger)
	if err != nil {
		engine.Fail(wf, err)
		return err
	}
	for _, secret := range security.NewRedactor(wf.Inputs, varCtx).Secrets() {
		redactor.Add(secret)
	}

	credsPath := r.Credentials
	if credsPath == "" {
		credsPath = credentials.DefaultPath()
	}
	credsProvider := credentials.NewFileProvider(credsPath)
	credsProvider.OnLoad = func(c credentials.Credentials) {
		redactor.Add(c.Password)
	}
	engine.Credentials = credsProvider

	if r.Strict {
		if err := core.ValidateWorkflowRunners(wf, workflowDir, varCtx); err != nil {
			err = fmt.Errorf("validating workflow: %w", err)
			engine.Fail(wf, err)
			return err
		}
		cmdLogger.Info().Msg("Workflow validation passed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	browserCfg := wf.Browser
	if browserCfg.ContextDir != "" {
		if browserCfg.ContextDir, err = filepathFromWorkflow(workflowDir, browserCfg.ContextDir); err != nil {
			engine.Fail(wf, err)
			return err
		}
	}

	cmdLogger.Info().
		Interface("persistent", browserCfg.Persistent).
		Interface("headless", browserCfg.Headless).
		Msg("Starting browser")
	session, err := browser.Acquire(ctx, browserCfg)
	if err != nil {
		err = fmt.Errorf("acquiring browser session: %w", err)
		engine.Fail(wf, err)
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			cmdLogger.Warn().Err(err).Msg("Error releasing browser session")
		}
	}()
	if session.Persistent() {
		cmdLogger.Info().Msg("Using persistent browser profile; saved logins are kept after the run")
	}

	cmdLogger.Info().Msgf("Executing workflow: %q", wf.Name)
	if _, err := engine.ExecuteWorkflow(ctx, wf, session.Page(), varCtx); err != nil {
		return err
	}

	cmdLogger.Info().Msgf("Workflow completed successfully. Logs can be found at %q", logFilePath)
	return nil
}
