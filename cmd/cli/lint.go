package cli

import (
	"fmt"

	"github.com/arnavsurve/portalstep/pkg/core"

	// Ensure all runner implementations are initialized
	_ "github.com/arnavsurve/portalstep/pkg/steprunner/runners"
)

type LintCmd struct {
	Workflow string   `arg:"" help:"The workflow file (YAML or JSON)." type:"path"`
	Vars     []string `arg:"" optional:"" help:"Variable overrides as key=value."`
	Varfile  string   `help:"The YAML varfile for input variables." default:"psvars.yml"`
	Debug    bool     `help:"Enable debug logging."`
}

func (l *LintCmd) Run() error {
	_, cmdLogger, err := newCommandLogger("", l.Debug)
	if err != nil {
		return err
	}

	wf, err := core.LoadWorkflowFromFile(l.Workflow)
	if err != nil {
		return fmt.Errorf("loading workflow file %q: %w", l.Workflow, err)
	}
	cmdLogger.Info().Msgf("Successfully loaded workflow: %q", wf.Name)
	for _, w := range core.StructureWarnings(wf) {
		cmdLogger.Warn().Msg(w)
	}

	workflowDir, err := workflowDirOf(l.Workflow)
	if err != nil {
		return err
	}

	varCtx, err := loadVars(wf, l.Varfile, l.Vars, cmdLogger)
	if err != nil {
		return err
	}

	if err := core.ValidateWorkflowRunners(wf, workflowDir, varCtx); err != nil {
		return fmt.Errorf("validating workflow: %w", err)
	}

	for _, entry := range core.UnresolvedPlaceholders(wf, varCtx) {
		cmdLogger.Warn().Msgf("Unresolved placeholder (left as-is at runtime): %s", entry)
	}

	cmdLogger.Info().Msg("Successfully validated workflow configuration ✅")
	return nil
}
