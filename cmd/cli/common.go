package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arnavsurve/portalstep/pkg/core"
	"github.com/arnavsurve/portalstep/pkg/fileutil"
	"github.com/arnavsurve/portalstep/pkg/log"
	"github.com/arnavsurve/portalstep/pkg/log/sinks"
	"github.com/rs/zerolog"
)

const (
	defaultVarfile = "psvars.yml"
	defaultLogsDir = ".portalstep/logs"
)

// newCommandLogger routes zerolog output to the console (stderr) and, when
// logFile is set, to a JSON log file.
func newCommandLogger(logFile string, debug bool) (*log.Router, *log.ZerologAdapter, error) {
	logRouter := log.NewRouter()
	logRouter.AddSink(sinks.NewConsoleSink())

	if logFile != "" {
		fileSink, err := sinks.NewFileSink(logFile)
		if err != nil {
			return nil, nil, fmt.Errorf("creating file log sink: %w", err)
		}
		logRouter.AddSink(fileSink)
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return logRouter, log.New(logRouter, level), nil
}

func workflowDirOf(workflowPath string) (string, error) {
	workflowAbsPath, err := filepath.Abs(workflowPath)
	if err != nil {
		return "", fmt.Errorf("determining absolute path for workflow file %q: %w", workflowPath, err)
	}
	return filepath.Dir(workflowAbsPath), nil
}

// loadVars builds the run's variables: input defaults, then the varfile,
// then key=value overrides. A missing varfile is only an error when the
// caller named one explicitly.
func loadVars(wf *core.Workflow, varfile string, overrides []string, logger core.Logger) (core.VarContext, error) {
	cliVars, err := core.ParseVarOverrides(overrides)
	if err != nil {
		return nil, err
	}

	fileVars := make(core.VarContext)
	if varfile != "" {
		if _, statErr := os.Stat(varfile); os.IsNotExist(statErr) {
			if varfile != defaultVarfile {
				return nil, fmt.Errorf("varfile %q not found", varfile)
			}
			logger.Debug().Msgf("Varfile %s not found. Proceeding without it.", varfile)
		} else {
			fileVars, err = core.ResolveVarfile(varfile, logger)
			if err != nil {
				return nil, err
			}
			logger.Info().Msgf("Loaded varfile: %s", varfile)
		}
	}

	for _, input := range wf.Inputs {
		_, inFile := fileVars[input.Name]
		_, inCLI := cliVars[input.Name]
		if !inFile && !inCLI && input.Default != "" {
			logger.Debug().Msgf("Using default value for input %q", input.Name)
		}
	}

	varCtx := core.MergeVars(wf, fileVars, cliVars)
	if err := core.ValidateRequiredInputs(wf, varCtx); err != nil {
		return nil, fmt.Errorf("validating required inputs: %w", err)
	}
	return varCtx, nil
}

func filepathFromWorkflow(workflowDir, p string) (string, error) {
	return fileutil.ResolvePathFromWorkflow(workflowDir, p)
}
