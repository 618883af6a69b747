package main

import (
	"github.com/alecthomas/kong"
	"github.com/arnavsurve/portalstep/cmd/cli"
)

var version = "dev"

var CLI struct {
	Run     cli.RunCmd       `cmd:"" help:"Run a workflow in a browser, streaming events to stdout."`
	Lint    cli.LintCmd      `cmd:"" help:"Validate a workflow without starting a browser."`
	Version kong.VersionFlag `help:"Print the version and exit."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("portalstep"),
		kong.Description("Declarative browser workflows for authenticated portals."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
