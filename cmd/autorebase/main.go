package main

import (
	"os"

	"github.com/alecthomas/kong"

	"github.com/refactorproject/autorebase/lib/workspace"
)

var cli struct {
	Workspace string `short:"w" help:"Workspace to store run history. Default is ./.autorebase or ~/.autorebase if that does not exist." type:"path"`

	Retarget RetargetCmd `cmd:"" help:"Retarget feature customizations onto a new baseline."`
	Extract  ExtractCmd  `cmd:"" help:"Show the change-set between two trees."`
	Validate ValidateCmd `cmd:"" help:"Scan a retargeted tree for leftover conflicts."`

	Runs struct {
		List RunsListCmd `cmd:"" help:"List past retarget runs."`
		Show RunsShowCmd `cmd:"" help:"Show one run with its per-file results."`
	} `cmd:""`

	Config struct {
		Set ConfigSetCmd `cmd:"" help:"Set configuration parameters."`
	} `cmd:""`
}

type context struct {
	ws *workspace.Workspace

	// partial flags runs that finished but left conflicts or errors
	// behind; the process exits with code 2 in that case.
	partial bool
}

func main() {
	ctx := kong.Parse(&cli, kong.ShortUsageOnError())

	ws, err := workspace.NewWorkspace(cli.Workspace)
	ctx.FatalIfErrorf(err)

	cmdCtx := &context{ws: ws}

	err = ctx.Run(cmdCtx)

	cerr := ws.Close()
	if err == nil {
		err = cerr
	}

	ctx.FatalIfErrorf(err)

	if cmdCtx.partial {
		os.Exit(2)
	}
}
