package main

import (
	gocontext "context"
	"os"
	"os/signal"
	"time"

	"github.com/refactorproject/autorebase/lib/resolvers"
	"github.com/refactorproject/autorebase/lib/trees"
	"github.com/refactorproject/autorebase/lib/workspace"
)

type RetargetCmd struct {
	OldBase string `arg:"" help:"Old baseline tree, as dir or dir@revision."`
	NewBase string `arg:"" help:"New baseline tree, as dir or dir@revision."`
	Feature string `arg:"" help:"Customized feature tree, as dir or dir@revision."`

	Output string `short:"o" required:"" help:"Directory to write the retargeted tree to." type:"path"`
	ReqMap string `help:"YAML file mapping file selectors to requirement ids." type:"existingfile"`

	Include   []string `help:"Only consider files matching these patterns."`
	Exclude   []string `help:"Ignore files matching these patterns."`
	Gitignore bool     `default:"true" negatable:"" help:"Respect .gitignore files when walking trees."`

	Workers int           `help:"Number of files resolved concurrently. Defaults to the CPU count."`
	ApiKey  string        `help:"API key for the AI resolver. Defaults to AUTOREBASE_API_KEY; empty disables it."`
	ApiUrl  string        `help:"Endpoint for the AI resolver. Defaults to AUTOREBASE_API_URL."`
	Model   string        `help:"Model name for the AI resolver. Defaults to AUTOREBASE_MODEL."`
	Timeout time.Duration `help:"Per-call timeout for the AI resolver. Defaults to AUTOREBASE_TIMEOUT."`
}

func (c *RetargetCmd) Run(ctx *context) error {
	runCtx, stop := signal.NotifyContext(gocontext.Background(), os.Interrupt)
	defer stop()

	cfg := resolvers.LoadConfig()
	if c.ApiKey != "" {
		cfg.APIKey = c.ApiKey
	}
	if c.ApiUrl != "" {
		cfg.BaseURL = c.ApiUrl
	}
	if c.Model != "" {
		cfg.Model = c.Model
	}
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}

	run, err := ctx.ws.Retarget(runCtx, &workspace.RetargetOptions{
		OldBase: c.OldBase,
		NewBase: c.NewBase,
		Feature: c.Feature,
		ReqMap:  c.ReqMap,
		Output:  c.Output,
		Trees: trees.Options{
			Include:          c.Include,
			Exclude:          c.Exclude,
			RespectGitignore: c.Gitignore,
		},
		Resolvers: cfg,
		Workers:   c.Workers,
	})
	if err != nil {
		return err
	}

	ctx.ws.Console().Printf("Run %v recorded\n", run.ID)

	if run.Summary.Conflicts > 0 || run.Summary.Errors > 0 {
		ctx.partial = true
	}

	return nil
}
