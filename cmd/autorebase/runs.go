package main

import (
	"strings"
)

type RunsListCmd struct {
}

func (c *RunsListCmd) Run(ctx *context) error {
	runs, err := ctx.ws.Runs()
	if err != nil {
		return err
	}

	console := ctx.ws.Console()

	for _, r := range runs {
		console.Printf("%v  %v  %v -> %v: %v/%v resolved, %v conflicts, %v errors\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.FeatureRoot, r.NewBaseRoot,
			r.Summary.Resolved, r.Summary.TotalFiles,
			r.Summary.Conflicts, r.Summary.Errors)
	}

	return nil
}

type RunsShowCmd struct {
	ID string `arg:"" help:"Run id, as printed by runs list."`
}

func (c *RunsShowCmd) Run(ctx *context) error {
	run, err := ctx.ws.Run(c.ID)
	if err != nil {
		return err
	}

	console := ctx.ws.Console()

	console.Printf("Run %v at %v\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"))
	console.Printf("  old base: %v\n", run.OldBaseRoot)
	console.Printf("  new base: %v\n", run.NewBaseRoot)
	console.Printf("  feature:  %v\n", run.FeatureRoot)
	console.Printf("  output:   %v\n", run.OutputRoot)

	for _, r := range run.Results {
		console.Printf("  %-9v %-10v %.2f %v%v\n",
			r.Status, r.Method, r.Confidence, r.FilePath,
			reqSuffix(r.ReqIDs))
	}

	return nil
}

func reqSuffix(reqIDs []string) string {
	if len(reqIDs) == 0 {
		return ""
	}
	return " [" + strings.Join(reqIDs, ", ") + "]"
}
