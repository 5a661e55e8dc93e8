package main

import (
	"strings"

	"github.com/refactorproject/autorebase/lib/trees"
	"github.com/refactorproject/autorebase/lib/utils"
)

type ExtractCmd struct {
	From string `arg:"" help:"Tree to diff from, as dir or dir@revision."`
	To   string `arg:"" help:"Tree to diff to, as dir or dir@revision."`

	Include   []string `help:"Only consider files matching these patterns."`
	Exclude   []string `help:"Ignore files matching these patterns."`
	Gitignore bool     `default:"true" negatable:"" help:"Respect .gitignore files when walking trees."`

	Patches bool `short:"p" help:"Print the patch bodies, not just the file summary."`
}

func (c *ExtractCmd) Run(ctx *context) error {
	delta, err := ctx.ws.ExtractDelta(c.From, c.To, &trees.Options{
		Include:          c.Include,
		Exclude:          c.Exclude,
		RespectGitignore: c.Gitignore,
	})
	if err != nil {
		return err
	}

	console := ctx.ws.Console()

	for _, unit := range delta.List() {
		console.Printf("%v %v (+%v -%v)%v\n",
			unit.Change, unit.FilePath,
			len(unit.AddedLines), len(unit.RemovedLines),
			utils.IIf(unit.Binary, " [binary]", ""))

		if c.Patches && unit.PatchContent != "" {
			console.Printf("%v\n", strings.TrimSuffix(unit.PatchContent, "\n"))
		}
	}

	return nil
}
