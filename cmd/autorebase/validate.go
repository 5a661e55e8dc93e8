package main

type ValidateCmd struct {
	Path string `arg:"" help:"Retargeted tree to scan." type:"existingdir"`
}

func (c *ValidateCmd) Run(ctx *context) error {
	report, err := ctx.ws.Validate(c.Path)
	if err != nil {
		return err
	}

	console := ctx.ws.Console()

	if report.Clean() {
		console.Printf("No conflicts left in %v\n", report.Root)
		return nil
	}

	for _, path := range report.MarkedFiles {
		console.Printf("conflict markers: %v\n", path)
	}
	for _, path := range report.RejectFiles {
		console.Printf("reject artifact:  %v\n", path)
	}

	ctx.partial = true
	return nil
}
