package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/cockroachdb/errors"
	"github.com/genailabs/starterkit/cmd/internal/bootstrap"
	"github.com/genailabs/starterkit/cmd/internal/cliapp"
	"github.com/genailabs/starterkit/cmd/internal/report"
)

type CLI struct {
	cliapp.Flags `embed:""`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("configure"),
		kong.Description("Create profiles and bootstrap every account of the project."),
		kong.UsageOnError(),
	)
	os.Exit(cli.run(context.Background()))
}

func (c *CLI) run(ctx context.Context) int {
	rep := report.Stdio()

	setup, err := cliapp.Load(c.Flags, rep)
	if err != nil {
		rep.Error("%v", err)
		fmt.Fprintln(os.Stdout)
		return 1
	}

	var (
		orch      *bootstrap.Orchestrator
		preflight *cliapp.Preflight
	)
	stop, err := cliapp.Start(ctx, c.Flags, setup, &orch, &preflight)
	if err != nil {
		rep.Error("%v", err)
		return 1
	}
	defer stop()

	rep.Banner()
	preflight.Check("npm")
	err = orch.Configure(ctx)
	switch {
	case errors.Is(err, bootstrap.ErrDeclined):
		rep.Goodbye()
		return 0
	case err != nil:
		fmt.Fprintln(os.Stdout)
		return 1
	}
	return 0
}
