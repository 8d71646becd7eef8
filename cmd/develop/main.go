package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/genailabs/starterkit/cmd/internal/cliapp"
	"github.com/genailabs/starterkit/cmd/internal/deploy"
	"github.com/genailabs/starterkit/cmd/internal/menu"
	"github.com/genailabs/starterkit/cmd/internal/projcfg"
	"github.com/genailabs/starterkit/cmd/internal/report"
)

const opDeployFrontend = "deploy-frontend"

type CLI struct {
	cliapp.Flags `embed:""`

	Operation string `arg:"" optional:"" help:"Run a single operation without the menu (deploy-frontend)."`
	Stage     string `arg:"" optional:"" help:"Stage the operation targets."`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("develop"),
		kong.Description("Build, deploy and run the starter kit."),
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
		loop      *menu.Loop
		driver    *deploy.Driver
		preflight *cliapp.Preflight
	)
	stop, err := cliapp.Start(ctx, c.Flags, setup, &loop, &driver, &preflight)
	if err != nil {
		rep.Error("%v", err)
		return 1
	}
	defer stop()

	preflight.Check("npm", "npx")

	if c.Operation != "" && c.Stage != "" {
		return c.runOnce(ctx, rep, setup.Config, driver)
	}

	rep.Banner()
	if err := loop.Run(ctx); err != nil {
		fmt.Fprintln(os.Stdout)
		return 1
	}
	rep.Goodbye()
	return 0
}

func (c *CLI) runOnce(ctx context.Context, rep *report.Reporter, cfg *projcfg.Config, driver *deploy.Driver) int {
	if c.Operation != opDeployFrontend {
		rep.Error("Unsupported operation %q (supported: %s).", c.Operation, opDeployFrontend)
		return 1
	}
	if _, ok := cfg.Account(c.Stage); !ok {
		rep.Error("Account not found for stage %q.", c.Stage)
		return 1
	}
	if err := driver.DeployFrontend(ctx, c.Stage); err != nil {
		rep.Error("%v", err)
		return 1
	}
	return 0
}
