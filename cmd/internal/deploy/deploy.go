// Package deploy runs CDK synth, deploy and destroy for a stage.
package deploy

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/genailabs/starterkit/cmd/internal/cmdexec"
	"github.com/genailabs/starterkit/cmd/internal/projcfg"
	"github.com/genailabs/starterkit/cmd/internal/prompt"
	"github.com/genailabs/starterkit/cmd/internal/report"
	"github.com/genailabs/starterkit/cmd/internal/stacks"
)

// ErrBuildFailed is returned by DeployFrontend when the frontend does not build.
var ErrBuildFailed = errors.New("frontend build failed")

type StackSelector interface {
	Select(ctx context.Context, stage string, action stacks.Action) (string, error)
}

type FrontendBuilder interface {
	Build(ctx context.Context) bool
}

type Driver struct {
	cfg      *projcfg.Config
	runner   cmdexec.Runner
	prompter prompt.Prompter
	selector StackSelector
	builder  FrontendBuilder
	rep      *report.Reporter
}

func NewDriver(
	cfg *projcfg.Config,
	runner cmdexec.Runner,
	prompter prompt.Prompter,
	selector StackSelector,
	builder FrontendBuilder,
	rep *report.Reporter,
) *Driver {
	return &Driver{
		cfg:      cfg,
		runner:   runner,
		prompter: prompter,
		selector: selector,
		builder:  builder,
		rep:      rep,
	}
}

func (d *Driver) Synth(ctx context.Context, stage string) error {
	return d.runner.Run(ctx, "npm run -w backend cdk synth -- "+d.contextFlags(stage))
}

// Deploy deploys the stacks the operator selects, with ActionHotswap
// patching resources in place instead of a full CloudFormation deployment.
func (d *Driver) Deploy(ctx context.Context, stage string, action stacks.Action) error {
	if action != stacks.ActionDeploy && action != stacks.ActionHotswap {
		return errors.Newf("unsupported deploy action %q", action)
	}

	selected, err := d.selector.Select(ctx, stage, action)
	if err != nil || selected == "" {
		return err
	}

	mode := "--concurrency 4"
	if action == stacks.ActionHotswap {
		mode = "--hotswap"
	}
	return d.runner.Run(ctx, "npm run -w backend cdk deploy "+selected+" -- "+mode+" "+d.contextFlags(stage))
}

func (d *Driver) Destroy(ctx context.Context, stage string) error {
	selected, err := d.selector.Select(ctx, stage, stacks.ActionDestroy)
	if err != nil || selected == "" {
		return err
	}
	return d.runner.Run(ctx, "npm run -w backend cdk destroy "+selected+" -- "+d.contextFlags(stage))
}

// DeployFrontend builds the frontend and deploys the stage's frontend stack
// on its own, without its dependencies.
func (d *Driver) DeployFrontend(ctx context.Context, stage string) error {
	if stage == projcfg.StageProd {
		yes, err := d.prompter.Confirm("Are you sure you want to deploy prod frontend?")
		if err != nil || !yes {
			return err
		}
	}

	if !d.builder.Build(ctx) {
		return ErrBuildFailed
	}

	cdkPath := d.cfg.FrontendStackPath(stage)
	cmd := "npm run -w backend cdk deploy -- " + cmdexec.Join("-e", cdkPath) + " " + d.contextFlags(stage)
	if err := d.runner.Run(ctx, cmd); err != nil {
		return err
	}

	d.rep.Info("Stack deployed with CDK path: %s\nCloudFormation name: %s", cdkPath, projcfg.CfnStackName(cdkPath))
	return nil
}

func (d *Driver) contextFlags(stage string) string {
	return cmdexec.Join("--profile", d.cfg.ProfileName(stage), "-c", "stage="+stage)
}
