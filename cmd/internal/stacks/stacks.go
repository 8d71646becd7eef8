// Package stacks lets the operator pick which CDK stacks of a stage to act on.
package stacks

import (
	"context"
	"regexp"
	"strings"

	"github.com/genailabs/starterkit/cmd/internal/cmdexec"
	"github.com/genailabs/starterkit/cmd/internal/projcfg"
	"github.com/genailabs/starterkit/cmd/internal/prompt"
	"github.com/genailabs/starterkit/cmd/internal/report"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type Action string

const (
	ActionDeploy  Action = "deploy"
	ActionHotswap Action = "hotswap"
	ActionDestroy Action = "destroy"
)

// trailing "(type)" style annotation printed by `cdk list`
var annotation = regexp.MustCompile(`\s*\(.*?\)\s*$`)

type Selector struct {
	cfg      *projcfg.Config
	runner   cmdexec.Runner
	prompter prompt.Prompter
	rep      *report.Reporter
	logger   *zap.Logger
}

func NewSelector(
	cfg *projcfg.Config,
	runner cmdexec.Runner,
	prompter prompt.Prompter,
	rep *report.Reporter,
	logger *zap.Logger,
) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{cfg: cfg, runner: runner, prompter: prompter, rep: rep, logger: logger}
}

// Select returns the stacks to act on, ready to splice into a command line.
// An empty string means there is nothing to do.
func (s *Selector) Select(ctx context.Context, stage string, action Action) (string, error) {
	if stage == projcfg.StageProd {
		yes, err := s.prompter.Confirm("Are you sure you want to " + string(action) + " prod stacks?")
		if err != nil {
			return "", err
		}
		if !yes {
			return "", nil
		}
	}

	if action != ActionDestroy {
		yes, err := s.prompter.Confirm("Would you like to just " + string(action) + " all " + stage + " stacks?")
		if err != nil {
			return "", err
		}
		if yes {
			return s.cfg.StackPrefix(stage) + "*", nil
		}
	}

	s.rep.Info("Listing %s stacks...", stage)
	out, err := s.runner.Output(ctx, ListCommand(s.cfg, stage))
	if err != nil {
		s.logger.Debug("listing stacks failed", zap.String("stage", stage), zap.Error(err))
		s.rep.Error("Failed to synthesize %s stacks.", stage)
		return "", nil
	}

	choices := FilterStacks(out, s.cfg.StackPrefix(stage), s.cfg.PipelineStackName())
	if len(choices) == 0 {
		s.rep.Warn("No %s stacks found.", stage)
		return "", nil
	}

	picked, err := s.prompter.MultiSelect("stacks to "+string(action), choices)
	if err != nil {
		return "", err
	}
	return cmdexec.Quote(picked), nil
}

// ListCommand lists the CDK app's stacks for a stage with the CDK CLI itself,
// not the npm workspace script.
func ListCommand(cfg *projcfg.Config, stage string) string {
	return "cd src/backend && " +
		cmdexec.Join("npx", "aws-cdk", "list", "--profile", cfg.ProfileName(stage), "-c", "stage="+stage)
}

// FilterStacks keeps the lines of `cdk list` output that belong to the stage
// (prefix) or are the pipeline stack, without their trailing annotations.
func FilterStacks(listOutput, prefix, pipeline string) []string {
	lines := lo.Map(strings.Split(listOutput, "\n"), func(line string, _ int) string {
		return strings.TrimRight(line, "\r")
	})
	return lo.FilterMap(lines, func(line string, _ int) (string, bool) {
		if !strings.HasPrefix(line, prefix) && line != pipeline {
			return "", false
		}
		return strings.TrimSpace(annotation.ReplaceAllString(line, "")), true
	})
}
