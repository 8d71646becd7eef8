// Package menu is the interactive operation loop of the develop CLI.
package menu

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/genailabs/starterkit/cmd/internal/cmdexec"
	"github.com/genailabs/starterkit/cmd/internal/fatal"
	"github.com/genailabs/starterkit/cmd/internal/projcfg"
	"github.com/genailabs/starterkit/cmd/internal/prompt"
	"github.com/genailabs/starterkit/cmd/internal/report"
	"github.com/genailabs/starterkit/cmd/internal/stacks"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const tracerName = "github.com/genailabs/starterkit/cmd/internal/menu"

type Operation string

const (
	OpRefreshCredentials Operation = "Refresh Credentials 🔑"
	OpSynth              Operation = "Synthesize CDK Stacks 🗂️"
	OpDeploy             Operation = "Deploy CDK Stack(s) 🚀"
	OpHotswap            Operation = "Hotswap CDK Stack(s) 🔥"
	OpDeployFrontend     Operation = "Deploy Frontend 🖥️"
	OpRefreshEnv         Operation = "Refresh Local Environment 📦"
	OpTestFrontend       Operation = "Test Frontend Locally 💻"
	OpDestroy            Operation = "Destroy CDK Stack(s) 🗑️"
	OpExit               Operation = "Exit 👋"
)

// Operations in menu order.
var Operations = []Operation{
	OpRefreshCredentials,
	OpSynth,
	OpDeploy,
	OpHotswap,
	OpDeployFrontend,
	OpRefreshEnv,
	OpTestFrontend,
	OpDestroy,
	OpExit,
}

type Credentials interface {
	Refresh(ctx context.Context, stage string) error
}

type Deployer interface {
	Synth(ctx context.Context, stage string) error
	Deploy(ctx context.Context, stage string, action stacks.Action) error
	Destroy(ctx context.Context, stage string) error
	DeployFrontend(ctx context.Context, stage string) error
}

type LocalEnv interface {
	CreateLocalEnvironment(ctx context.Context, stage string) bool
	CreateLocalServer(ctx context.Context, stage string) error
}

type Loop struct {
	cfg      *projcfg.Config
	prompter prompt.Prompter
	creds    Credentials
	deployer Deployer
	env      LocalEnv
	rep      *report.Reporter
	logger   *zap.Logger
}

func NewLoop(
	cfg *projcfg.Config,
	prompter prompt.Prompter,
	creds Credentials,
	deployer Deployer,
	env LocalEnv,
	rep *report.Reporter,
	logger *zap.Logger,
) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		cfg:      cfg,
		prompter: prompter,
		creds:    creds,
		deployer: deployer,
		env:      env,
		rep:      rep,
		logger:   logger,
	}
}

// Run loops until the operator exits, returning nil, or an operation fails
// fatally, returning that error.
func (l *Loop) Run(ctx context.Context) error {
	labels := lo.Map(Operations, func(op Operation, _ int) string { return string(op) })

	for {
		choice, err := l.prompter.Select("operation", labels)
		if err != nil || Operation(choice) == OpExit {
			return nil
		}

		stage, err := l.prompter.Select("stage", l.cfg.Stages())
		if err != nil {
			continue
		}

		err = l.Execute(ctx, Operation(choice), stage)
		if fatal.Is(err) {
			return err
		}
		if err != nil {
			fields := []zap.Field{zap.String("operation", choice), zap.String("stage", stage), zap.Error(err)}
			if code, ok := cmdexec.ExitCode(err); ok {
				fields = append(fields, zap.Int("exit_code", code))
			}
			l.logger.Debug("operation failed", fields...)
		}
	}
}

// Execute refreshes the stage's credentials and runs one operation.
func (l *Loop) Execute(ctx context.Context, op Operation, stage string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "menu.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("operation", string(op)), attribute.String("stage", stage))

	err := l.execute(ctx, op, stage)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (l *Loop) execute(ctx context.Context, op Operation, stage string) error {
	if err := l.creds.Refresh(ctx, stage); err != nil {
		return err
	}

	switch op {
	case OpRefreshCredentials:
		l.rep.Success("Credentials refreshed successfully!")
		return nil
	case OpSynth:
		return l.deployer.Synth(ctx, stage)
	case OpDeploy:
		return l.deployer.Deploy(ctx, stage, stacks.ActionDeploy)
	case OpHotswap:
		return l.deployer.Deploy(ctx, stage, stacks.ActionHotswap)
	case OpDeployFrontend:
		return l.deployer.DeployFrontend(ctx, stage)
	case OpRefreshEnv:
		l.env.CreateLocalEnvironment(ctx, stage)
		return nil
	case OpTestFrontend:
		return l.env.CreateLocalServer(ctx, stage)
	case OpDestroy:
		return l.deployer.Destroy(ctx, stage)
	default:
		return errors.Newf("unknown operation %q", op)
	}
}
