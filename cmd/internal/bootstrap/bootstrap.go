// Package bootstrap prepares every configured account for CDK deployments.
package bootstrap

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/genailabs/starterkit/cmd/internal/cmdexec"
	"github.com/genailabs/starterkit/cmd/internal/fatal"
	"github.com/genailabs/starterkit/cmd/internal/projcfg"
	"github.com/genailabs/starterkit/cmd/internal/prompt"
	"github.com/genailabs/starterkit/cmd/internal/report"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	tracerName = "github.com/genailabs/starterkit/cmd/internal/bootstrap"

	// edge resources (certificates, Lambda@Edge) always live in us-east-1
	edgeRegion = "us-east-1"

	executionPolicy = "arn:aws:iam::aws:policy/AdministratorAccess"
)

// ErrDeclined is returned when the operator does not confirm the project.
var ErrDeclined = errors.New("project identifier not confirmed")

type Credentials interface {
	Refresh(ctx context.Context, stage string) error
	CreateProfile(ctx context.Context, accountNumber, profile string) error
}

type Orchestrator struct {
	cfg      *projcfg.Config
	runner   cmdexec.Runner
	prompter prompt.Prompter
	creds    Credentials
	secrets  SecretsClientFunc
	rep      *report.Reporter
	logger   *zap.Logger
}

func New(
	cfg *projcfg.Config,
	runner cmdexec.Runner,
	prompter prompt.Prompter,
	creds Credentials,
	secrets SecretsClientFunc,
	rep *report.Reporter,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:      cfg,
		runner:   runner,
		prompter: prompter,
		creds:    creds,
		secrets:  secrets,
		rep:      rep,
		logger:   logger,
	}
}

// Configure is the full first-time setup: confirm the project, make sure the
// dev credentials work, then initialize every stage.
func (o *Orchestrator) Configure(ctx context.Context) error {
	yes, err := o.prompter.Confirm("To start, confirm the project identifier: " + o.cfg.ProjectID)
	if err != nil || !yes {
		return ErrDeclined
	}

	if err := o.creds.Refresh(ctx, projcfg.StageDev); err != nil {
		if errors.Is(err, prompt.ErrCancelled) {
			return errors.Mark(err, ErrDeclined)
		}
		return err
	}

	if err := o.Run(ctx); err != nil {
		return err
	}

	o.rep.Done("✅ Configuration finished!")
	return nil
}

// Run initializes every stage in config order. A failing stage is reported
// and skipped; only fatal errors stop the loop.
func (o *Orchestrator) Run(ctx context.Context) error {
	for _, stage := range o.cfg.Stages() {
		err := o.InitializeStage(ctx, stage)
		if fatal.Is(err) {
			return err
		}
		if err != nil {
			o.logger.Warn("stage initialization failed", zap.String("stage", stage), zap.Error(err))
			o.rep.Warn("%v", err)
			o.rep.Warn("Failed to initialize %s account.", stage)
		}
	}
	return nil
}

func (o *Orchestrator) InitializeStage(ctx context.Context, stage string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "bootstrap.InitializeStage")
	defer span.End()
	span.SetAttributes(attribute.String("stage", stage))

	o.rep.Heading("Initializing %s account...", stage)

	acct, ok := o.cfg.Account(stage)
	if !ok {
		o.rep.Error("%s account configuration not found.", stage)
		return fatal.Newf("no account configured for stage %q", stage)
	}

	if err := o.creds.CreateProfile(ctx, acct.Number, o.cfg.ProfileName(stage)); err != nil {
		return err
	}

	if err := o.bootstrapAccount(ctx, stage, acct); err != nil {
		return err
	}

	if o.cfg.UsesMidway() {
		if err := o.ensureMidwaySecret(ctx, stage, acct); err != nil {
			return err
		}
	}

	o.rep.Done("Initialized %s account!", stage)
	return nil
}

func (o *Orchestrator) bootstrapAccount(ctx context.Context, stage string, acct projcfg.AccountConfig) error {
	o.rep.Info("Bootstrapping %s account %s...", stage, acct.Number)

	var extra []string
	if stage == projcfg.StageProd {
		devNumber := o.devAccountNumber()
		o.rep.Info("Enabling termination protection for %s account %s and setting up trust with dev account %s...",
			stage, acct.Number, devNumber)
		extra = []string{"--termination-protection", "--trust", devNumber}
	}

	for _, region := range []string{acct.Region, edgeRegion} {
		cmd := BootstrapCommand(acct.Number, region, o.cfg.ProfileName(stage), extra...)
		if err := o.runner.Run(ctx, cmd); err != nil {
			return errors.Wrapf(err, "failed to bootstrap %s account %s", stage, acct.Number)
		}
	}

	o.rep.Success("Bootstrapped %s account %s!", stage, acct.Number)
	return nil
}

// devAccountNumber is the account prod trusts. A config without a dev entry
// yields the literal "undefined", which the bootstrap command then rejects.
func (o *Orchestrator) devAccountNumber() string {
	if dev, ok := o.cfg.Account(projcfg.StageDev); ok {
		return dev.Number
	}
	return "undefined"
}

// BootstrapCommand bootstraps one account/region pair.
func BootstrapCommand(accountNumber, region, profile string, extra ...string) string {
	args := []string{
		"npm", "run", "-w", "backend", "cdk", "bootstrap",
		"aws://" + accountNumber + "/" + region, "--",
		"--cloudformation-execution-policies", executionPolicy,
	}
	args = append(args, extra...)
	args = append(args, "--profile", profile)
	return cmdexec.Join(args...)
}
