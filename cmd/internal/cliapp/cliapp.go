// Package cliapp assembles the dependency graph shared by the CLIs.
package cliapp

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/genailabs/starterkit/cmd/internal/awsclient"
	"github.com/genailabs/starterkit/cmd/internal/bincheck"
	"github.com/genailabs/starterkit/cmd/internal/bootstrap"
	"github.com/genailabs/starterkit/cmd/internal/cfnread"
	"github.com/genailabs/starterkit/cmd/internal/cmdexec"
	"github.com/genailabs/starterkit/cmd/internal/credentials"
	"github.com/genailabs/starterkit/cmd/internal/deploy"
	"github.com/genailabs/starterkit/cmd/internal/localenv"
	"github.com/genailabs/starterkit/cmd/internal/logging"
	"github.com/genailabs/starterkit/cmd/internal/menu"
	"github.com/genailabs/starterkit/cmd/internal/projcfg"
	"github.com/genailabs/starterkit/cmd/internal/prompt"
	"github.com/genailabs/starterkit/cmd/internal/report"
	"github.com/genailabs/starterkit/cmd/internal/stacks"
	"github.com/genailabs/starterkit/cmd/internal/tracing"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Flags are the command line settings shared by the CLIs.
type Flags struct {
	Credentials string `help:"Tool used to repair profiles (aws or ada)." enum:"aws,ada" default:"aws"`
	Config      string `help:"Path to project-config.json. Defaults to config/project-config.json in this or a parent directory." type:"path"`
}

// Setup is what every CLI needs before the graph can be built.
type Setup struct {
	Env      projcfg.Env
	Config   *projcfg.Config
	Reporter *report.Reporter
}

// Load reads the environment and the project configuration.
func Load(flags Flags, rep *report.Reporter) (Setup, error) {
	env, err := projcfg.ParseEnv()
	if err != nil {
		return Setup{}, err
	}

	path := flags.Config
	if path == "" {
		path = env.ConfigPath
	}
	cfg, err := projcfg.Load(path)
	if err != nil {
		return Setup{}, err
	}
	return Setup{Env: env, Config: cfg, Reporter: rep}, nil
}

// Module provides every component; binaries pull what they need with
// fx.Populate.
func Module(flags Flags, setup Setup) fx.Option {
	return fx.Options(
		fx.Supply(flags, setup.Env, setup.Config, setup.Reporter),
		fx.Provide(
			bincheck.NewChecker,
			newLogger,
			newTracing,
			newAWSFactory,
			fx.Annotate(newShell, fx.As(new(cmdexec.Runner))),
			fx.Annotate(newPrompter, fx.As(new(prompt.Prompter))),
			newProvider,
			newPreflight,
			credentials.NewManager,
			newOrchestrator,
			stacks.NewSelector,
			newGenerator,
			newDriver,
			newLoop,
		),
	)
}

// Start builds the graph, filling targets, and returns a stop function
// that flushes telemetry.
func Start(ctx context.Context, flags Flags, setup Setup, targets ...any) (func(), error) {
	app := fx.New(
		fx.NopLogger,
		Module(flags, setup),
		fx.Populate(targets...),
	)
	if err := app.Start(ctx); err != nil {
		return nil, errors.Wrap(err, "starting")
	}
	return func() { _ = app.Stop(context.Background()) }, nil
}

// Preflight warns about tools the CLI will shell out to but cannot find.
type Preflight struct {
	checker  *bincheck.Checker
	provider credentials.Provider
	rep      *report.Reporter
}

func newPreflight(checker *bincheck.Checker, provider credentials.Provider, rep *report.Reporter) *Preflight {
	return &Preflight{checker: checker, provider: provider, rep: rep}
}

// Check reports whether every tool is installed.
func (p *Preflight) Check(tools ...string) bool {
	missing := p.checker.Missing(append(tools, p.provider.Tools()...)...)
	if len(missing) == 0 {
		return true
	}
	p.rep.Warn("Required tools not found in PATH: %s", strings.Join(missing, ", "))
	return false
}

func newLogger(env projcfg.Env) *zap.Logger {
	return logging.New(os.Stderr, env.LogLevel)
}

func newTracing(lc fx.Lifecycle, env projcfg.Env) (*tracing.Provider, trace.TracerProvider, error) {
	p, err := tracing.Init(env.OtelExporter, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	lc.Append(fx.Hook{OnStop: p.Shutdown})
	return p, p.TracerProvider, nil
}

func newAWSFactory(tp trace.TracerProvider) *awsclient.Factory {
	return awsclient.NewFactory(tp)
}

func newShell(cfg *projcfg.Config, rep *report.Reporter, logger *zap.Logger) *cmdexec.Shell {
	return cmdexec.NewShell(cfg.Root, rep, logger)
}

func newPrompter() *prompt.Survey {
	return prompt.NewSurvey()
}

func newProvider(flags Flags) (credentials.Provider, error) {
	return credentials.ProviderByName(flags.Credentials)
}

func newOrchestrator(
	cfg *projcfg.Config,
	runner cmdexec.Runner,
	prompter prompt.Prompter,
	creds *credentials.Manager,
	factory *awsclient.Factory,
	rep *report.Reporter,
	logger *zap.Logger,
) *bootstrap.Orchestrator {
	secrets := func(ctx context.Context, profile, region string) (bootstrap.SecretsAPI, error) {
		return factory.SecretsManager(ctx, profile, region)
	}
	return bootstrap.New(cfg, runner, prompter, creds, secrets, rep, logger)
}

func newGenerator(
	cfg *projcfg.Config,
	env projcfg.Env,
	runner cmdexec.Runner,
	prompter prompt.Prompter,
	factory *awsclient.Factory,
	rep *report.Reporter,
	logger *zap.Logger,
) *localenv.Generator {
	cfn := func(ctx context.Context, profile, region string) (cfnread.API, error) {
		return factory.CloudFormation(ctx, profile, region)
	}
	return localenv.New(cfg, runner, prompter, cfn, rep, logger, env.FrontendPort)
}

func newDriver(
	cfg *projcfg.Config,
	runner cmdexec.Runner,
	prompter prompt.Prompter,
	selector *stacks.Selector,
	gen *localenv.Generator,
	rep *report.Reporter,
) *deploy.Driver {
	return deploy.NewDriver(cfg, runner, prompter, selector, gen, rep)
}

func newLoop(
	cfg *projcfg.Config,
	prompter prompt.Prompter,
	creds *credentials.Manager,
	driver *deploy.Driver,
	gen *localenv.Generator,
	rep *report.Reporter,
	logger *zap.Logger,
) *menu.Loop {
	return menu.NewLoop(cfg, prompter, creds, driver, gen, rep, logger)
}
