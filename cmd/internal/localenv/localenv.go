// Package localenv wires a local frontend checkout to a deployed stage: it
// writes the frontend's .env and GraphQL codegen config from the stage's
// stack outputs, builds the frontend and runs the dev server.
package localenv

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/genailabs/starterkit/cmd/internal/cfnread"
	"github.com/genailabs/starterkit/cmd/internal/cmdexec"
	"github.com/genailabs/starterkit/cmd/internal/projcfg"
	"github.com/genailabs/starterkit/cmd/internal/prompt"
	"github.com/genailabs/starterkit/cmd/internal/report"
	"github.com/genailabs/starterkit/cmd/internal/stacks"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	tracerName = "github.com/genailabs/starterkit/cmd/internal/localenv"

	envFile           = ".env"
	graphQLConfigFile = ".graphqlconfig.yml"

	buildCommand   = "npm run -w frontend build"
	codegenCommand = "npm run -w frontend generate"

	defaultSettleDelay = 1500 * time.Millisecond
)

type Generator struct {
	cfg      *projcfg.Config
	runner   cmdexec.Runner
	prompter prompt.Prompter
	cfn      cfnread.ClientFunc
	rep      *report.Reporter
	logger   *zap.Logger

	// Port is the dev server port freed before and after serving.
	Port int
	// SettleDelay is how long the dev server gets to start before the
	// operator is prompted.
	SettleDelay time.Duration
	GOOS        string
}

func New(
	cfg *projcfg.Config,
	runner cmdexec.Runner,
	prompter prompt.Prompter,
	cfn cfnread.ClientFunc,
	rep *report.Reporter,
	logger *zap.Logger,
	port int,
) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		cfg:         cfg,
		runner:      runner,
		prompter:    prompter,
		cfn:         cfn,
		rep:         rep,
		logger:      logger,
		Port:        port,
		SettleDelay: defaultSettleDelay,
		GOOS:        runtime.GOOS,
	}
}

// CreateLocalEnvironment reports whether the frontend is ready to serve.
// Every failure is reported here; callers only need the result.
func (g *Generator) CreateLocalEnvironment(ctx context.Context, stage string) bool {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "localenv.CreateLocalEnvironment")
	defer span.End()
	span.SetAttributes(attribute.String("stage", stage))

	g.rep.Heading("Creating local environment...")

	acct, ok := g.cfg.Account(stage)
	if !ok {
		g.rep.Error("Account not found.")
		return false
	}

	stackName := g.cfg.FrontendStackName(stage)
	g.rep.Info("Querying CloudFormation for stack %s in %s...", stackName, acct.Region)

	client, err := g.cfn(ctx, g.cfg.ProfileName(stage), acct.Region)
	if err != nil {
		g.rep.Error("Failed to create CloudFormation client: %v", err)
		return false
	}

	outputs, err := cfnread.StackOutputs(ctx, client, stackName)
	if err != nil {
		g.logger.Debug("describing frontend stack", zap.String("stack", stackName), zap.Error(err))
		g.rep.Error("Failed to find frontend stack %s.", stackName)
		g.diagnose(ctx, client, stage, acct)
		return false
	}
	g.rep.Success("Successfully found stack: %s", stackName)

	envPath := filepath.Join(g.cfg.FrontendDir(), envFile)
	if err := os.WriteFile(envPath, []byte(EnvFileContents(outputs)), 0o644); err != nil {
		g.logger.Debug("writing env file", zap.String("path", envPath), zap.Error(err))
		g.rep.Error("Failed to create environment file.")
		return false
	}
	g.rep.Success("Created environment file!")

	if apiID, ok := GraphQLAPIID(outputs); ok {
		g.generateGraphQL(ctx, apiID, acct.Region)
	}

	if !g.Build(ctx) {
		return false
	}
	g.rep.Done("Created local environment!")
	return true
}

// generateGraphQL is best effort: codegen problems never fail the environment.
func (g *Generator) generateGraphQL(ctx context.Context, apiID, region string) {
	path := filepath.Join(g.cfg.FrontendDir(), graphQLConfigFile)
	created, err := UpdateGraphQLConfig(path, apiID, region)
	if err != nil {
		g.logger.Debug("writing graphql config", zap.String("path", path), zap.Error(err))
		g.rep.Error("Failed to generate GraphQL files.")
		return
	}
	if created {
		g.rep.Success("Created GraphQL config file!")
	} else {
		g.rep.Success("Updated GraphQL config file!")
	}

	if err := g.runner.Run(ctx, codegenCommand); err != nil {
		g.logger.Debug("graphql codegen", zap.Error(err))
		g.rep.Error("Failed to generate GraphQL files.")
	}
}

// Build builds the frontend bundle.
func (g *Generator) Build(ctx context.Context) bool {
	g.rep.Info("Building frontend...")
	if err := g.runner.Run(ctx, buildCommand); err != nil {
		g.logger.Debug("frontend build", zap.Error(err))
		g.rep.Error("Failed to build frontend.")
		return false
	}
	return true
}

// diagnose prints what is deployed so the operator can tell a missing stack
// from a wrong account or region.
func (g *Generator) diagnose(ctx context.Context, client cfnread.API, stage string, acct projcfg.AccountConfig) {
	g.rep.Info("Listing available stacks directly from CloudFormation...")
	active, err := cfnread.ActiveStacks(ctx, client)
	if err != nil {
		g.rep.Error("Failed to list stacks: %v", err)
		return
	}

	if len(active) == 0 {
		g.rep.Warn("No active stacks found in CloudFormation.")
	} else {
		g.rep.Info("Available active stacks from CloudFormation:")
		g.rep.Table([]string{"STACK", "STATUS"}, stackRows(active))

		frontend := lo.Filter(active, func(s cfnread.Stack, _ int) bool {
			return strings.Contains(s.Name, "frontend") || strings.Contains(s.Name, "front-end")
		})
		if len(frontend) > 0 {
			g.rep.Info("Potential frontend stacks detected:")
			g.rep.Table([]string{"STACK", "STATUS"}, stackRows(frontend))
		}
	}

	g.rep.Info("Attempting to list stacks directly with CDK...")
	out, err := g.runner.Output(ctx, stacks.ListCommand(g.cfg, stage))
	switch {
	case err != nil:
		g.rep.Warn("Failed to list stacks from CDK directly.")
	case strings.TrimSpace(out) == "":
		g.rep.Warn("No stacks found in CDK list.")
	default:
		g.rep.Info("Available stacks from CDK:")
		for _, line := range lo.Compact(lo.Map(strings.Split(out, "\n"), func(l string, _ int) string {
			return strings.TrimSpace(l)
		})) {
			g.rep.Plain("- %s", line)
		}
	}

	g.rep.Info("Double checking the AWS account info...")
	identity, err := g.runner.Output(ctx, cmdexec.Join("aws", "sts", "get-caller-identity",
		"--profile", g.cfg.ProfileName(stage)))
	if err != nil {
		g.rep.Warn("Failed to get AWS account information.")
	} else {
		g.rep.Info("Current AWS account information:")
		g.rep.Plain("%s", strings.TrimSpace(identity))
	}

	g.rep.Info("%s", "Possible solutions:\n"+
		"1. Deploy the frontend stack first using: Refresh Credentials → Deploy Frontend\n"+
		"2. Check that you're in the right account (current: "+acct.Number+")\n"+
		"3. Check that you're in the right region (current: "+acct.Region+")\n"+
		"4. Look for a stack named "+g.cfg.FrontendStackName(stage))
}

func stackRows(s []cfnread.Stack) [][]string {
	return lo.Map(s, func(st cfnread.Stack, _ int) []string {
		return []string{st.Name, st.Status}
	})
}
