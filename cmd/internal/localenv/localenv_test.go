package localenv_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/cockroachdb/errors"
	"github.com/genailabs/starterkit/cmd/internal/cfnread"
	"github.com/genailabs/starterkit/cmd/internal/fatal"
	"github.com/genailabs/starterkit/cmd/internal/localenv"
	"github.com/genailabs/starterkit/cmd/internal/projcfg"
	"github.com/genailabs/starterkit/cmd/internal/report"
	"github.com/genailabs/starterkit/cmd/internal/testutil"
	"github.com/google/go-cmp/cmp"
)

const projectConfig = `{
    "projectId": "mac-demo",
    "codeArtifact": false,
    "midway": false,
    "codePipeline": false,
    "accounts": {"dev": {"number": "111111111111", "region": "us-west-2"}}
}`

type fakeCFN struct {
	stacks     map[string][]types.Output
	listed     int
	described  []string
	gotProfile string
	gotRegion  string
}

func (f *fakeCFN) DescribeStacks(_ context.Context, in *cloudformation.DescribeStacksInput,
	_ ...func(*cloudformation.Options),
) (*cloudformation.DescribeStacksOutput, error) {
	name := aws.ToString(in.StackName)
	f.described = append(f.described, name)
	outputs, ok := f.stacks[name]
	if !ok {
		return nil, errors.Newf("Stack with id %s does not exist", name)
	}
	return &cloudformation.DescribeStacksOutput{Stacks: []types.Stack{{StackName: in.StackName, Outputs: outputs}}}, nil
}

func (f *fakeCFN) ListStacks(_ context.Context, _ *cloudformation.ListStacksInput,
	_ ...func(*cloudformation.Options),
) (*cloudformation.ListStacksOutput, error) {
	f.listed++
	return &cloudformation.ListStacksOutput{StackSummaries: []types.StackSummary{
		{StackName: aws.String("dev-mac-demo-api"), StackStatus: types.StackStatusCreateComplete},
	}}, nil
}

func (f *fakeCFN) client(_ context.Context, profile, region string) (cfnread.API, error) {
	f.gotProfile, f.gotRegion = profile, region
	return f, nil
}

func frontendOutputs() []types.Output {
	return []types.Output{
		{OutputKey: aws.String("UserPoolId"), OutputValue: aws.String("abc123"),
			ExportName: aws.String("dev-mac-demo-vite-user-pool-id")},
		{OutputKey: aws.String("ApiId"), OutputValue: aws.String("api-9"),
			ExportName: aws.String("dev-mac-demo-codegen-graph-api-id")},
	}
}

func setup(t *testing.T, cfn *fakeCFN, runner *testutil.FakeRunner, prompter *testutil.FakePrompter) (*localenv.Generator, string) {
	t.Helper()
	root := testutil.Setup(t, map[string]string{
		"config/project-config.json": projectConfig,
		"src/frontend/.env":          "STALE=1\n",
	})
	cfg, err := projcfg.Load(filepath.Join(root, "config", "project-config.json"))
	if err != nil {
		t.Fatal(err)
	}
	g := localenv.New(cfg, runner, prompter, cfn.client, report.Discard(), nil, 3000)
	g.SettleDelay = 0
	return g, filepath.Join(root, "src", "frontend")
}

func TestCreateLocalEnvironment(t *testing.T) {
	t.Parallel()
	cfn := &fakeCFN{stacks: map[string][]types.Output{"dev-mac-demo-frontendDeployment": frontendOutputs()}}
	runner := &testutil.FakeRunner{}
	g, frontend := setup(t, cfn, runner, &testutil.FakePrompter{})

	if !g.CreateLocalEnvironment(context.Background(), "dev") {
		t.Fatal("expected success")
	}

	if cfn.gotProfile != "mac-demo-dev" || cfn.gotRegion != "us-west-2" {
		t.Errorf("client built for %s/%s", cfn.gotProfile, cfn.gotRegion)
	}

	env, err := os.ReadFile(filepath.Join(frontend, ".env"))
	if err != nil {
		t.Fatal(err)
	}
	if string(env) != "VITE_USER_POOL_ID=abc123" {
		t.Errorf(".env should be fully overwritten, got %q", env)
	}

	gql, err := os.ReadFile(filepath.Join(frontend, ".graphqlconfig.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(gql), "apiId: api-9") {
		t.Errorf("graphql config missing api id:\n%s", gql)
	}

	want := []string{"npm run -w frontend generate", "npm run -w frontend build"}
	if diff := cmp.Diff(want, runner.Commands()); diff != "" {
		t.Errorf("unexpected commands (-want +got):\n%s", diff)
	}
}

func TestCreateLocalEnvironment_CodegenFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	cfn := &fakeCFN{stacks: map[string][]types.Output{"dev-mac-demo-frontendDeployment": frontendOutputs()}}
	runner := (&testutil.FakeRunner{}).On("frontend generate", testutil.Result{Err: testutil.ExitErr(2)})
	g, _ := setup(t, cfn, runner, &testutil.FakePrompter{})

	if !g.CreateLocalEnvironment(context.Background(), "dev") {
		t.Fatal("codegen failure should not fail the environment")
	}
	if runner.Count("frontend build") != 1 {
		t.Error("build should still run after codegen fails")
	}
}

func TestCreateLocalEnvironment_BuildFailure(t *testing.T) {
	t.Parallel()
	cfn := &fakeCFN{stacks: map[string][]types.Output{"dev-mac-demo-frontendDeployment": nil}}
	runner := (&testutil.FakeRunner{}).On("frontend build", testutil.Result{Err: testutil.ExitErr(1)})
	g, _ := setup(t, cfn, runner, &testutil.FakePrompter{})

	if g.CreateLocalEnvironment(context.Background(), "dev") {
		t.Fatal("expected failure when the build fails")
	}
	if runner.Count("generate") != 0 {
		t.Error("codegen should be skipped without an API id output")
	}
}

func TestCreateLocalEnvironment_MissingStack(t *testing.T) {
	t.Parallel()
	cfn := &fakeCFN{}
	runner := &testutil.FakeRunner{}
	g, frontend := setup(t, cfn, runner, &testutil.FakePrompter{})

	if g.CreateLocalEnvironment(context.Background(), "dev") {
		t.Fatal("expected failure for a missing stack")
	}

	if diff := cmp.Diff([]string{"dev-mac-demo-frontendDeployment"}, cfn.described); diff != "" {
		t.Errorf("unexpected describe calls (-want +got):\n%s", diff)
	}
	if cfn.listed != 1 {
		t.Errorf("diagnostics should list stacks once, listed %d times", cfn.listed)
	}
	if runner.Count("aws-cdk list") != 1 || runner.Count("get-caller-identity") != 1 {
		t.Errorf("diagnostics should list CDK stacks and the caller identity, got %v", runner.Commands())
	}
	if runner.Count("frontend build") != 0 {
		t.Error("build must not run without stack outputs")
	}

	env, err := os.ReadFile(filepath.Join(frontend, ".env"))
	if err != nil {
		t.Fatal(err)
	}
	if string(env) != "STALE=1\n" {
		t.Errorf(".env should be untouched, got %q", env)
	}
}

func TestFreePort(t *testing.T) {
	t.Parallel()

	t.Run("nothing listening", func(t *testing.T) {
		t.Parallel()
		runner := &testutil.FakeRunner{}
		g, _ := setup(t, &fakeCFN{}, runner, &testutil.FakePrompter{})

		if err := g.FreePort(context.Background()); err != nil {
			t.Fatal(err)
		}
		if runner.Count("kill") != 0 {
			t.Errorf("nothing to kill, got %v", runner.Commands())
		}
	})

	t.Run("kills listeners", func(t *testing.T) {
		t.Parallel()
		runner := (&testutil.FakeRunner{}).On("lsof", testutil.Result{Output: "4242\n4243\n4242\n"})
		g, _ := setup(t, &fakeCFN{}, runner, &testutil.FakePrompter{})

		if err := g.FreePort(context.Background()); err != nil {
			t.Fatal(err)
		}
		want := []string{"lsof -i :3000 | grep LISTEN | awk '{print $2}'", "kill -9 4242 4243"}
		if diff := cmp.Diff(want, runner.Commands()); diff != "" {
			t.Errorf("unexpected commands (-want +got):\n%s", diff)
		}
	})

	t.Run("kill failure is fatal", func(t *testing.T) {
		t.Parallel()
		runner := (&testutil.FakeRunner{}).
			On("lsof", testutil.Result{Output: "4242\n"}).
			On("kill", testutil.Result{Err: testutil.ExitErr(1)})
		g, _ := setup(t, &fakeCFN{}, runner, &testutil.FakePrompter{})

		if err := g.FreePort(context.Background()); !fatal.Is(err) {
			t.Errorf("expected fatal error, got %v", err)
		}
	})
}

func TestCreateLocalServer(t *testing.T) {
	t.Parallel()
	cfn := &fakeCFN{stacks: map[string][]types.Output{"dev-mac-demo-frontendDeployment": nil}}
	runner := &testutil.FakeRunner{}
	prompter := &testutil.FakePrompter{}
	g, _ := setup(t, cfn, runner, prompter)
	g.GOOS = "linux"

	if err := g.CreateLocalServer(context.Background(), "dev"); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"lsof -i :3000 | grep LISTEN | awk '{print $2}'",
		"npm run -w frontend build",
		"(npm run -w frontend dev &)",
		"lsof -i :3000 | grep LISTEN | awk '{print $2}'",
	}
	if diff := cmp.Diff(want, runner.Commands()); diff != "" {
		t.Errorf("unexpected commands (-want +got):\n%s", diff)
	}
	if prompter.Pauses != 1 {
		t.Errorf("expected one pause prompt, got %d", prompter.Pauses)
	}
}

func TestCreateLocalServer_EnvironmentFailureSkipsServer(t *testing.T) {
	t.Parallel()
	runner := &testutil.FakeRunner{}
	prompter := &testutil.FakePrompter{}
	g, _ := setup(t, &fakeCFN{}, runner, prompter)

	if err := g.CreateLocalServer(context.Background(), "dev"); err != nil {
		t.Fatal(err)
	}
	if runner.Count("frontend dev") != 0 {
		t.Error("dev server must not start without an environment")
	}
	if prompter.Pauses != 0 {
		t.Error("operator should not be prompted")
	}
}

func TestDevServerCommand(t *testing.T) {
	t.Parallel()
	if got := localenv.DevServerCommand("windows"); got != "npm run -w frontend dev" {
		t.Errorf("windows: %q", got)
	}
	if got := localenv.DevServerCommand("darwin"); got != "(npm run -w frontend dev &)" {
		t.Errorf("darwin: %q", got)
	}
}
