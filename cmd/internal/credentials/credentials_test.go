package credentials_test

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/genailabs/starterkit/cmd/internal/credentials"
	"github.com/genailabs/starterkit/cmd/internal/fatal"
	"github.com/genailabs/starterkit/cmd/internal/projcfg"
	"github.com/genailabs/starterkit/cmd/internal/prompt"
	"github.com/genailabs/starterkit/cmd/internal/report"
	"github.com/genailabs/starterkit/cmd/internal/testutil"
	"github.com/google/go-cmp/cmp"
)

const (
	identityCmd = "get-caller-identity"
	devIdentity = `{"UserId":"AIDA","Account":"111111111111","Arn":"arn:aws:iam::111111111111:user/op"}`
)

func testConfig(t *testing.T) *projcfg.Config {
	t.Helper()
	cfg, err := projcfg.Parse([]byte(`{
		"projectId": "mac-demo",
		"codeArtifact": false,
		"midway": false,
		"codePipeline": false,
		"accounts": {
			"dev": {"number": "111111111111", "region": "us-east-1"},
			"prod": {"number": "222222222222", "region": "us-west-2"}
		}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func newManager(t *testing.T, runner *testutil.FakeRunner, prompter *testutil.FakePrompter, p credentials.Provider) *credentials.Manager {
	t.Helper()
	return credentials.NewManager(testConfig(t), runner, prompter, p, report.Discard(), nil)
}

func TestRefresh_ValidCredentials(t *testing.T) {
	t.Parallel()
	runner := &testutil.FakeRunner{}
	prompter := &testutil.FakePrompter{}

	if err := newManager(t, runner, prompter, credentials.AWSCLI{}).Refresh(context.Background(), "dev"); err != nil {
		t.Fatal(err)
	}

	want := []string{"aws sts get-caller-identity --profile mac-demo-dev --output json"}
	if diff := cmp.Diff(want, runner.Commands()); diff != "" {
		t.Errorf("unexpected commands (-want +got):\n%s", diff)
	}
	if len(prompter.Asked) != 0 {
		t.Errorf("no prompt expected, got %v", prompter.Asked)
	}
}

func TestRefresh_RepairsOnce(t *testing.T) {
	t.Parallel()
	runner := (&testutil.FakeRunner{}).
		On(identityCmd, testutil.Result{Err: testutil.ExitErr(255)}, testutil.Result{Output: devIdentity})
	prompter := &testutil.FakePrompter{Confirms: []any{true}}

	if err := newManager(t, runner, prompter, credentials.AWSCLI{}).Refresh(context.Background(), "dev"); err != nil {
		t.Fatal(err)
	}

	want := []testutil.Call{
		{Command: "aws sts get-caller-identity --profile mac-demo-dev --output json", Captured: true},
		{Command: "aws configure --profile mac-demo-dev", Captured: false},
		{Command: "aws sts get-caller-identity --profile mac-demo-dev --output json", Captured: true},
	}
	if diff := cmp.Diff(want, runner.Calls()); diff != "" {
		t.Errorf("unexpected calls (-want +got):\n%s", diff)
	}
}

func TestRefresh_DoubleFailureIsFatal(t *testing.T) {
	t.Parallel()
	runner := (&testutil.FakeRunner{}).On(identityCmd, testutil.Result{Err: testutil.ExitErr(255)})
	prompter := &testutil.FakePrompter{Confirms: []any{true, true, true}}

	err := newManager(t, runner, prompter, credentials.AWSCLI{}).Refresh(context.Background(), "dev")
	if !fatal.Is(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if n := runner.Count(identityCmd); n != 2 {
		t.Errorf("identity checked %d times, want exactly 2", n)
	}
	if len(prompter.Confirms) != 2 {
		t.Errorf("only one repair offer expected, %d confirms consumed", 3-len(prompter.Confirms))
	}
}

func TestRefresh_DeclinedIsFatal(t *testing.T) {
	t.Parallel()
	runner := (&testutil.FakeRunner{}).On(identityCmd, testutil.Result{Err: testutil.ExitErr(255)})
	prompter := &testutil.FakePrompter{Confirms: []any{false}}

	err := newManager(t, runner, prompter, credentials.AWSCLI{}).Refresh(context.Background(), "dev")
	if !fatal.Is(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if n := runner.Count("aws configure"); n != 0 {
		t.Errorf("configure must not run after the operator declines, ran %d times", n)
	}
}

func TestRefresh_CancelledPromptIsNotFatal(t *testing.T) {
	t.Parallel()
	runner := (&testutil.FakeRunner{}).On(identityCmd, testutil.Result{Err: testutil.ExitErr(255)})

	err := newManager(t, runner, &testutil.FakePrompter{}, credentials.AWSCLI{}).Refresh(context.Background(), "dev")
	if !errors.Is(err, prompt.ErrCancelled) {
		t.Fatalf("expected cancelled error, got %v", err)
	}
	if fatal.Is(err) {
		t.Errorf("a cancelled prompt must not be fatal: %v", err)
	}
	if n := runner.Count("aws configure"); n != 0 {
		t.Errorf("configure must not run after a cancel, ran %d times", n)
	}
}

func TestRefresh_UnknownStage(t *testing.T) {
	t.Parallel()
	runner := &testutil.FakeRunner{}

	err := newManager(t, runner, &testutil.FakePrompter{}, credentials.AWSCLI{}).Refresh(context.Background(), "qa")
	if !fatal.Is(err) || !errors.Is(err, credentials.ErrUnknownStage) {
		t.Fatalf("expected fatal ErrUnknownStage, got %v", err)
	}
	if len(runner.Calls()) != 0 {
		t.Errorf("no command expected, got %v", runner.Commands())
	}
}

func TestRefresh_AdaUsesCredentialHelper(t *testing.T) {
	t.Parallel()
	runner := (&testutil.FakeRunner{}).
		On(identityCmd, testutil.Result{Err: testutil.ExitErr(1)}, testutil.Result{Output: devIdentity})
	prompter := &testutil.FakePrompter{Confirms: []any{true}}

	if err := newManager(t, runner, prompter, credentials.Ada{}).Refresh(context.Background(), "prod"); err != nil {
		t.Fatal(err)
	}

	want := "ada credentials update --provider=isengard --role Admin --once --account=222222222222"
	if runner.Count(want) != 1 {
		t.Errorf("expected %q, got %v", want, runner.Commands())
	}
}

func TestCreateProfile_ExistingMatchingProfile(t *testing.T) {
	t.Parallel()
	runner := (&testutil.FakeRunner{}).On(identityCmd, testutil.Result{Output: devIdentity})
	prompter := &testutil.FakePrompter{}

	err := newManager(t, runner, prompter, credentials.AWSCLI{}).
		CreateProfile(context.Background(), "111111111111", "mac-demo-dev")
	if err != nil {
		t.Fatal(err)
	}
	if n := runner.Count("aws configure"); n != 0 {
		t.Errorf("configure should not run for a valid profile, ran %d times", n)
	}
}

func TestCreateProfile_MismatchDeclined(t *testing.T) {
	t.Parallel()
	runner := (&testutil.FakeRunner{}).On(identityCmd, testutil.Result{Output: devIdentity})
	prompter := &testutil.FakePrompter{Confirms: []any{false}}

	err := newManager(t, runner, prompter, credentials.AWSCLI{}).
		CreateProfile(context.Background(), "999999999999", "mac-demo-dev")
	if !errors.Is(err, credentials.ErrAccountMismatch) {
		t.Fatalf("expected ErrAccountMismatch, got %v", err)
	}
	if fatal.Is(err) {
		t.Error("account mismatch should abort the stage, not the process")
	}
	if diff := cmp.Diff([]string{"Continue anyway?"}, prompter.Asked); diff != "" {
		t.Errorf("unexpected prompts (-want +got):\n%s", diff)
	}
}

func TestCreateProfile_MismatchAccepted(t *testing.T) {
	t.Parallel()
	runner := (&testutil.FakeRunner{}).On(identityCmd, testutil.Result{Output: devIdentity})
	prompter := &testutil.FakePrompter{Confirms: []any{true}}

	err := newManager(t, runner, prompter, credentials.AWSCLI{}).
		CreateProfile(context.Background(), "999999999999", "mac-demo-dev")
	if err != nil {
		t.Fatal(err)
	}
}

func TestCreateProfile_ConfiguresMissingProfile(t *testing.T) {
	t.Parallel()
	runner := (&testutil.FakeRunner{}).
		On(identityCmd, testutil.Result{Err: testutil.ExitErr(255)}, testutil.Result{Output: devIdentity})

	err := newManager(t, runner, &testutil.FakePrompter{}, credentials.Ada{}).
		CreateProfile(context.Background(), "111111111111", "mac-demo-dev")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"aws sts get-caller-identity --profile mac-demo-dev --output json",
		"ada profile add --profile=mac-demo-dev --account=111111111111 --provider=isengard --role=Admin",
		"aws sts get-caller-identity --profile mac-demo-dev --output json",
	}
	if diff := cmp.Diff(want, runner.Commands()); diff != "" {
		t.Errorf("unexpected commands (-want +got):\n%s", diff)
	}
}

func TestCreateProfile_ConfigureFailureNamesProfile(t *testing.T) {
	t.Parallel()
	runner := (&testutil.FakeRunner{}).
		On(identityCmd, testutil.Result{Err: testutil.ExitErr(255)}).
		On("aws configure", testutil.Result{Err: testutil.ExitErr(1)})

	err := newManager(t, runner, &testutil.FakePrompter{}, credentials.AWSCLI{}).
		CreateProfile(context.Background(), "111111111111", "mac-demo-dev")
	if err == nil {
		t.Fatal("expected error")
	}
	if msg := err.Error(); !strings.Contains(msg, "mac-demo-dev") || !strings.Contains(msg, "111111111111") {
		t.Errorf("error should name profile and account, got %q", msg)
	}
}

func TestProviderByName(t *testing.T) {
	t.Parallel()
	for name, want := range map[string]string{"": "aws", "aws": "aws", "ada": "ada"} {
		p, err := credentials.ProviderByName(name)
		if err != nil {
			t.Fatalf("ProviderByName(%q): %v", name, err)
		}
		if p.Name() != want {
			t.Errorf("ProviderByName(%q).Name() = %q, want %q", name, p.Name(), want)
		}
	}
	if _, err := credentials.ProviderByName("gcloud"); err == nil {
		t.Error("expected error for unknown provider")
	}
}
