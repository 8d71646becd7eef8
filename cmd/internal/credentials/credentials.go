// Package credentials validates and repairs the CLI profiles used per stage.
package credentials

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/genailabs/starterkit/cmd/internal/cmdexec"
	"github.com/genailabs/starterkit/cmd/internal/fatal"
	"github.com/genailabs/starterkit/cmd/internal/projcfg"
	"github.com/genailabs/starterkit/cmd/internal/prompt"
	"github.com/genailabs/starterkit/cmd/internal/report"
	"go.uber.org/zap"
)

var (
	ErrUnknownStage    = errors.New("unknown stage")
	ErrAccountMismatch = errors.New("account mismatch")
)

type Manager struct {
	cfg      *projcfg.Config
	runner   cmdexec.Runner
	prompter prompt.Prompter
	provider Provider
	rep      *report.Reporter
	logger   *zap.Logger
}

func NewManager(
	cfg *projcfg.Config,
	runner cmdexec.Runner,
	prompter prompt.Prompter,
	provider Provider,
	rep *report.Reporter,
	logger *zap.Logger,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		runner:   runner,
		prompter: prompter,
		provider: provider,
		rep:      rep,
		logger:   logger,
	}
}

// Refresh makes sure the stage's profile has live credentials. The operator
// gets exactly one chance to repair it; every failure is fatal except a
// cancelled prompt, which returns an error marked prompt.ErrCancelled.
func (m *Manager) Refresh(ctx context.Context, stage string) error {
	acct, ok := m.cfg.Account(stage)
	if !ok {
		m.rep.Error("Account not found.")
		return fatal.Mark(errors.Mark(errors.Newf("no account configured for stage %q", stage), ErrUnknownStage))
	}

	profile := m.cfg.ProfileName(stage)
	m.rep.Info("Verifying %s credentials for profile %s...", stage, profile)

	_, err := m.runner.Output(ctx, identityCommand(profile))
	if err == nil {
		m.rep.Success("Valid credentials found for %s profile!", stage)
		return nil
	}
	m.logger.Debug("identity check failed", zap.String("profile", profile), zap.Error(err))

	m.rep.Warn("Invalid or expired credentials for profile %s.", profile)

	yes, err := m.prompter.Confirm("Would you like to configure " + describe(m.provider) + " for " + stage + "?")
	if errors.Is(err, prompt.ErrCancelled) {
		return errors.Wrapf(err, "configuring profile %s", profile)
	}
	if err != nil || !yes {
		m.rep.Error("Valid AWS credentials required to proceed.")
		return fatal.Newf("credentials for profile %s were not repaired", profile)
	}

	m.rep.Info("Running %s configure for profile %s...", m.provider.Name(), profile)
	if err := m.runner.Run(ctx, m.provider.RefreshCommand(profile, acct.Number)); err != nil {
		m.rep.Error("Failed to configure %s profile.", stage)
		return fatal.Mark(errors.Wrapf(err, "configuring profile %s", profile))
	}
	if _, err := m.runner.Output(ctx, identityCommand(profile)); err != nil {
		m.rep.Error("Failed to configure %s profile.", stage)
		return fatal.Mark(errors.Wrapf(err, "verifying profile %s after configure", profile))
	}

	m.rep.Success("Successfully configured %s profile!", stage)
	return nil
}

// CreateProfile ensures profile exists and points at accountNumber. A
// mismatching account is only accepted when the operator confirms it.
func (m *Manager) CreateProfile(ctx context.Context, accountNumber, profile string) error {
	if got, err := m.callerAccount(ctx, profile); err == nil {
		if err := m.checkAccount(got, accountNumber, profile); err != nil {
			return err
		}
		m.rep.Success("Profile %q for account %s already exists and is valid.", profile, accountNumber)
		return nil
	}

	m.rep.Info("Creating %s %q for account %s...", describe(m.provider), profile, accountNumber)
	if err := m.runner.Run(ctx, m.provider.CreateCommand(profile, accountNumber)); err != nil {
		return errors.Wrapf(err, "failed to create profile %q for account %s", profile, accountNumber)
	}

	got, err := m.callerAccount(ctx, profile)
	if err != nil {
		return errors.Wrapf(err, "failed to create profile %q for account %s", profile, accountNumber)
	}
	if err := m.checkAccount(got, accountNumber, profile); err != nil {
		return err
	}
	m.rep.Success("Created and verified profile for account %s!", accountNumber)
	return nil
}

func (m *Manager) checkAccount(got, want, profile string) error {
	if got == want {
		return nil
	}

	m.rep.Warn("Warning: Configured account %s doesn't match expected account %s.", got, want)
	if yes, err := m.prompter.Confirm("Continue anyway?"); err == nil && yes {
		return nil
	}
	return errors.Mark(
		errors.Newf("profile %q resolves to account %s, expected %s", profile, got, want),
		ErrAccountMismatch,
	)
}

type callerIdentity struct {
	Account string `json:"Account"`
	Arn     string `json:"Arn"`
	UserID  string `json:"UserId"`
}

func (m *Manager) callerAccount(ctx context.Context, profile string) (string, error) {
	out, err := m.runner.Output(ctx, identityCommand(profile))
	if err != nil {
		return "", err
	}
	var id callerIdentity
	if err := json.Unmarshal([]byte(out), &id); err != nil {
		return "", errors.Wrapf(err, "decoding caller identity for profile %s", profile)
	}
	return id.Account, nil
}
