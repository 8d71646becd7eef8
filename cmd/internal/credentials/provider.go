package credentials

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/genailabs/starterkit/cmd/internal/cmdexec"
)

// Provider supplies the commands that repair a profile. The identity check
// itself always goes through the AWS CLI since both tools write credentials
// into the shared AWS config.
type Provider interface {
	Name() string
	// Tools lists the executables the provider's commands need.
	Tools() []string
	// RefreshCommand interactively renews the credentials of an existing profile.
	RefreshCommand(profile, accountNumber string) string
	// CreateCommand interactively creates profile for accountNumber.
	CreateCommand(profile, accountNumber string) string
}

// AWSCLI configures profiles with `aws configure`.
type AWSCLI struct{}

func (AWSCLI) Name() string { return "aws" }

func (AWSCLI) Tools() []string { return []string{"aws"} }

func (AWSCLI) RefreshCommand(profile, _ string) string {
	return cmdexec.Join("aws", "configure", "--profile", profile)
}

func (AWSCLI) CreateCommand(profile, _ string) string {
	return cmdexec.Join("aws", "configure", "--profile", profile)
}

// Ada uses the ada credential helper with the isengard provider and Admin role.
type Ada struct{}

func (Ada) Name() string { return "ada" }

func (Ada) Tools() []string { return []string{"aws", "ada"} }

func (Ada) RefreshCommand(_, accountNumber string) string {
	return cmdexec.Join("ada", "credentials", "update",
		"--provider=isengard", "--role", "Admin", "--once", "--account="+accountNumber)
}

func (Ada) CreateCommand(profile, accountNumber string) string {
	return cmdexec.Join("ada", "profile", "add",
		"--profile="+profile, "--account="+accountNumber, "--provider=isengard", "--role=Admin")
}

// ProviderByName resolves the --credentials flag.
func ProviderByName(name string) (Provider, error) {
	switch name {
	case "", "aws":
		return AWSCLI{}, nil
	case "ada":
		return Ada{}, nil
	default:
		return nil, errors.Newf("unknown credential provider %q (supported: aws, ada)", name)
	}
}

func identityCommand(profile string) string {
	return cmdexec.Join("aws", "sts", "get-caller-identity", "--profile", profile, "--output", "json")
}

func describe(p Provider) string {
	return fmt.Sprintf("%s profile", p.Name())
}
