package bootstrap

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cockroachdb/errors"
	"github.com/genailabs/starterkit/cmd/internal/projcfg"
	"go.uber.org/zap"
)

const minTokenLength = 40

// SecretsAPI is the subset of the Secrets Manager client used here.
type SecretsAPI interface {
	DescribeSecret(ctx context.Context, in *secretsmanager.DescribeSecretInput,
		optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	CreateSecret(ctx context.Context, in *secretsmanager.CreateSecretInput,
		optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
}

// SecretsClientFunc returns a client acting as profile in region.
type SecretsClientFunc func(ctx context.Context, profile, region string) (SecretsAPI, error)

type midwaySecret struct {
	ClientID string `json:"clientID"`
}

func (o *Orchestrator) midwaySecretName() string {
	return o.cfg.ProjectID + "-midway-secret"
}

// ensureMidwaySecret creates the stage's Midway secret when missing and
// records its id in the project config file.
func (o *Orchestrator) ensureMidwaySecret(ctx context.Context, stage string, acct projcfg.AccountConfig) error {
	failed := func(err error) error {
		return errors.Wrapf(err, "failed to create Midway secret for %s account %s", stage, acct.Number)
	}

	client, err := o.secrets(ctx, o.cfg.ProfileName(stage), acct.Region)
	if err != nil {
		return failed(err)
	}

	name := o.midwaySecretName()
	var arn string
	desc, err := client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{SecretId: aws.String(name)})
	if err == nil {
		arn = aws.ToString(desc.ARN)
		o.rep.Success("Already created Midway secret for %s account %s.", stage, acct.Number)
	} else {
		o.logger.Debug("describing midway secret", zap.String("secret", name), zap.Error(err))
		o.rep.Info("Creating Midway secret for %s account %s...", stage, acct.Number)

		token, err := o.midwayToken(ctx, stage, acct)
		if err != nil {
			return failed(err)
		}
		payload, err := json.Marshal(midwaySecret{ClientID: token})
		if err != nil {
			return failed(err)
		}
		out, err := client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
			Name:         aws.String(name),
			Description:  aws.String("Midway auth secret"),
			SecretString: aws.String(string(payload)),
		})
		if err != nil {
			return failed(err)
		}
		arn = aws.ToString(out.ARN)
		o.rep.Success("Created Midway secret for %s account %s!", stage, acct.Number)
	}

	if err := o.cfg.SetMidwaySecretID(stage, SecretIDFromARN(arn)); err != nil {
		return errors.Wrapf(err, "failed to update Midway secret in config file for %s account %s", stage, acct.Number)
	}
	o.rep.Success("Updated Midway secret in config file for %s account %s!", stage, acct.Number)
	return nil
}

// midwayToken asks for the token on preset stages and copies the dev
// account's token for sandboxes.
func (o *Orchestrator) midwayToken(ctx context.Context, stage string, acct projcfg.AccountConfig) (string, error) {
	if projcfg.IsPresetStage(stage) {
		for {
			token, err := o.prompter.Secret("Paste Midway secret token for " + stage + " account " + acct.Number + ":")
			if err != nil {
				return "", err
			}
			if len(token) >= minTokenLength {
				return token, nil
			}
			o.rep.Warn("Invalid Midway secret token. Token length must be at least %d characters long. Try again...",
				minTokenLength)
		}
	}

	o.rep.Info("Sandbox account detected. Getting Midway secret from dev account...")
	dev, ok := o.cfg.Account(projcfg.StageDev)
	if !ok {
		return "", errors.New("no dev account to copy the Midway secret from")
	}
	client, err := o.secrets(ctx, o.cfg.ProfileName(projcfg.StageDev), dev.Region)
	if err != nil {
		return "", err
	}
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(o.midwaySecretName()),
	})
	if err != nil {
		return "", errors.Wrap(err, "reading dev Midway secret")
	}
	var secret midwaySecret
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &secret); err != nil {
		return "", errors.Wrap(err, "decoding dev Midway secret")
	}
	return secret.ClientID, nil
}

// SecretIDFromARN returns the random suffix Secrets Manager appends to a
// secret's ARN, e.g. "AbCdEf" for "...:secret:proj-midway-secret-AbCdEf".
func SecretIDFromARN(arn string) string {
	return arn[strings.LastIndex(arn, "-")+1:]
}
