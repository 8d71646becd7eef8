// Package awsclient builds AWS SDK clients bound to a CLI profile and region.
package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel/trace"
)

type Factory struct {
	tp trace.TracerProvider
}

func NewFactory(tp trace.TracerProvider) *Factory {
	return &Factory{tp: tp}
}

// Config loads the shared configuration for profile, pinned to region.
func (f *Factory) Config(ctx context.Context, profile, region string) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithSharedConfigProfile(profile),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return cfg, errors.Wrapf(err, "loading AWS config for profile %s", profile)
	}
	if f.tp != nil {
		otelaws.AppendMiddlewares(&cfg.APIOptions, otelaws.WithTracerProvider(f.tp))
	}
	return cfg, nil
}

func (f *Factory) CloudFormation(ctx context.Context, profile, region string) (*cloudformation.Client, error) {
	cfg, err := f.Config(ctx, profile, region)
	if err != nil {
		return nil, err
	}
	return cloudformation.NewFromConfig(cfg), nil
}

func (f *Factory) SecretsManager(ctx context.Context, profile, region string) (*secretsmanager.Client, error) {
	cfg, err := f.Config(ctx, profile, region)
	if err != nil {
		return nil, err
	}
	return secretsmanager.NewFromConfig(cfg), nil
}
