// Package cfnread reads deployed CloudFormation stacks.
package cfnread

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// API is the subset of the CloudFormation client used here.
type API interface {
	DescribeStacks(ctx context.Context, in *cloudformation.DescribeStacksInput,
		optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	ListStacks(ctx context.Context, in *cloudformation.ListStacksInput,
		optFns ...func(*cloudformation.Options)) (*cloudformation.ListStacksOutput, error)
}

// ClientFunc returns a client acting as profile in region.
type ClientFunc func(ctx context.Context, profile, region string) (API, error)

type Output struct {
	Value      string
	ExportName string
}

type Stack struct {
	Name   string
	Status string
}

func StackOutputs(ctx context.Context, api API, stackName string) ([]Output, error) {
	resp, err := api.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(stackName)})
	if err != nil {
		return nil, errors.Wrapf(err, "describing stack %s", stackName)
	}
	if len(resp.Stacks) == 0 {
		return nil, errors.Newf("stack %s not found", stackName)
	}

	return lo.Map(resp.Stacks[0].Outputs, func(o types.Output, _ int) Output {
		return Output{
			Value:      aws.ToString(o.OutputValue),
			ExportName: aws.ToString(o.ExportName),
		}
	}), nil
}

// ActiveStacks lists every stack that finished creating or updating.
func ActiveStacks(ctx context.Context, api API) ([]Stack, error) {
	var stacks []Stack
	pager := cloudformation.NewListStacksPaginator(api, &cloudformation.ListStacksInput{
		StackStatusFilter: []types.StackStatus{types.StackStatusCreateComplete, types.StackStatusUpdateComplete},
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "listing stacks")
		}
		for _, s := range page.StackSummaries {
			stacks = append(stacks, Stack{Name: aws.ToString(s.StackName), Status: string(s.StackStatus)})
		}
	}
	return stacks, nil
}
