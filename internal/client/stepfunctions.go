package client

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sfn"

	"github.com/Nao-Mk2/sfn-executions-today/internal/model"
)

// SFNAPI is the subset of the Step Functions API we use.
type SFNAPI interface {
	sfn.ListExecutionsAPIClient
	DescribeExecution(ctx context.Context, params *sfn.DescribeExecutionInput, optFns ...func(*sfn.Options)) (*sfn.DescribeExecutionOutput, error)
}

// AuthOptions selects region and credentials for the Step Functions client.
type AuthOptions struct {
	Region  string
	Profile string
}

// StepFunctionsClient lists and describes executions of state machines.
type StepFunctionsClient struct {
	client SFNAPI
}

// New wraps an existing API implementation.
func New(api SFNAPI) *StepFunctionsClient {
	return &StepFunctionsClient{client: api}
}

// NewStepFunctionsClient loads AWS configuration from the default chain
// adjusted by opts and returns a ready client.
func NewStepFunctionsClient(ctx context.Context, opts AuthOptions) (*StepFunctionsClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, NewStepFunctionsOptions(opts)...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(sfn.NewFromConfig(cfg)), nil
}

// NewStepFunctionsOptions builds config load options.
// Precedence for credentials: profile flag, AWS_PROFILE, then static keys
// from AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY. With none of them set the
// SDK default chain (e.g. the Lambda execution role) is used.
func NewStepFunctionsOptions(opts AuthOptions) []func(*config.LoadOptions) error {
	var cfgOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(opts.Region))
	}
	profile := opts.Profile
	if profile == "" {
		profile = os.Getenv("AWS_PROFILE")
	}
	if profile != "" {
		return append(cfgOpts, config.WithSharedConfigProfile(profile))
	}
	key, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if key != "" && secret != "" {
		provider := credentials.NewStaticCredentialsProvider(key, secret, os.Getenv("AWS_SESSION_TOKEN"))
		cfgOpts = append(cfgOpts, config.WithCredentialsProvider(provider))
	}
	return cfgOpts
}

// ListExecutions returns every execution of the state machine, following
// pagination to the last page. Order is the order the service returns.
func (c *StepFunctionsClient) ListExecutions(ctx context.Context, stateMachineArn string) ([]model.ExecutionSummary, error) {
	var out []model.ExecutionSummary
	p := sfn.NewListExecutionsPaginator(c.client, &sfn.ListExecutionsInput{
		StateMachineArn: aws.String(stateMachineArn),
	}, func(o *sfn.ListExecutionsPaginatorOptions) {
		o.StopOnDuplicateToken = true
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list executions: %w", err)
		}
		for _, e := range page.Executions {
			out = append(out, model.ExecutionSummary{
				ExecutionArn:    aws.ToString(e.ExecutionArn),
				StateMachineArn: aws.ToString(e.StateMachineArn),
				Status:          string(e.Status),
				StartDate:       aws.ToTime(e.StartDate).UTC(),
			})
		}
	}
	return out, nil
}

// DescribeInput returns the input payload of one execution, nil when absent.
func (c *StepFunctionsClient) DescribeInput(ctx context.Context, executionArn string) (*string, error) {
	out, err := c.client.DescribeExecution(ctx, &sfn.DescribeExecutionInput{
		ExecutionArn: aws.String(executionArn),
	})
	if err != nil {
		return nil, fmt.Errorf("describe execution %s: %w", executionArn, err)
	}
	return out.Input, nil
}
