// Package clients constructs the AWS service clients the relay depends on.
package clients

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/samber/oops"

	"github.com/eventrelay/eventrelay/internal/config"
)

func load(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{}

	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// NewDynamoDB builds the table client. A configured endpoint switches to
// static credentials, which is what local DynamoDB containers expect.
func NewDynamoDB(ctx context.Context, cfg config.Store) (*dynamodb.Client, error) {
	awsCfg, err := load(ctx, cfg.Region)
	if err != nil {
		return nil, oops.In("clients").Wrapf(err, "loading AWS config")
	}

	if cfg.Endpoint != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider("local", "local", "")

		return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}), nil
	}

	return dynamodb.NewFromConfig(awsCfg), nil
}

func NewSecretsManager(ctx context.Context, region string) (*secretsmanager.Client, error) {
	awsCfg, err := load(ctx, region)
	if err != nil {
		return nil, oops.In("clients").Wrapf(err, "loading AWS config")
	}

	return secretsmanager.NewFromConfig(awsCfg), nil
}

func NewCloudWatch(ctx context.Context, region string) (*cloudwatch.Client, error) {
	awsCfg, err := load(ctx, region)
	if err != nil {
		return nil, oops.In("clients").Wrapf(err, "loading AWS config")
	}

	return cloudwatch.NewFromConfig(awsCfg), nil
}
