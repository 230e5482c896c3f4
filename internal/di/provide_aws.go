package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/aswathsr101/djl-publisher/internal/registry"
	"github.com/aswathsr101/djl-publisher/internal/services"
)

func ProvideAWSConfig(ctx context.Context, region Region) (aws.Config, error) {
	if region != "" {
		return config.LoadDefaultConfig(ctx, config.WithRegion(string(region)))
	}
	return config.LoadDefaultConfig(ctx)
}

func ProvideDynamoDB(config aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(config)
}

func ProvideStepFunctions(config aws.Config) *sfn.Client {
	return sfn.NewFromConfig(config)
}

func ProvideS3Client(config aws.Config) *s3.Client {
	return s3.NewFromConfig(config)
}

func ProvideSSMClient(config aws.Config) *ssm.Client {
	return ssm.NewFromConfig(config)
}

func ProvideECR(config aws.Config) *registry.ECR {
	return registry.NewECRFromConfig(config, config.Region)
}

func ProvideSecretsManager(config aws.Config) *services.SecretsManagerService {
	return services.NewSecretsManagerService(config)
}
