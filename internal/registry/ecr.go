package registry

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ECR resolves docker credentials and the registry host for the account's
// private ECR registry.
type ECR struct {
	client    *ecr.Client
	stsClient *sts.Client
	region    string
}

// NewECR creates an ECR helper using the default AWS credential chain.
func NewECR(ctx context.Context, region string) (*ECR, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewECRFromConfig(cfg, region), nil
}

// NewECRFromConfig creates an ECR helper from an existing AWS config.
func NewECRFromConfig(cfg aws.Config, region string) *ECR {
	return &ECR{
		client:    ecr.NewFromConfig(cfg),
		stsClient: sts.NewFromConfig(cfg),
		region:    region,
	}
}

// Credentials requests a fresh authorization token and decodes it into a
// username/password pair usable with docker login. Tokens are valid for 12
// hours, comfortably longer than any single run.
func (e *ECR) Credentials(ctx context.Context) (Credentials, error) {
	out, err := e.client.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to get ECR authorization token: %w", err)
	}
	if len(out.AuthorizationData) == 0 || out.AuthorizationData[0].AuthorizationToken == nil {
		return Credentials{}, fmt.Errorf("ECR returned no authorization data")
	}

	decoded, err := base64.StdEncoding.DecodeString(*out.AuthorizationData[0].AuthorizationToken)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to decode ECR authorization token: %w", err)
	}

	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return Credentials{}, fmt.Errorf("malformed ECR authorization token")
	}
	return Credentials{User: user, Pass: pass}, nil
}

// RegistryHost derives the account registry hostname,
// {account}.dkr.ecr.{region}.amazonaws.com, from the caller identity.
func (e *ECR) RegistryHost(ctx context.Context) (string, error) {
	out, err := e.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com", aws.ToString(out.Account), e.region), nil
}
