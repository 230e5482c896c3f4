package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"

	"github.com/aswathsr101/djl-publisher/internal/registry"
)

// SecretsManagerService resolves registry credentials stored in AWS
// Secrets Manager.
type SecretsManagerService struct {
	client *secretsmanager.Client
}

// NewSecretsManagerService creates a SecretsManagerService.
func NewSecretsManagerService(cfg aws.Config) *SecretsManagerService {
	return &SecretsManagerService{
		client: secretsmanager.NewFromConfig(cfg),
	}
}

// DockerHubCredentials loads the Docker Hub username/password from the
// named secret. The secret value is JSON: {"username": ..., "password": ...}.
func (s *SecretsManagerService) DockerHubCredentials(ctx context.Context, secretName string) (registry.Credentials, error) {
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
			return registry.Credentials{}, fmt.Errorf("secret %s does not exist, create it with the Docker Hub username and password: %w", secretName, err)
		}
		return registry.Credentials{}, fmt.Errorf("failed to get secret %s: %w", secretName, err)
	}

	if result.SecretString == nil {
		return registry.Credentials{}, fmt.Errorf("secret %s has no string value", secretName)
	}

	var creds registry.Credentials
	if err := json.Unmarshal([]byte(*result.SecretString), &creds); err != nil {
		return registry.Credentials{}, fmt.Errorf("failed to unmarshal secret %s: %w", secretName, err)
	}
	if creds.User == "" || creds.Pass == "" {
		return registry.Credentials{}, fmt.Errorf("secret %s is missing username or password", secretName)
	}
	return creds, nil
}
