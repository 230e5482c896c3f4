// Package trigger starts publish runs on the build fleet. Both entry
// points (the nightly schedule and manual dispatch) create a PENDING run
// record and hand the request to Step Functions; the state machine runs the
// pipeline on a host with docker available.
package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/segmentio/ksuid"

	"github.com/aswathsr101/djl-publisher/internal/dao/rundao"
	"github.com/aswathsr101/djl-publisher/internal/release"
)

// PublishInput is the input payload for Step Functions executions.
type PublishInput struct {
	Image   string `json:"image"`   // Image repository name
	Mode    string `json:"mode"`    // nightly or release
	Version string `json:"version"` // Version string (empty for nightly)
	Tag     string `json:"tag"`     // Selected image tag
	SK      string `json:"sk"`      // KSUID - DynamoDB sort key
}

// Starter manages Step Functions execution lifecycle for publish runs.
type Starter struct {
	sfnClient       *sfn.Client
	stateMachineArn string
	dao             *rundao.DAO
}

// New creates a new Starter instance.
func New(sfnClient *sfn.Client, stateMachineArn string, dao *rundao.DAO) *Starter {
	return &Starter{
		sfnClient:       sfnClient,
		stateMachineArn: stateMachineArn,
		dao:             dao,
	}
}

// Start creates a PENDING run record for the request, starts a Step
// Functions execution, and atomically flips the record to IN_PROGRESS with
// the execution ARN. Returns the run ID and execution ARN.
func (s *Starter) Start(ctx context.Context, image string, req release.PublishRequest) (rundao.ID, string, error) {
	decision, err := release.SelectTag(req.Mode, req.Version)
	if err != nil {
		return "", "", err
	}

	sk := ksuid.New().String()

	record, err := s.dao.Create(ctx, rundao.CreateInput{
		Image:       image,
		Mode:        string(req.Mode),
		SK:          sk,
		Version:     req.Version,
		Tag:         decision.Tag,
		PushEnabled: decision.Push,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to create run record: %w", err)
	}

	input := PublishInput{
		Image:   image,
		Mode:    string(req.Mode),
		Version: req.Version,
		Tag:     decision.Tag,
		SK:      sk,
	}
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal publish input: %w", err)
	}

	result, err := s.sfnClient.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(s.stateMachineArn),
		Name:            aws.String(executionName(image, string(req.Mode), sk)),
		Input:           aws.String(string(inputJSON)),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to start step function execution: %w", err)
	}

	executionArn := aws.ToString(result.ExecutionArn)

	if err := s.dao.StartExecution(ctx, record.PK, sk, executionArn); err != nil {
		return "", "", fmt.Errorf("failed to update run status: %w", err)
	}

	return rundao.GetID(record), executionArn, nil
}

// executionName builds a Step Functions execution name. Execution names
// reject "/" so namespaced images are flattened.
func executionName(image, mode, sk string) string {
	flat := strings.ReplaceAll(image, "/", "-")
	return fmt.Sprintf("%s-%s-%s", flat, mode, sk)
}
