package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aswathsr101/djl-publisher/internal/config"
	"github.com/aswathsr101/djl-publisher/internal/dao/rundao"
	"github.com/aswathsr101/djl-publisher/internal/docker"
	apperrors "github.com/aswathsr101/djl-publisher/internal/errors"
	"github.com/aswathsr101/djl-publisher/internal/registry"
)

type fakeVersions struct {
	version string
	err     error
}

func (f *fakeVersions) Resolve(ctx context.Context) (string, error) {
	return f.version, f.err
}

type fakeECR struct{}

func (fakeECR) Credentials(ctx context.Context) (registry.Credentials, error) {
	return registry.Credentials{User: "AWS", Pass: "token"}, nil
}

func (fakeECR) RegistryHost(ctx context.Context) (string, error) {
	return "123456789012.dkr.ecr.us-east-1.amazonaws.com", nil
}

type fakeHub struct {
	existing map[string]bool
	err      error
}

func (f *fakeHub) TagExists(ctx context.Context, repo, tag string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.existing[repo+":"+tag], nil
}

type fakeDocker struct {
	logins   []string
	creds    []registry.Credentials
	steps    []docker.BuildStep
	buildErr error
}

func (f *fakeDocker) Login(ctx context.Context, host string, creds registry.Credentials) error {
	f.logins = append(f.logins, host)
	f.creds = append(f.creds, creds)
	return nil
}

func (f *fakeDocker) Build(ctx context.Context, step docker.BuildStep) (*docker.StepResult, error) {
	f.steps = append(f.steps, step)
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return &docker.StepResult{Status: "success", Images: step.Tags}, nil
}

type fakeWheel struct {
	path  string
	err   error
	calls int
}

func (f *fakeWheel) Build(ctx context.Context) (string, error) {
	f.calls++
	return f.path, f.err
}

type fakeUploader struct {
	key string
}

func (f *fakeUploader) UploadWheel(ctx context.Context, image, mode, runID, wheelPath string) (string, error) {
	f.key = fmt.Sprintf("%s/%s/%s/wheel.whl", image, mode, runID)
	return f.key, nil
}

type fakeRuns struct {
	created  []rundao.CreateInput
	statuses []rundao.RunStatus
	errorMsg *string
}

func (f *fakeRuns) Create(ctx context.Context, input rundao.CreateInput) (rundao.Record, error) {
	f.created = append(f.created, input)
	return rundao.Record{PK: rundao.NewPK(input.Image, input.Mode), SK: input.SK}, nil
}

func (f *fakeRuns) StartExecution(ctx context.Context, pk rundao.PK, sk string, executionArn string) error {
	f.statuses = append(f.statuses, rundao.RunStatusInProgress)
	return nil
}

func (f *fakeRuns) UpdateStatus(ctx context.Context, input rundao.UpdateInput) error {
	f.statuses = append(f.statuses, *input.Status)
	f.errorMsg = input.ErrorMsg
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Env:    "dev",
		Region: "us-east-1",
		Image: config.ImageConfig{
			ECRRepository:       "djl-serving",
			DockerHubRepository: "deepjavalibrary/djl-serving",
			Dockerfile:          "serving/docker/Dockerfile",
			Context:             "serving/docker",
		},
	}
}

func newTestPipeline(cfg *config.Config) (*Pipeline, *fakeDocker, *fakeRuns) {
	d := &fakeDocker{}
	runs := &fakeRuns{}
	p := &Pipeline{
		Config:   cfg,
		Versions: &fakeVersions{version: "0.25.0"},
		ECR:      fakeECR{},
		Hub:      &fakeHub{},
		HubCreds: registry.Credentials{User: "publisher", Pass: "hunter2"},
		Docker:   d,
		Runs:     runs,
	}
	return p, d, runs
}

func TestRunNightly(t *testing.T) {
	p, d, runs := newTestPipeline(testConfig())
	p.Wheel = &fakeWheel{path: "dist/djl_serving-0.25.0-py3-none-any.whl"}
	p.Artifacts = &fakeUploader{}

	result, err := p.Run(context.Background(), "", "")
	require.NoError(t, err)

	assert.Equal(t, "cpu-nightly", result.Tag)
	assert.True(t, result.Pushed)
	assert.Equal(t, []string{
		"123456789012.dkr.ecr.us-east-1.amazonaws.com/djl-serving:cpu-nightly",
		"deepjavalibrary/djl-serving:cpu-nightly",
	}, result.References)
	assert.NotEmpty(t, result.WheelKey)

	// ECR login happens before Docker Hub login.
	require.Len(t, d.logins, 2)
	assert.Equal(t, "123456789012.dkr.ecr.us-east-1.amazonaws.com", d.logins[0])
	assert.Equal(t, registry.Host, d.logins[1])

	require.Len(t, d.steps, 1)
	assert.True(t, d.steps[0].Push)
	assert.Equal(t, "0.25.0", d.steps[0].BuildArgs["DJL_VERSION"])

	assert.Equal(t, []rundao.RunStatus{rundao.RunStatusInProgress, rundao.RunStatusSuccess}, runs.statuses)
}

func TestRunRelease(t *testing.T) {
	p, d, _ := newTestPipeline(testConfig())

	result, err := p.Run(context.Background(), "release", "0.25.0")
	require.NoError(t, err)

	assert.Equal(t, "0.25.0-cpu", result.Tag)
	require.Len(t, d.steps, 1)
	assert.Contains(t, d.steps[0].Tags, "deepjavalibrary/djl-serving:0.25.0-cpu")
}

func TestRunReleaseTagImmutable(t *testing.T) {
	p, d, runs := newTestPipeline(testConfig())
	p.Hub = &fakeHub{existing: map[string]bool{
		"deepjavalibrary/djl-serving:0.25.0-cpu": true,
	}}

	_, err := p.Run(context.Background(), "release", "0.25.0")
	assert.ErrorIs(t, err, apperrors.ErrTagAlreadyPublished)
	assert.Empty(t, d.steps, "no build should run")
	assert.Equal(t, rundao.RunStatusFailed, runs.statuses[len(runs.statuses)-1])
	require.NotNil(t, runs.errorMsg)
}

func TestRunReleaseRequiresVersion(t *testing.T) {
	p, d, _ := newTestPipeline(testConfig())
	p.Versions = &fakeVersions{err: apperrors.ErrVersionNotFound}
	wheel := &fakeWheel{}
	p.Wheel = wheel

	_, err := p.Run(context.Background(), "release", "")
	assert.ErrorIs(t, err, apperrors.ErrMissingVersion)
	assert.Zero(t, wheel.calls, "wheel build should not start")
	assert.Empty(t, d.steps)
}

func TestRunNightlyToleratesMissingVersion(t *testing.T) {
	p, d, _ := newTestPipeline(testConfig())
	p.Versions = &fakeVersions{err: apperrors.ErrVersionNotFound}

	result, err := p.Run(context.Background(), "nightly", "")
	require.NoError(t, err)
	assert.Equal(t, "cpu-nightly", result.Tag)
	require.Len(t, d.steps, 1)
	assert.Equal(t, "", d.steps[0].BuildArgs["DJL_VERSION"])
}

func TestRunInvalidMode(t *testing.T) {
	p, d, _ := newTestPipeline(testConfig())

	_, err := p.Run(context.Background(), "bogus", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidMode)
	assert.Empty(t, d.logins, "nothing should run for an invalid mode")
}

func TestRunDryRunLoadsInsteadOfPush(t *testing.T) {
	p, d, _ := newTestPipeline(testConfig())
	p.DryRun = true
	p.Runs = nil

	result, err := p.Run(context.Background(), "nightly", "")
	require.NoError(t, err)
	assert.False(t, result.Pushed)
	require.Len(t, d.steps, 1)
	assert.False(t, d.steps[0].Push)
	assert.True(t, d.steps[0].Load)
}

func TestRunDryRunSkipsHubLogin(t *testing.T) {
	// Wired the way the publish command does a dry run: hub credentials
	// are never resolved, so none may reach docker login.
	p, d, _ := newTestPipeline(testConfig())
	p.DryRun = true
	p.HubCreds = registry.Credentials{}
	p.Hub = nil
	p.Runs = nil

	result, err := p.Run(context.Background(), "nightly", "")
	require.NoError(t, err)
	assert.False(t, result.Pushed)

	require.Len(t, d.logins, 1, "only the ECR login should happen on a dry run")
	assert.Equal(t, "123456789012.dkr.ecr.us-east-1.amazonaws.com", d.logins[0])
	assert.NotContains(t, d.logins, registry.Host)
	for _, creds := range d.creds {
		assert.NotEqual(t, registry.Credentials{}, creds, "no login may run with empty credentials")
	}

	require.Len(t, d.steps, 1)
	assert.True(t, d.steps[0].Load)
}

func TestRunSkipsHubLoginWithoutCredentials(t *testing.T) {
	p, d, _ := newTestPipeline(testConfig())
	p.HubCreds = registry.Credentials{}

	_, err := p.Run(context.Background(), "nightly", "")
	require.NoError(t, err)
	assert.NotContains(t, d.logins, registry.Host)
}

func TestRunReleaseVersionErrorKeepsCause(t *testing.T) {
	p, _, _ := newTestPipeline(testConfig())
	cause := fmt.Errorf("reading version parameter /djl/version: %w", context.DeadlineExceeded)
	p.Versions = &fakeVersions{err: cause}

	_, err := p.Run(context.Background(), "release", "")
	assert.ErrorIs(t, err, apperrors.ErrMissingVersion)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "the resolver's cause must stay in the chain")
}

func TestRunBuildFailureRecorded(t *testing.T) {
	p, d, runs := newTestPipeline(testConfig())
	d.buildErr = fmt.Errorf("docker buildx build failed: exit status 1")

	_, err := p.Run(context.Background(), "nightly", "")
	assert.ErrorContains(t, err, "buildx build failed")
	assert.Equal(t, rundao.RunStatusFailed, runs.statuses[len(runs.statuses)-1])
}

func TestRunECROnlyConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Image.DockerHubRepository = ""
	p, d, _ := newTestPipeline(cfg)

	result, err := p.Run(context.Background(), "nightly", "")
	require.NoError(t, err)
	require.Len(t, d.logins, 1, "no Docker Hub login without a hub repository")
	assert.Equal(t, []string{"123456789012.dkr.ecr.us-east-1.amazonaws.com/djl-serving:cpu-nightly"}, result.References)
}
