// Package pipeline runs a complete publish: registry logins, version
// resolution, wheel build, image build, and conditional push. Execution is
// strictly sequential and fail-fast; the first failing step aborts the run
// with no rollback, and the run record captures the error.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/aswathsr101/djl-publisher/internal/config"
	"github.com/aswathsr101/djl-publisher/internal/dao/rundao"
	"github.com/aswathsr101/djl-publisher/internal/docker"
	apperrors "github.com/aswathsr101/djl-publisher/internal/errors"
	"github.com/aswathsr101/djl-publisher/internal/registry"
	"github.com/aswathsr101/djl-publisher/internal/release"
)

// VersionResolver resolves the package version from configured sources.
type VersionResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// ECRAuth resolves credentials and the registry host for ECR.
type ECRAuth interface {
	Credentials(ctx context.Context) (registry.Credentials, error)
	RegistryHost(ctx context.Context) (string, error)
}

// HubChecker inspects published tags on Docker Hub.
type HubChecker interface {
	TagExists(ctx context.Context, repo, tag string) (bool, error)
}

// DockerClient performs registry logins and image builds.
type DockerClient interface {
	Login(ctx context.Context, host string, creds registry.Credentials) error
	Build(ctx context.Context, step docker.BuildStep) (*docker.StepResult, error)
}

// WheelBuilder builds the package wheel.
type WheelBuilder interface {
	Build(ctx context.Context) (string, error)
}

// ArtifactUploader stores built wheels.
type ArtifactUploader interface {
	UploadWheel(ctx context.Context, image, mode, runID, wheelPath string) (string, error)
}

// RunRecorder persists run history.
type RunRecorder interface {
	Create(ctx context.Context, input rundao.CreateInput) (rundao.Record, error)
	StartExecution(ctx context.Context, pk rundao.PK, sk string, executionArn string) error
	UpdateStatus(ctx context.Context, input rundao.UpdateInput) error
}

// Pipeline wires the publish steps together. Optional collaborators may be
// nil: Hub when no Docker Hub repository is configured, Wheel to skip the
// package build, Artifacts when no bucket is configured, Runs on dry runs.
type Pipeline struct {
	Config    *config.Config
	Versions  VersionResolver
	ECR       ECRAuth
	Hub       HubChecker
	HubCreds  registry.Credentials
	Docker    DockerClient
	Wheel     WheelBuilder
	Artifacts ArtifactUploader
	Runs      RunRecorder
	DryRun    bool
}

// Result summarizes a completed run.
type Result struct {
	RunID      rundao.ID
	Mode       release.Mode
	Version    string
	Tag        string
	References []string
	Pushed     bool
	WheelKey   string
}

// Run executes the pipeline for raw trigger input. Ordering is fixed:
// credential setup, version resolution and tag selection, package build,
// image build and conditional push.
func (p *Pipeline) Run(ctx context.Context, rawMode, explicitVersion string) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	mode, err := release.ParseMode(rawMode)
	if err != nil {
		return nil, err
	}

	sk := ksuid.New().String()
	pk := p.record(ctx, mode, sk)

	result, err := p.run(ctx, mode, explicitVersion, sk)
	if err != nil {
		p.finish(ctx, pk, sk, rundao.RunStatusFailed, nil, err)
		return nil, err
	}

	if p.Runs != nil {
		result.RunID = rundao.NewID(pk, sk)
	}
	p.finish(ctx, pk, sk, rundao.RunStatusSuccess, &result.WheelKey, nil)
	logger.Info().
		Str("tag", result.Tag).
		Bool("pushed", result.Pushed).
		Msg("Publish complete")
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, mode release.Mode, explicitVersion, sk string) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	// --- Credential setup ---
	ecrHost, err := p.loginECR(ctx)
	if err != nil {
		return nil, err
	}
	// Hub credentials are only resolved when a push is intended; a dry run
	// leaves them zero, and logging in with empty credentials would fail.
	if p.Config.Image.DockerHubRepository != "" && !p.DryRun && p.HubCreds != (registry.Credentials{}) {
		if err := p.Docker.Login(ctx, registry.Host, p.HubCreds); err != nil {
			return nil, err
		}
	}

	// --- Version resolution ---
	version := explicitVersion
	if version == "" && p.Versions != nil {
		version, err = p.Versions.Resolve(ctx)
		if err != nil {
			if mode == release.ModeRelease {
				return nil, fmt.Errorf("%w: %w", apperrors.ErrMissingVersion, err)
			}
			// Nightly builds do not need a version; the build-arg stays empty.
			logger.Warn().Err(err).Msg("No version resolved, continuing without one")
			version = ""
		}
	}

	decision, err := release.SelectTag(mode, version)
	if err != nil {
		return nil, err
	}

	references := p.references(decision, ecrHost)
	logger.Info().
		Str("mode", string(mode)).
		Str("tag", decision.Tag).
		Strs("references", references).
		Msg("Tag selected")

	// Release tags are immutable: refuse to overwrite a published one.
	if mode == release.ModeRelease && p.Hub != nil && p.Config.Image.DockerHubRepository != "" {
		exists, err := p.Hub.TagExists(ctx, p.Config.Image.DockerHubRepository, decision.Tag)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: %s:%s", apperrors.ErrTagAlreadyPublished, p.Config.Image.DockerHubRepository, decision.Tag)
		}
	}

	// --- Package build ---
	result := &Result{
		Mode:       mode,
		Version:    version,
		Tag:        decision.Tag,
		References: references,
	}
	if p.Wheel != nil {
		wheelPath, err := p.Wheel.Build(ctx)
		if err != nil {
			return nil, err
		}
		if p.Artifacts != nil {
			image := p.Config.Image.ECRRepository
			if image == "" {
				image = p.Config.Image.DockerHubRepository
			}
			key, err := p.Artifacts.UploadWheel(ctx, image, string(mode), sk, wheelPath)
			if err != nil {
				return nil, err
			}
			result.WheelKey = key
		}
	}

	// --- Image build and conditional push ---
	push := decision.Push && !p.DryRun
	step := docker.BuildStep{
		Dockerfile: p.Config.Image.Dockerfile,
		Context:    p.Config.Image.Context,
		BuildArgs:  map[string]string{"DJL_VERSION": version},
		Tags:       references,
		Push:       push,
		Load:       !push,
	}
	if _, err := p.Docker.Build(ctx, step); err != nil {
		return nil, err
	}
	result.Pushed = push

	return result, nil
}

// loginECR resolves ECR credentials and logs docker in. Skipped when no ECR
// repository is configured.
func (p *Pipeline) loginECR(ctx context.Context) (string, error) {
	if p.Config.Image.ECRRepository == "" {
		return "", nil
	}

	host, err := p.ECR.RegistryHost(ctx)
	if err != nil {
		return "", err
	}
	creds, err := p.ECR.Credentials(ctx)
	if err != nil {
		return "", err
	}
	if err := p.Docker.Login(ctx, host, creds); err != nil {
		return "", err
	}
	return host, nil
}

// references renders the full image references for every configured
// repository; one tag decision fans out to both registries.
func (p *Pipeline) references(decision release.TagDecision, ecrHost string) []string {
	var refs []string
	if p.Config.Image.ECRRepository != "" && ecrHost != "" {
		refs = append(refs, decision.Reference(ecrHost+"/"+p.Config.Image.ECRRepository))
	}
	if p.Config.Image.DockerHubRepository != "" {
		refs = append(refs, decision.Reference(p.Config.Image.DockerHubRepository))
	}
	return refs
}

// record creates the PENDING run record and flips it IN_PROGRESS. Run
// history is best-effort bookkeeping: failures are logged, never fatal.
func (p *Pipeline) record(ctx context.Context, mode release.Mode, sk string) rundao.PK {
	image := p.Config.Image.ECRRepository
	if image == "" {
		image = p.Config.Image.DockerHubRepository
	}
	pk := rundao.NewPK(image, string(mode))

	if p.Runs == nil {
		return pk
	}

	logger := zerolog.Ctx(ctx)
	if _, err := p.Runs.Create(ctx, rundao.CreateInput{
		Image:       image,
		Mode:        string(mode),
		SK:          sk,
		PushEnabled: !p.DryRun,
	}); err != nil {
		logger.Warn().Err(err).Msg("Failed to create run record")
		return pk
	}
	if err := p.Runs.StartExecution(ctx, pk, sk, "local"); err != nil {
		logger.Warn().Err(err).Msg("Failed to mark run in progress")
	}
	return pk
}

func (p *Pipeline) finish(ctx context.Context, pk rundao.PK, sk string, status rundao.RunStatus, wheelKey *string, runErr error) {
	if p.Runs == nil {
		return
	}

	input := rundao.UpdateInput{
		PK:     pk,
		SK:     sk,
		Status: &status,
	}
	if wheelKey != nil && *wheelKey != "" {
		input.WheelKey = wheelKey
	}
	if runErr != nil {
		msg := runErr.Error()
		input.ErrorMsg = &msg
	}

	if err := p.Runs.UpdateStatus(ctx, input); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to update run record")
	}
}
