// Package docker shells out to the docker CLI for login, image build, and
// push. Build semantics stay inside docker itself; this wrapper only
// assembles arguments and propagates failures.
package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aswathsr101/djl-publisher/internal/registry"
)

// BuildStep is a single buildx invocation.
type BuildStep struct {
	Dockerfile string
	Context    string
	BuildArgs  map[string]string
	Tags       []string
	Push       bool
	Load       bool
}

// StepResult captures the outcome of one build.
type StepResult struct {
	Status   string // "success" or "failed"
	Images   []string
	Duration time.Duration
	Error    error
}

// Buildx wraps docker buildx commands.
type Buildx struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewBuildx creates a Buildx runner writing to the process streams.
func NewBuildx() *Buildx {
	return &Buildx{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Login authenticates the docker CLI against a registry host. The password
// travels over stdin so it never appears in the process table.
func (bx *Buildx) Login(ctx context.Context, host string, creds registry.Credentials) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("registry", host).Msg("docker login")

	cmd := exec.CommandContext(ctx, "docker", "login", "--username", creds.User, "--password-stdin", host)
	cmd.Stdin = strings.NewReader(creds.Pass)
	cmd.Stdout = bx.Stdout
	cmd.Stderr = bx.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker login %s failed: %w", host, err)
	}
	return nil
}

// Build executes a single build step via docker buildx.
func (bx *Buildx) Build(ctx context.Context, step BuildStep) (*StepResult, error) {
	logger := zerolog.Ctx(ctx)
	start := time.Now()
	result := &StepResult{}

	args := buildArgs(step)
	logger.Info().Str("command", "docker "+strings.Join(args, " ")).Msg("Building image")

	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Stdout = bx.Stdout
	cmd.Stderr = bx.Stderr

	if err := cmd.Run(); err != nil {
		result.Status = "failed"
		result.Duration = time.Since(start)
		result.Error = fmt.Errorf("docker buildx build failed: %w", err)
		return result, result.Error
	}

	result.Status = "success"
	result.Duration = time.Since(start)
	result.Images = step.Tags
	return result, nil
}

// buildArgs constructs the docker buildx build argument list.
func buildArgs(step BuildStep) []string {
	args := []string{"buildx", "build"}

	if step.Dockerfile != "" {
		args = append(args, "--file", step.Dockerfile)
	}

	for k, v := range step.BuildArgs {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, v))
	}

	for _, tag := range step.Tags {
		args = append(args, "--tag", tag)
	}

	switch {
	case step.Push:
		args = append(args, "--push")
	case step.Load:
		args = append(args, "--load")
	}

	buildContext := step.Context
	if buildContext == "" {
		buildContext = "."
	}
	args = append(args, buildContext)

	return args
}
