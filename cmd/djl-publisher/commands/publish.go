package commands

import (
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/aswathsr101/djl-publisher/internal/config"
	"github.com/aswathsr101/djl-publisher/internal/dao/rundao"
	"github.com/aswathsr101/djl-publisher/internal/docker"
	"github.com/aswathsr101/djl-publisher/internal/pipeline"
	"github.com/aswathsr101/djl-publisher/internal/pkgbuild"
	"github.com/aswathsr101/djl-publisher/internal/props"
	"github.com/aswathsr101/djl-publisher/internal/registry"
	"github.com/aswathsr101/djl-publisher/internal/services"
)

// PublishCommand returns the publish command for running the full pipeline
func PublishCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Build and publish the djl-serving docker image",
		Description: `Runs the full publish pipeline: registry logins, version resolution,
wheel build, docker image build, and conditional push.

Nightly mode rebuilds and republishes the cpu-nightly tag on every run.
Release mode requires a version and refuses to overwrite a tag that is
already on Docker Hub.

Examples:
  # Nightly publish (default mode)
  djl-publisher publish

  # Release publish for a specific version
  djl-publisher publish --mode release --version 0.28.0

  # Build locally without pushing or recording history
  djl-publisher publish --dry-run

  # Skip the wheel build, image only
  djl-publisher publish --skip-wheel`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Publish mode: nightly or release (empty defaults to nightly)",
				EnvVars: []string{"PUBLISH_MODE"},
			},
			&cli.StringFlag{
				Name:    "version",
				Aliases: []string{"v"},
				Usage:   "Explicit version, overrides the properties file and Parameter Store",
				EnvVars: []string{"DJL_VERSION"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file",
				EnvVars: []string{"PUBLISHER_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "region",
				Aliases: []string{"r"},
				Usage:   "AWS region (overrides the config file)",
				EnvVars: []string{"AWS_REGION"},
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Build the image locally without pushing or recording run history",
			},
			&cli.BoolFlag{
				Name:  "skip-wheel",
				Usage: "Skip the wheel build and artifact upload",
			},
		},
		Action: func(c *cli.Context) error {
			return publishAction(c, logger)
		},
	}
}

func publishAction(c *cli.Context, logger *zerolog.Logger) error {
	ctx := c.Context
	dryRun := c.Bool("dry-run")

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if region := c.String("region"); region != "" {
		cfg.Region = region
	}

	logger.Info().
		Str("mode", c.String("mode")).
		Str("region", cfg.Region).
		Bool("dry_run", dryRun).
		Msg("Starting publish")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	resolver := &props.Resolver{
		Explicit: c.String("version"),
		File:     cfg.Properties.File,
		Key:      cfg.Properties.Key,
	}
	if cfg.Properties.SSMParameter != "" {
		resolver.SSM = ssm.NewFromConfig(awsCfg)
		resolver.Parameter = cfg.Properties.SSMParameter
	}

	p := &pipeline.Pipeline{
		Config:   cfg,
		Versions: resolver,
		ECR:      registry.NewECRFromConfig(awsCfg, cfg.Region),
		Docker:   docker.NewBuildx(),
		DryRun:   dryRun,
	}

	// Docker Hub credentials are only needed when we intend to push there.
	if !dryRun && cfg.Image.DockerHubRepository != "" && cfg.DockerHubSecret != "" {
		secrets := services.NewSecretsManagerService(awsCfg)
		creds, err := secrets.DockerHubCredentials(ctx, cfg.DockerHubSecret)
		if err != nil {
			return err
		}
		p.HubCreds = creds
		p.Hub = registry.NewDockerHub(creds)
	}

	if !c.Bool("skip-wheel") {
		p.Wheel = &pkgbuild.Builder{
			Command: cfg.Wheel.Command,
			Dir:     cfg.Wheel.Dir,
			DistDir: cfg.Wheel.DistDir,
		}
		if !dryRun && cfg.Artifacts.Bucket != "" {
			p.Artifacts = services.NewArtifactStore(s3.NewFromConfig(awsCfg), cfg.Artifacts.Bucket)
		}
	}

	if !dryRun {
		p.Runs = rundao.New(dynamodb.NewFromConfig(awsCfg), rundao.TableName(cfg.Env))
	}

	result, err := p.Run(ctx, c.String("mode"), c.String("version"))
	if err != nil {
		return err
	}

	if result.RunID != "" {
		fmt.Printf("✓ Run %s complete\n", result.RunID)
	} else {
		fmt.Println("✓ Publish complete")
	}
	fmt.Printf("  mode:    %s\n", result.Mode)
	if result.Version != "" {
		fmt.Printf("  version: %s\n", result.Version)
	}
	fmt.Printf("  tag:     %s\n", result.Tag)
	for _, ref := range result.References {
		fmt.Printf("  image:   %s\n", ref)
	}
	if result.WheelKey != "" {
		fmt.Printf("  wheel:   s3://%s/%s\n", cfg.Artifacts.Bucket, result.WheelKey)
	}
	if !result.Pushed {
		fmt.Println("  (image was built but not pushed)")
	}
	return nil
}
