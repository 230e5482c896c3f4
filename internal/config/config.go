// Package config loads pipeline configuration from a YAML file with
// environment-variable overrides. Secrets never live here: the config only
// names where they are stored.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full pipeline configuration. Every collaborator receives
// the values it needs explicitly; nothing reads the environment after Load
// returns.
type Config struct {
	// Env selects table and parameter namespaces (dev, staging, prod).
	Env string `yaml:"env"`

	// Region is the AWS region for ECR, DynamoDB, S3, and friends.
	Region string `yaml:"region"`

	Image      ImageConfig      `yaml:"image"`
	Properties PropertiesConfig `yaml:"properties"`
	Wheel      WheelConfig      `yaml:"wheel"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts"`

	// DockerHubSecret is the Secrets Manager secret holding Docker Hub
	// credentials as {"username": ..., "password": ...}.
	DockerHubSecret string `yaml:"dockerhub_secret"`
}

// ImageConfig describes what to build and where to push it.
type ImageConfig struct {
	// ECRRepository is the repository name inside the account registry,
	// e.g. "djl-serving". The registry host is derived at runtime.
	ECRRepository string `yaml:"ecr_repository"`

	// DockerHubRepository is the fully-qualified Hub repository,
	// e.g. "deepjavalibrary/djl-serving".
	DockerHubRepository string `yaml:"dockerhub_repository"`

	Dockerfile string `yaml:"dockerfile"`
	Context    string `yaml:"context"`
}

// PropertiesConfig locates the version properties source.
type PropertiesConfig struct {
	File         string `yaml:"file"`
	Key          string `yaml:"key"`
	SSMParameter string `yaml:"ssm_parameter"`
}

// WheelConfig describes the package build step.
type WheelConfig struct {
	// Command is the build invocation, argv style.
	Command []string `yaml:"command"`
	// Dir is the working directory for the build.
	Dir string `yaml:"dir"`
	// DistDir is where the build drops *.whl files, relative to Dir.
	DistDir string `yaml:"dist_dir"`
}

// ArtifactsConfig names the S3 bucket receiving built wheels.
type ArtifactsConfig struct {
	Bucket string `yaml:"bucket"`
}

// DefaultPath is tried when no --config flag is given.
const DefaultPath = ".djl-publisher.yml"

// Load reads configuration from path, falling back to defaults when the
// file is absent and path was not explicitly requested. Environment
// overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err) && !explicit:
		// No config file is fine: defaults plus env cover the common case.
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Env:    "dev",
		Region: "us-east-1",
		Image: ImageConfig{
			ECRRepository:       "djl-serving",
			DockerHubRepository: "deepjavalibrary/djl-serving",
			Dockerfile:          "serving/docker/Dockerfile",
			Context:             "serving/docker",
		},
		Properties: PropertiesConfig{
			File: "gradle.properties",
			Key:  "djl_version",
		},
		Wheel: WheelConfig{
			Command: []string{"python3", "-m", "build", "--wheel"},
			Dir:     "serving/python",
			DistDir: "dist",
		},
		DockerHubSecret: "djl-publisher/dockerhub",
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PUBLISH_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Region = v
	}
	if v := os.Getenv("ARTIFACT_BUCKET"); v != "" {
		c.Artifacts.Bucket = v
	}
	if v := os.Getenv("DOCKERHUB_SECRET_NAME"); v != "" {
		c.DockerHubSecret = v
	}
}

func (c *Config) validate() error {
	if c.Image.ECRRepository == "" && c.Image.DockerHubRepository == "" {
		return fmt.Errorf("config: at least one of image.ecr_repository or image.dockerhub_repository is required")
	}
	if c.Image.Dockerfile == "" {
		return fmt.Errorf("config: image.dockerfile is required")
	}
	if c.Region == "" {
		return fmt.Errorf("config: region is required")
	}
	return nil
}
