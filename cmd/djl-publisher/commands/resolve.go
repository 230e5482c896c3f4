package commands

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/aswathsr101/djl-publisher/internal/config"
	"github.com/aswathsr101/djl-publisher/internal/errors"
	"github.com/aswathsr101/djl-publisher/internal/props"
	"github.com/aswathsr101/djl-publisher/internal/release"
)

// ResolveCommand returns the resolve command for previewing tag selection
func ResolveCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:    "resolve-tag",
		Aliases: []string{"resolve", "tag"},
		Usage:   "Show the tag a trigger would produce without building anything",
		Description: `Resolves the version from the explicit flag or the properties file and
runs tag selection for the given mode. Makes no AWS calls and has no
side effects, so it is safe to run anywhere.

Examples:
  # What would tonight's nightly publish?
  djl-publisher resolve-tag

  # What tag does a 0.28.0 release produce?
  djl-publisher resolve-tag --mode release --version 0.28.0

  # Machine-readable output
  djl-publisher resolve-tag --mode release --version 0.28.0 --json`,
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
				Usage:   "Explicit version, overrides the properties file",
				EnvVars: []string{"DJL_VERSION"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file",
				EnvVars: []string{"PUBLISHER_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			return resolveAction(c, logger)
		},
	}
}

// resolveOutput is the JSON shape of a resolve preview.
type resolveOutput struct {
	Mode       string   `json:"mode"`
	Version    string   `json:"version,omitempty"`
	Tag        string   `json:"tag"`
	Push       bool     `json:"push"`
	References []string `json:"references"`
}

func resolveAction(c *cli.Context, logger *zerolog.Logger) error {
	ctx := logger.WithContext(c.Context)

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	mode, err := release.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}

	resolver := &props.Resolver{
		Explicit: c.String("version"),
		File:     cfg.Properties.File,
		Key:      cfg.Properties.Key,
	}
	version, err := resolver.Resolve(ctx)
	switch {
	case stderrors.Is(err, errors.ErrVersionNotFound) && mode == release.ModeNightly:
		version = ""
	case stderrors.Is(err, errors.ErrVersionNotFound):
		return errors.ErrMissingVersion
	case err != nil:
		return err
	}

	decision, err := release.SelectTag(mode, version)
	if err != nil {
		return err
	}

	out := resolveOutput{
		Mode:    string(mode),
		Version: version,
		Tag:     decision.Tag,
		Push:    decision.Push,
	}
	if cfg.Image.ECRRepository != "" {
		out.References = append(out.References, decision.Reference(cfg.Image.ECRRepository))
	}
	if cfg.Image.DockerHubRepository != "" {
		out.References = append(out.References, decision.Reference(cfg.Image.DockerHubRepository))
	}

	if c.Bool("json") {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("mode:    %s\n", out.Mode)
	if out.Version != "" {
		fmt.Printf("version: %s\n", out.Version)
	}
	fmt.Printf("tag:     %s\n", out.Tag)
	fmt.Printf("push:    %t\n", out.Push)
	for _, ref := range out.References {
		fmt.Printf("image:   %s\n", ref)
	}
	return nil
}
