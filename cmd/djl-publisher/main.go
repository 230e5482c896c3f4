package main

import (
	"context"
	"os"

	"github.com/aswathsr101/djl-publisher/cmd/djl-publisher/commands"
	"github.com/aswathsr101/djl-publisher/internal/di"
	"github.com/urfave/cli/v2"
)

func main() {
	logger := di.ProvideLogger()
	ctx := logger.WithContext(context.Background())

	app := &cli.App{
		Name:  "djl-publisher",
		Usage: "DJL serving image publish pipeline",
		Description: `Builds and publishes djl-serving CPU docker images on a nightly or
release cadence.

This tool provides commands for:
  - Running the full publish pipeline (wheel build, image build, push)
  - Previewing the tag a trigger would produce without building anything
  - Inspecting publish run history`,
		Commands: []*cli.Command{
			commands.PublishCommand(&logger),
			commands.ResolveCommand(&logger),
			commands.HistoryCommand(&logger),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
