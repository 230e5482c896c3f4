package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/aswathsr101/djl-publisher/internal/di"
	"github.com/aswathsr101/djl-publisher/internal/release"
	"github.com/aswathsr101/djl-publisher/internal/trigger"
)

type Handler struct {
	starter *trigger.Starter
	image   string
}

func NewHandler(starter *trigger.Starter, image string) *Handler {
	return &Handler{
		starter: starter,
		image:   image,
	}
}

// HandleScheduledEvent starts a nightly publish run. The EventBridge
// schedule carries no payload; every firing is a nightly build of the
// configured image.
func (h *Handler) HandleScheduledEvent(ctx context.Context, event events.CloudWatchEvent) error {
	logger := zerolog.Ctx(ctx)

	req, err := release.NewPublishRequest(string(release.ModeNightly), "")
	if err != nil {
		return err
	}

	runID, executionArn, err := h.starter.Start(ctx, h.image, req)
	if err != nil {
		logger.Error().Err(err).Str("image", h.image).Msg("Failed to start nightly run")
		return fmt.Errorf("failed to start nightly run: %w", err)
	}

	logger.Info().
		Str("image", h.image).
		Str("run_id", runID.String()).
		Str("execution_arn", executionArn).
		Str("schedule_time", event.Time.String()).
		Msg("Started nightly publish run")
	return nil
}

func main() {
	logger := di.ProvideLogger().With().Str("lambda", "nightly-trigger").Logger()

	env := os.Getenv("ENV")
	if env == "" {
		env = "dev"
	}
	image := os.Getenv("IMAGE")
	if image == "" {
		image = "djl-serving"
	}

	container, err := di.New(env)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create DI container")
		os.Exit(1)
	}

	starter := di.MustGet[*trigger.Starter](container)
	handler := NewHandler(starter, image)

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		wrappedHandler := func(ctx context.Context, event events.CloudWatchEvent) error {
			ctx = logger.WithContext(ctx)
			return handler.HandleScheduledEvent(ctx, event)
		}
		lambda.Start(wrappedHandler)
		return
	}

	app := &cli.App{
		Name:  "nightly-trigger",
		Usage: "Simulate the EventBridge schedule firing",
		Action: func(c *cli.Context) error {
			ctx := logger.WithContext(context.Background())
			return handler.HandleScheduledEvent(ctx, events.CloudWatchEvent{})
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
