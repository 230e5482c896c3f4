package commands

import (
	"encoding/json"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/aswathsr101/djl-publisher/internal/dao/rundao"
)

// HistoryCommand returns the history command for inspecting publish runs
func HistoryCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:    "history",
		Aliases: []string{"runs"},
		Usage:   "List publish run history",
		Description: `Lists publish runs recorded in DynamoDB, newest first.

With --latest, shows only the most recent run per image for the given
mode instead of the full history.

Examples:
  # Last nightly runs for the default image
  djl-publisher history --env prod

  # Release runs for a specific image
  djl-publisher history --env prod --image djl-serving --mode release

  # Most recent run per image
  djl-publisher history --env prod --mode nightly --latest

  # Full records as JSON
  djl-publisher history --env prod --json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Environment (dev, staging, or prod) - determines which DynamoDB table to use",
				Value:   "dev",
				EnvVars: []string{"PUBLISH_ENV"},
			},
			&cli.StringFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "Image repository name",
				Value:   "djl-serving",
				EnvVars: []string{"IMAGE"},
			},
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Publish mode: nightly or release",
				Value:   "nightly",
				EnvVars: []string{"PUBLISH_MODE"},
			},
			&cli.StringFlag{
				Name:    "region",
				Aliases: []string{"r"},
				Usage:   "AWS region",
				Value:   "us-east-1",
				EnvVars: []string{"AWS_REGION"},
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of runs to show",
				Value:   20,
			},
			&cli.BoolFlag{
				Name:    "latest",
				Aliases: []string{"l"},
				Usage:   "Show only the most recent run per image",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output full records as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			return historyAction(c, logger)
		},
	}
}

func historyAction(c *cli.Context, logger *zerolog.Logger) error {
	ctx := c.Context

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.String("region")))
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	dao := rundao.New(dynamodb.NewFromConfig(awsCfg), rundao.TableName(c.String("env")))

	var records []rundao.Record
	if c.Bool("latest") {
		records, err = dao.QueryLatestRuns(ctx, c.String("mode"))
	} else {
		pk := rundao.NewPK(c.String("image"), c.String("mode"))
		records, err = dao.Query(ctx, pk)
	}
	if err != nil {
		return fmt.Errorf("failed to query runs: %w", err)
	}

	if limit := c.Int("limit"); limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	if len(records) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	if c.Bool("json") {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	for _, record := range records {
		created := time.Unix(record.CreatedAt, 0).UTC().Format(time.RFC3339)
		line := fmt.Sprintf("%s  %-11s  %-24s  %s", created, record.Status, record.Tag, rundao.GetID(record))
		if record.ErrorMsg != nil && *record.ErrorMsg != "" {
			line += fmt.Sprintf("  (%s)", *record.ErrorMsg)
		}
		fmt.Println(line)
	}
	return nil
}
